package formats

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const testAutoMap = "LevelName\tTileName\tStyle\tStartSequence\tEndSequence\tType\tCel1\tCel2\tCel3\tCel4\r\n" +
	"Act 1 - Wilderness 1\tfl\t0\t0\t0\t\t20\t21\t-1\t20\r\n" +
	"Expansion\t\t\t\t\t\t99\t\t\t\r\n" +
	"Act 1 - Wilderness 1\twl\t1\t0\t3\t\t7\t0\t\t\r\n" +
	"Act 1 - Cave 1\tfl\t0\t0\t0\t\t300\r\n"

func TestParseAutoMap(t *testing.T) {
	am, err := ParseAutoMap(testAutoMap)
	if err != nil {
		t.Fatalf("ParseAutoMap failed: %v", err)
	}

	if len(am.Rows) != 3 {
		t.Fatalf("expected 3 rows (Expansion skipped), got %d", len(am.Rows))
	}

	tests := []struct {
		area string
		want []uint32
	}{
		{"Act 1 - Wilderness 1", []uint32{7, 20, 21}},
		{"Act 1 - Cave 1", []uint32{300}},
		{"Expansion", nil},
		{"Unknown", nil},
	}
	for _, tt := range tests {
		got := am.SpriteIDs(tt.area)
		if !slices.Equal(got, tt.want) {
			t.Errorf("SpriteIDs(%q): expected %v, got %v", tt.area, tt.want, got)
		}
	}
}

func TestParseAutoMapMissingColumn(t *testing.T) {
	_, err := ParseAutoMap("LevelName\tCel1\tCel2\tCel3\r\nx\t1\t2\t3\r\n")
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestParseAutoMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AutoMap.txt")
	if err := os.WriteFile(path, []byte(testAutoMap), 0o644); err != nil {
		t.Fatal(err)
	}
	am, err := ParseAutoMapFile(path)
	if err != nil {
		t.Fatalf("ParseAutoMapFile failed: %v", err)
	}
	if len(am.Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(am.Rows))
	}
}
