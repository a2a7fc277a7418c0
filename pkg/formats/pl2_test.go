package formats

import (
	"errors"
	"testing"

	"github.com/Faultbox/d2sight/pkg/palette"
)

func buildSyntheticPL2() []byte {
	data := make([]byte, pl2FontQualityOffset+pl2FontQualityPalettes*palette.Size+16)
	for i := 0; i < palette.Size; i++ {
		data[i*4] = byte(i)
		data[i*4+1] = byte(255 - i)
		data[i*4+2] = byte(i / 2)
		data[i*4+3] = 0xAA
	}
	for p := 0; p < 14; p++ {
		for i := 0; i < palette.Size; i++ {
			data[pl2LightRadiusStart+p*palette.Size+i] = byte(p)
		}
	}
	for slot := 0; slot < pl2FontQualityPalettes; slot++ {
		for i := 0; i < palette.Size; i++ {
			data[pl2FontQualityOffset+slot*palette.Size+i] = byte(100 + slot)
		}
	}
	return data
}

func TestParsePL2(t *testing.T) {
	pl2, err := ParsePL2(buildSyntheticPL2())
	if err != nil {
		t.Fatalf("ParsePL2 failed: %v", err)
	}

	if got := pl2.Pixels[7]; got != (palette.Pixel{R: 7, G: 248, B: 3}) {
		t.Errorf("unexpected pixel 7: %+v", got)
	}

	if len(pl2.LightRadius) != 14 {
		t.Fatalf("expected 14 light radius palettes, got %d", len(pl2.LightRadius))
	}
	if pl2.LightRadius[13][0] != 13 {
		t.Errorf("expected light radius palette 13 filled with 13, got %d", pl2.LightRadius[13][0])
	}

	want := []struct {
		quality palette.Quality
		fill    byte
	}{
		{palette.Set, 102},
		{palette.Magic, 103},
		{palette.Unique, 104},
		{palette.Grey, 105},
		{palette.Rune, 108},
		{palette.Rare, 109},
	}

	if len(pl2.FontQualities) != len(want)+1 {
		t.Fatalf("expected %d quality palettes, got %d", len(want)+1, len(pl2.FontQualities))
	}
	if pl2.FontQualities[0].Quality != palette.Common || !pl2.FontQualities[0].Palette.IsNeutral() {
		t.Errorf("expected neutral common palette first")
	}
	for i, w := range want {
		qp := pl2.FontQualities[i+1]
		if qp.Quality != w.quality {
			t.Errorf("palette %d: expected %v, got %v", i+1, w.quality, qp.Quality)
		}
		if qp.Palette[0] != w.fill || qp.Palette[255] != w.fill {
			t.Errorf("palette %v: expected fill %d, got %d", w.quality, w.fill, qp.Palette[0])
		}
	}
}

func TestParsePL2Truncated(t *testing.T) {
	if _, err := ParsePL2(make([]byte, 4096)); !errors.Is(err, ErrTruncatedPL2Data) {
		t.Errorf("expected ErrTruncatedPL2Data, got %v", err)
	}
}

func TestParseRandTransforms(t *testing.T) {
	palettes, err := ParseRandTransforms(make([]byte, RandTransformsSize))
	if err != nil {
		t.Fatalf("ParseRandTransforms failed: %v", err)
	}
	if len(palettes) != 30 {
		t.Errorf("expected 30 palettes, got %d", len(palettes))
	}

	if _, err := ParseRandTransforms(make([]byte, 256)); !errors.Is(err, ErrPaletteBankSize) {
		t.Errorf("expected ErrPaletteBankSize, got %v", err)
	}
}

func TestParsePaletteBank(t *testing.T) {
	palettes, err := ParsePaletteBank(make([]byte, 3*256))
	if err != nil {
		t.Fatalf("ParsePaletteBank failed: %v", err)
	}
	if len(palettes) != 3 {
		t.Errorf("expected 3 palettes, got %d", len(palettes))
	}

	if _, err := ParsePaletteBank(make([]byte, 300)); !errors.Is(err, palette.ErrPaletteSize) {
		t.Errorf("expected ErrPaletteSize, got %v", err)
	}
}
