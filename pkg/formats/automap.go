package formats

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/Faultbox/d2sight/pkg/encoding"
)

var autoMapCellColumns = []string{"Cel1", "Cel2", "Cel3", "Cel4"}

// AutoMapRow is one level row of the AutoMap table. Cells hold the positive
// map sprite ids of the row; non-positive and blank cells are dropped.
type AutoMapRow struct {
	LevelName string
	Cells     []uint32
}

// AutoMap is the parsed AutoMap.txt table.
type AutoMap struct {
	Rows []AutoMapRow
}

// ParseAutoMap parses the tab-separated AutoMap table. Rows named
// "Expansion" are section markers and are skipped.
func ParseAutoMap(text string) (*AutoMap, error) {
	t := ParseTable("AutoMap", text)

	cols, err := t.Columns(append([]string{"LevelName"}, autoMapCellColumns...)...)
	if err != nil {
		return nil, err
	}
	levelCol, cellCols := cols[0], cols[1:]

	am := &AutoMap{}
	for _, fields := range t.Rows {
		name := Field(fields, levelCol)
		if name == "Expansion" {
			continue
		}

		row := AutoMapRow{LevelName: name}
		for _, c := range cellCols {
			n, err := strconv.Atoi(Field(fields, c))
			if err != nil || n <= 0 {
				continue
			}
			row.Cells = append(row.Cells, uint32(n))
		}
		am.Rows = append(am.Rows, row)
	}

	return am, nil
}

// ParseAutoMapFile parses an AutoMap table from disk.
func ParseAutoMapFile(path string) (*AutoMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AutoMap file: %w", err)
	}
	return ParseAutoMap(encoding.TableToUTF8(data))
}

// SpriteIDs returns the sorted, deduplicated map sprite ids used by an area.
func (am *AutoMap) SpriteIDs(area string) []uint32 {
	var ids []uint32
	for _, row := range am.Rows {
		if row.LevelName == area {
			ids = append(ids, row.Cells...)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
