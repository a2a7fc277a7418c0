package formats

import (
	"fmt"
	"os"

	"github.com/Faultbox/d2sight/pkg/encoding"
)

// LevelMonsterSlots is the number of monster columns per difficulty.
const LevelMonsterSlots = 10

// Level is one row of Levels.txt.
type Level struct {
	Name      string
	LevelName string
	// Monsters spawned on normal difficulty (mon1..mon10) and on nightmare
	// and hell (nmon1..nmon10). Blank slots are dropped.
	Monsters          []string
	NightmareMonsters []string
}

// Levels is the parsed Levels.txt table.
type Levels struct {
	Rows []Level
}

// ParseLevels parses Levels.txt. Rows named "Expansion" or "Null" are
// skipped.
func ParseLevels(text string) (*Levels, error) {
	t := ParseTable("Levels", text)

	names := []string{"Name", "LevelName"}
	for i := 1; i <= LevelMonsterSlots; i++ {
		names = append(names, fmt.Sprintf("mon%d", i))
	}
	for i := 1; i <= LevelMonsterSlots; i++ {
		names = append(names, fmt.Sprintf("nmon%d", i))
	}
	cols, err := t.Columns(names...)
	if err != nil {
		return nil, err
	}
	nameCol, levelCol := cols[0], cols[1]
	monCols, nmonCols := cols[2:2+LevelMonsterSlots], cols[2+LevelMonsterSlots:]

	lv := &Levels{}
	for _, fields := range t.Rows {
		name := Field(fields, nameCol)
		if name == "Expansion" || name == "Null" {
			continue
		}

		row := Level{Name: name, LevelName: Field(fields, levelCol)}
		for i := range LevelMonsterSlots {
			if id := Field(fields, monCols[i]); id != "" {
				row.Monsters = append(row.Monsters, id)
			}
			if id := Field(fields, nmonCols[i]); id != "" {
				row.NightmareMonsters = append(row.NightmareMonsters, id)
			}
		}
		lv.Rows = append(lv.Rows, row)
	}
	return lv, nil
}

// ParseLevelsFile parses Levels.txt from disk.
func ParseLevelsFile(path string) (*Levels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading Levels file: %w", err)
	}
	return ParseLevels(encoding.TableToUTF8(data))
}

// Level returns the first row with the given LevelName.
func (lv *Levels) Level(levelName string) (*Level, bool) {
	for i := range lv.Rows {
		if lv.Rows[i].LevelName == levelName {
			return &lv.Rows[i], true
		}
	}
	return nil, false
}
