package formats

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MonStat is one row of monstats.txt.
type MonStat struct {
	ID         string
	NameStr    string
	Code       string
	PalShiftID int    // TransLvl
	MonStatsEx string // row id in monstats2.txt
	Spawn      string
	Minions    []string
}

// MonStats is the parsed monstats.txt table keyed by lowercase id.
type MonStats struct {
	rows map[string]*MonStat
}

// ParseMonStats parses monstats.txt. Rows with id "Expansion" are skipped.
func ParseMonStats(text string) (*MonStats, error) {
	t := ParseTable("monstats", text)

	cols, err := t.Columns("Id", "NameStr", "Code", "TransLvl", "MonStatsEx", "spawn", "minion1", "minion2")
	if err != nil {
		return nil, err
	}

	ms := &MonStats{rows: make(map[string]*MonStat, len(t.Rows))}
	for line, fields := range t.Rows {
		id := Field(fields, cols[0])
		if id == "Expansion" || id == "" {
			continue
		}

		row := &MonStat{
			ID:         id,
			NameStr:    Field(fields, cols[1]),
			Code:       Field(fields, cols[2]),
			MonStatsEx: Field(fields, cols[4]),
			Spawn:      Field(fields, cols[5]),
		}
		if v := Field(fields, cols[3]); v != "" {
			if row.PalShiftID, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("monstats line %d: TransLvl %q: %w", line+2, v, err)
			}
		}
		for _, c := range cols[6:] {
			if m := Field(fields, c); m != "" {
				row.Minions = append(row.Minions, m)
			}
		}
		ms.rows[strings.ToLower(id)] = row
	}
	return ms, nil
}

// Monster looks a row up by id, case-insensitively.
func (ms *MonStats) Monster(id string) (*MonStat, bool) {
	row, ok := ms.rows[strings.ToLower(id)]
	return row, ok
}

// Len returns the number of rows.
func (ms *MonStats) Len() int {
	return len(ms.rows)
}

// MonsterModes are the animation modes in monstats2.txt column order; each
// has a flag column named "m" + mode.
var MonsterModes = []string{"DT", "NU", "WL", "GH", "A1", "A2", "BL", "SC", "S1", "S2", "S3", "S4", "DD", "KB", "SQ", "RN"}

// MonsterComposits are the body parts in monstats2.txt column order.
var MonsterComposits = []string{"HD", "TR", "LG", "RA", "LA", "RH", "LH", "SH", "S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}

// Composit is a body part a monster draws with its equipment variants.
type Composit struct {
	Name       string
	Equipments []string
}

// MonStat2 is one row of monstats2.txt.
type MonStat2 struct {
	ID         string
	BaseWeapon string
	Modes      []string
	Composits  []Composit
}

// MonStats2 is the parsed monstats2.txt table keyed by lowercase id.
type MonStats2 struct {
	rows map[string]*MonStat2
}

// composit variant columns; RA and LA are spelled with a lowercase a.
func compositVariantColumn(c string) string {
	switch c {
	case "RA":
		return "Rav"
	case "LA":
		return "Lav"
	default:
		return c + "v"
	}
}

// ParseMonStats2 parses monstats2.txt. A mode or composit is present when
// its flag column is "1". Equipment lists may be quoted; blank and "nil"
// entries are dropped and the rest sorted and deduplicated.
func ParseMonStats2(text string) (*MonStats2, error) {
	t := ParseTable("monstats2", text)

	names := []string{"Id", "BaseW"}
	for _, m := range MonsterModes {
		names = append(names, "m"+m)
	}
	for _, c := range MonsterComposits {
		names = append(names, c, compositVariantColumn(c))
	}
	cols, err := t.Columns(names...)
	if err != nil {
		return nil, err
	}
	modeCols := cols[2 : 2+len(MonsterModes)]
	compCols := cols[2+len(MonsterModes):]

	ms := &MonStats2{rows: make(map[string]*MonStat2, len(t.Rows))}
	for _, fields := range t.Rows {
		id := Field(fields, cols[0])
		if id == "Expansion" || id == "" {
			continue
		}

		row := &MonStat2{ID: id, BaseWeapon: Field(fields, cols[1])}
		for i, c := range modeCols {
			if Field(fields, c) == "1" {
				row.Modes = append(row.Modes, MonsterModes[i])
			}
		}
		for i, name := range MonsterComposits {
			if Field(fields, compCols[2*i]) != "1" {
				continue
			}
			row.Composits = append(row.Composits, Composit{
				Name:       name,
				Equipments: parseEquipments(Field(fields, compCols[2*i+1])),
			})
		}
		ms.rows[strings.ToLower(id)] = row
	}
	return ms, nil
}

func parseEquipments(s string) []string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	var out []string
	seen := make(map[string]bool)
	for _, e := range strings.Split(s, ",") {
		if e == "" || e == "nil" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// Monster looks a row up by id, case-insensitively.
func (ms *MonStats2) Monster(id string) (*MonStat2, bool) {
	row, ok := ms.rows[strings.ToLower(id)]
	return row, ok
}
