package window

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/encoding"
	"github.com/Faultbox/d2sight/pkg/formats"
)

// Monster describes one monster or NPC whose sprites go into a matcher.
type Monster struct {
	Name string `yaml:"name"`

	// Code is the monster code naming its asset directory.
	Code string `yaml:"code"`

	// PalShiftID selects the palette-shift variant, offset by 2 into the
	// monster's palshift bank.
	PalShiftID int `yaml:"palshift_id"`

	// Sprites are the logical paths of the monster's DCC files.
	Sprites []string `yaml:"sprites"`
}

// Roster maps matcher names (areas or single NPCs) to their monsters.
type Roster map[string][]Monster

// LoadRoster reads a roster from a YAML file.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster parses a YAML roster.
func ParseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	for name, monsters := range r {
		for i, m := range monsters {
			if m.Code == "" {
				return nil, fmt.Errorf("roster %s: monster %d has no code", name, i)
			}
		}
	}
	return r, nil
}

// Roster lookup errors.
var (
	ErrUnknownLevel   = errors.New("unknown level")
	ErrUnknownMonster = errors.New("unknown monster")
)

// Difficulty selects the monster columns of the level table.
type Difficulty int

const (
	Normal Difficulty = iota
	Nightmare
	Hell
)

var difficultyNames = [...]string{"normal", "nightmare", "hell"}

func (d Difficulty) String() string {
	if d < Normal || d > Hell {
		return "unknown"
	}
	return difficultyNames[d]
}

// ParseDifficulty parses "normal", "nightmare" or "hell".
func ParseDifficulty(s string) (Difficulty, error) {
	for i, name := range difficultyNames {
		if strings.EqualFold(s, name) {
			return Difficulty(i), nil
		}
	}
	return Normal, fmt.Errorf("unknown difficulty %q", s)
}

// Body parts held in the hands or drawn as effects vary too much to match.
var skippedComposits = map[string]bool{
	"RH": true, "LH": true,
	"S1": true, "S2": true, "S3": true, "S4": true,
	"S5": true, "S6": true, "S7": true, "S8": true,
}

// Death, corpse, knockback, sequence and skill animations are not matched.
var skippedModes = map[string]bool{
	"DD": true, "DT": true, "KB": true, "SQ": true,
	"S1": true, "S2": true, "S3": true, "S4": true,
}

// levelExtraMonsters are spawned by camps the level table does not list.
var levelExtraMonsters = map[string][]string{
	"Stony Field":    {"fallenshaman1", "fallenshaman2"},
	"Tamoe Highland": {"fallenshaman2", "fallenshaman3"},
}

// Tables are the excel tables monsters are derived from.
type Tables struct {
	Levels    *formats.Levels
	MonStats  *formats.MonStats
	MonStats2 *formats.MonStats2
}

// LoadTables reads and parses Levels.txt, monstats.txt and monstats2.txt,
// patch archive first.
func LoadTables(assets Assets) (*Tables, error) {
	read := func(path string) (string, error) {
		data, err := assets.ReadFirst(path, archive.Patch, archive.Expansion, archive.Data)
		if err != nil {
			return "", err
		}
		return encoding.TableToUTF8(data), nil
	}

	var t Tables
	text, err := read(archive.LevelsPath)
	if err != nil {
		return nil, err
	}
	if t.Levels, err = formats.ParseLevels(text); err != nil {
		return nil, err
	}

	if text, err = read(archive.MonStatsPath); err != nil {
		return nil, err
	}
	if t.MonStats, err = formats.ParseMonStats(text); err != nil {
		return nil, err
	}

	if text, err = read(archive.MonStats2Path); err != nil {
		return nil, err
	}
	if t.MonStats2, err = formats.ParseMonStats2(text); err != nil {
		return nil, err
	}
	return &t, nil
}

// Monster derives a monster from its monstats row and the monstats2 row it
// points to. Sprites cover every kept composit, equipment and mode.
func (t *Tables) Monster(id string) (Monster, error) {
	stat, ok := t.MonStats.Monster(id)
	if !ok {
		return Monster{}, fmt.Errorf("%w: %q", ErrUnknownMonster, id)
	}
	stat2, ok := t.MonStats2.Monster(stat.MonStatsEx)
	if !ok {
		return Monster{}, fmt.Errorf("%w: %q has no monstats2 row %q", ErrUnknownMonster, id, stat.MonStatsEx)
	}

	m := Monster{Name: stat.NameStr, Code: stat.Code, PalShiftID: stat.PalShiftID}
	for _, c := range stat2.Composits {
		if skippedComposits[c.Name] {
			continue
		}
		for _, equipment := range c.Equipments {
			for _, mode := range stat2.Modes {
				if skippedModes[mode] {
					continue
				}
				m.Sprites = append(m.Sprites, archive.MonsterSpritePath(stat.Code, c.Name, equipment, mode, stat2.BaseWeapon))
			}
		}
	}
	return m, nil
}

// LevelMonsterIDs returns the sorted monster ids that can appear in a level
// on the given difficulty, including camp spawns, spawned monsters and
// minions.
func (t *Tables) LevelMonsterIDs(level string, d Difficulty) ([]string, error) {
	row, ok := t.Levels.Level(level)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	ids := slices.Clone(row.Monsters)
	if d != Normal {
		ids = slices.Clone(row.NightmareMonsters)
	}
	ids = append(ids, levelExtraMonsters[level]...)

	var related []string
	for _, id := range ids {
		stat, ok := t.MonStats.Monster(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q in level %q", ErrUnknownMonster, id, level)
		}
		if stat.Spawn != "" {
			related = append(related, stat.Spawn)
		}
		related = append(related, stat.Minions...)
	}
	ids = append(ids, related...)

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// LevelMonsters derives every monster of a level.
func (t *Tables) LevelMonsters(level string, d Difficulty) ([]Monster, error) {
	ids, err := t.LevelMonsterIDs(level, d)
	if err != nil {
		return nil, err
	}
	monsters := make([]Monster, 0, len(ids))
	for _, id := range ids {
		m, err := t.Monster(id)
		if err != nil {
			return nil, err
		}
		monsters = append(monsters, m)
	}
	return monsters, nil
}
