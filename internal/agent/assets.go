package agent

import (
	"errors"
	"fmt"

	"github.com/Faultbox/d2sight/internal/mapmatch"
	"github.com/Faultbox/d2sight/internal/matcher/window"
	"github.com/Faultbox/d2sight/internal/precache"
	"github.com/Faultbox/d2sight/internal/textread"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Reader reads logical asset paths from the game archives.
type Reader interface {
	ReadFirst(path string, names ...string) ([]byte, error)
}

// Assets holds what the perception pipeline loads once per act.
type Assets struct {
	Archives   Reader
	Act        int
	Difficulty window.Difficulty
	Palette    *formats.PL2
	Contractor *palette.Contractor
	Monsters   window.Palettes
	Tables     *window.Tables
	Masks      *tilemask.Index
	Roster     window.Roster
	Cache      *window.Cache
	Matcher    window.Options
}

// AssetConfig selects what LoadAssets loads.
type AssetConfig struct {
	Act        int
	Difficulty window.Difficulty
	Masks      *tilemask.Index
	// Roster overrides the monsters derived from the excel tables.
	Roster  window.Roster
	Cache   *window.Cache
	Matcher window.Options
}

// NPC matchers index fewer windows and never the unique colourings.
const npcMaxWindowsPerFrame = 12

// LoadAssets reads the act palette, the random transforms and the monster
// tables and builds the contractor.
func LoadAssets(r Reader, cfg AssetConfig) (*Assets, error) {
	act := cfg.Act
	data, err := r.ReadFirst(archive.PalettePath(act))
	if err != nil {
		return nil, fmt.Errorf("reading act %d palette: %w", act, err)
	}
	pl2, err := formats.ParsePL2(data)
	if err != nil {
		return nil, fmt.Errorf("parsing act %d palette: %w", act, err)
	}

	data, err = r.ReadFirst(archive.RandTransformsPath)
	if err != nil {
		return nil, fmt.Errorf("reading random transforms: %w", err)
	}
	rand, err := formats.ParseRandTransforms(data)
	if err != nil {
		return nil, err
	}

	tables, err := window.LoadTables(r)
	if err != nil {
		return nil, fmt.Errorf("loading monster tables: %w", err)
	}

	return &Assets{
		Archives:   r,
		Act:        act,
		Difficulty: cfg.Difficulty,
		Palette:    pl2,
		Contractor: palette.NewContractor(&pl2.Pixels),
		Monsters:   window.Palettes{LightRadius: pl2.LightRadius, RandTransforms: rand},
		Tables:     tables,
		Masks:      cfg.Masks,
		Roster:     cfg.Roster,
		Cache:      cfg.Cache,
		Matcher:    cfg.Matcher,
	}, nil
}

// matcherMonsters resolves a matcher name: a roster entry, then a level
// from Levels.txt, then a single monster or NPC id from monstats.txt.
func (a *Assets) matcherMonsters(name string) ([]window.Monster, window.Options, error) {
	opts := a.Matcher
	if monsters, ok := a.Roster[name]; ok {
		return monsters, opts, nil
	}

	monsters, err := a.Tables.LevelMonsters(name, a.Difficulty)
	if err == nil {
		return monsters, opts, nil
	}
	if !errors.Is(err, window.ErrUnknownLevel) {
		return nil, opts, err
	}

	m, err := a.Tables.Monster(name)
	if err != nil {
		return nil, opts, fmt.Errorf("%w: %q", ErrUnknownArea, name)
	}
	opts.Kind = window.KindMonster
	opts.MaxWindowsPerFrame = npcMaxWindowsPerFrame
	opts.MatchUniqueAndChampion = false
	return []window.Monster{m}, opts, nil
}

// BuildMonsterMatcher assembles the monster matcher of an area or NPC.
func (a *Assets) BuildMonsterMatcher(area string) (*window.Tree, error) {
	monsters, opts, err := a.matcherMonsters(area)
	if err != nil {
		return nil, err
	}
	return window.Assemble(a.Archives, monsters, a.Monsters, opts)
}

// MonsterMatcher loads the matcher of an area from the cache, building it
// when missing.
func (a *Assets) MonsterMatcher(area string) (*window.Tree, error) {
	return a.Cache.LoadOrBuild(area, func() (*window.Tree, error) {
		return a.BuildMonsterMatcher(area)
	})
}

// MapMatcher builds the automap sprite matcher of an area.
func (a *Assets) MapMatcher(area string) (*mapmatch.Matcher, error) {
	return mapmatch.Load(a.Archives, area)
}

// TextReader builds the item-name reader from the game font.
func (a *Assets) TextReader() (*textread.Reader, error) {
	data, err := a.Archives.ReadFirst(archive.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	dc6, err := formats.ParseDC6(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	font, err := textread.FontFromDC6(dc6)
	if err != nil {
		return nil, err
	}
	return textread.NewReader(font, a.Palette.FontQualities)
}

// PreCacher returns a pre-cacher building matchers of these assets. Each
// parallel build reads through its own archive cache.
func (a *Assets) PreCacher(parallel bool, maxParallel int) *precache.PreCacher {
	return &precache.PreCacher{
		Cache:       a.Cache,
		Build:       a.BuildMonsterMatcher,
		NewBuild:    a.newBuild,
		Parallel:    parallel,
		MaxParallel: maxParallel,
	}
}

func (a *Assets) newBuild() precache.BuildFunc {
	c := *a
	if set, ok := a.Archives.(*archive.Set); ok {
		c.Archives = set.Clone()
	}
	return c.BuildMonsterMatcher
}
