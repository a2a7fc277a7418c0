// Package config handles agent configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config holds all agent settings.
type Config struct {
	Game     GameConfig     `yaml:"game"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Movement MovementConfig `yaml:"movement"`
	PreCache PreCacheConfig `yaml:"pre_cache"`
	Capture  CaptureConfig  `yaml:"capture"`
	Input    InputConfig    `yaml:"input"`
	Logging  LoggingConfig  `yaml:"logging"`
	Debug    DebugConfig    `yaml:"debug"`
}

// GameConfig locates the game data and the current area.
type GameConfig struct {
	Dir        string `yaml:"dir"` // Directory holding the extracted data, expansion and patch archives
	Act        int    `yaml:"act"`
	Difficulty string `yaml:"difficulty"` // normal, nightmare or hell
	Area       string `yaml:"area"`
	TileMasks  string `yaml:"tile_masks"` // YAML sprite id range table
	Roster     string `yaml:"roster"`     // Optional YAML roster overriding the excel-derived monsters
}

// MatcherConfig holds sprite-window matcher settings.
type MatcherConfig struct {
	MaxWindowsPerSpriteFrame       int    `yaml:"max_windows_per_sprite_frame"`
	MatchUniqueAndChampionMonsters bool   `yaml:"match_unique_and_champion_monsters"`
	CacheDir                       string `yaml:"cache_dir"`
}

// MovementConfig holds exploration planner settings.
type MovementConfig struct {
	WideStartSize                          int           `yaml:"wide_start_size"`
	MaxNumTilesFromPathToMarkAsWalked      int           `yaml:"max_num_tiles_from_path_to_mark_as_walked"`
	NumRandomDestinationPointsToChooseFrom int           `yaml:"num_random_destination_points_to_choose_from"`
	MaxMovementsBeforeAutomapPathRefresh   int           `yaml:"max_movements_before_automap_path_refresh"`
	MaxAutomapPathRefreshBeforeGameRefresh int           `yaml:"max_automap_path_refresh_before_game_refresh"`
	MinDestinationSteps                    int           `yaml:"min_destination_steps"`
	ShortPathThreshold                     int           `yaml:"short_path_threshold"`
	ClickDelay                             time.Duration `yaml:"click_delay"`
}

// PreCacheConfig controls building matchers of neighbouring areas ahead of
// time.
type PreCacheConfig struct {
	Enabled         bool                `yaml:"pre_cache_connected_areas"`
	MultipleThreads bool                `yaml:"pre_cache_connected_areas_multiple_threads"`
	MaxParallel     int                 `yaml:"max_parallel"`
	ConnectedAreas  map[string][]string `yaml:"connected_areas"`
}

// CaptureConfig selects the framebuffer source.
type CaptureConfig struct {
	Source string `yaml:"source"` // "screen" or "file"
	File   string `yaml:"file"`
	Row    int    `yaml:"row"`
	Col    int    `yaml:"col"`
	Height int    `yaml:"height"`
	Width  int    `yaml:"width"`
}

// InputConfig holds input emitter and watchdog settings.
type InputConfig struct {
	Watchdog        bool          `yaml:"watchdog"`
	SampleInterval  time.Duration `yaml:"sample_interval"`
	Samples         int           `yaml:"samples"`
	MaxUniquePoints int           `yaml:"max_unique_points"`
	AutomapKey      string        `yaml:"automap_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DebugConfig controls debug image dumps.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Capture sources.
const (
	SourceScreen = "screen"
	SourceFile   = "file"
)

// Difficulties are the accepted game.difficulty values.
var Difficulties = []string{"normal", "nightmare", "hell"}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Game: GameConfig{
			Dir:        "game",
			Act:        1,
			Difficulty: "normal",
			Area:       "Blood Moor",
			TileMasks:  "data/tile_masks.yaml",
		},
		Matcher: MatcherConfig{
			MaxWindowsPerSpriteFrame:       12,
			MatchUniqueAndChampionMonsters: false,
			CacheDir:                       "cache/monster_matcher",
		},
		Movement: MovementConfig{
			WideStartSize:                          5,
			MaxNumTilesFromPathToMarkAsWalked:      20,
			NumRandomDestinationPointsToChooseFrom: 100,
			MaxMovementsBeforeAutomapPathRefresh:   5,
			MaxAutomapPathRefreshBeforeGameRefresh: 30,
			MinDestinationSteps:                    10,
			ShortPathThreshold:                     10,
			ClickDelay:                             400 * time.Millisecond,
		},
		PreCache: PreCacheConfig{
			Enabled:         false,
			MultipleThreads: false,
			MaxParallel:     2,
		},
		Capture: CaptureConfig{
			Source: SourceScreen,
			Height: 600,
			Width:  800,
		},
		Input: InputConfig{
			Watchdog:        true,
			SampleInterval:  10 * time.Millisecond,
			Samples:         100,
			MaxUniquePoints: 20,
			AutomapKey:      "tab",
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Debug: DebugConfig{
			Enabled: false,
			Dir:     "debug",
		},
	}
}

// Validate rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Game.Act < 1 || c.Game.Act > 5:
		return fmt.Errorf("%w: act %d", ErrInvalidConfig, c.Game.Act)
	case !slices.Contains(Difficulties, strings.ToLower(c.Game.Difficulty)):
		return fmt.Errorf("%w: difficulty %q", ErrInvalidConfig, c.Game.Difficulty)
	case c.Matcher.MaxWindowsPerSpriteFrame <= 0:
		return fmt.Errorf("%w: max_windows_per_sprite_frame must be positive", ErrInvalidConfig)
	case c.Movement.WideStartSize < 0:
		return fmt.Errorf("%w: wide_start_size is negative", ErrInvalidConfig)
	case c.Movement.MaxNumTilesFromPathToMarkAsWalked < 0:
		return fmt.Errorf("%w: max_num_tiles_from_path_to_mark_as_walked is negative", ErrInvalidConfig)
	case c.Movement.NumRandomDestinationPointsToChooseFrom <= 0:
		return fmt.Errorf("%w: num_random_destination_points_to_choose_from must be positive", ErrInvalidConfig)
	case c.Movement.MaxMovementsBeforeAutomapPathRefresh <= 0:
		return fmt.Errorf("%w: max_movements_before_automap_path_refresh must be positive", ErrInvalidConfig)
	case c.Movement.MinDestinationSteps < 0 || c.Movement.ShortPathThreshold < 0:
		return fmt.Errorf("%w: negative path length", ErrInvalidConfig)
	case c.Capture.Source != SourceScreen && c.Capture.Source != SourceFile:
		return fmt.Errorf("%w: capture source %q", ErrInvalidConfig, c.Capture.Source)
	case c.Capture.Source == SourceFile && c.Capture.File == "":
		return fmt.Errorf("%w: file capture needs a file", ErrInvalidConfig)
	case c.Capture.Height <= 0 || c.Capture.Width <= 0:
		return fmt.Errorf("%w: capture size %dx%d", ErrInvalidConfig, c.Capture.Height, c.Capture.Width)
	case c.Input.Watchdog && (c.Input.Samples <= 0 || c.Input.SampleInterval <= 0):
		return fmt.Errorf("%w: watchdog needs samples and an interval", ErrInvalidConfig)
	}
	return nil
}
