// Package main is the entry point for the d2sight agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/agent"
	"github.com/Faultbox/d2sight/internal/capture"
	"github.com/Faultbox/d2sight/internal/config"
	"github.com/Faultbox/d2sight/internal/debugdump"
	"github.com/Faultbox/d2sight/internal/input"
	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matcher/window"
	"github.com/Faultbox/d2sight/internal/mosaic"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// settleDelay is slept between moving the cursor and clicking.
const settleDelay = 80 * time.Millisecond

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.FileConfig{
			Path:       cfg.Logging.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== d2sight ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("agent stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("agent stopped normally")
}

// assetConfig loads the tile masks and the optional roster overrides.
func assetConfig(cfg *config.Config) (agent.AssetConfig, error) {
	difficulty, err := window.ParseDifficulty(cfg.Game.Difficulty)
	if err != nil {
		return agent.AssetConfig{}, err
	}
	masks, err := tilemask.Load(cfg.Game.TileMasks)
	if err != nil {
		return agent.AssetConfig{}, err
	}
	var roster window.Roster
	if cfg.Game.Roster != "" {
		if roster, err = window.LoadRoster(cfg.Game.Roster); err != nil {
			return agent.AssetConfig{}, err
		}
	}
	return agent.AssetConfig{
		Act:        cfg.Game.Act,
		Difficulty: difficulty,
		Masks:      masks,
		Roster:     roster,
		Cache:      window.NewCache(cfg.Matcher.CacheDir),
		Matcher: window.Options{
			Kind:                   window.KindArea,
			MaxWindowsPerFrame:     cfg.Matcher.MaxWindowsPerSpriteFrame,
			MatchUniqueAndChampion: cfg.Matcher.MatchUniqueAndChampionMonsters,
		},
	}, nil
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	set, err := archive.OpenGameDir(cfg.Game.Dir)
	if err != nil {
		return err
	}
	defer set.Close()

	ac, err := assetConfig(cfg)
	if err != nil {
		return err
	}
	assets, err := agent.LoadAssets(set, ac)
	if err != nil {
		return err
	}

	area := cfg.Game.Area
	monsters, err := assets.MonsterMatcher(area)
	if err != nil {
		return err
	}
	maps, err := assets.MapMatcher(area)
	if err != nil {
		return err
	}
	text, err := assets.TextReader()
	if err != nil {
		return err
	}

	stats := set.CacheStats()
	logger.Info("assets loaded",
		zap.Int("cache_hits", stats.Hits),
		zap.Int("cache_misses", stats.Misses),
		zap.Int("cache_bytes", stats.Bytes),
	)
	set.ReleaseCache()

	if cfg.PreCache.Enabled {
		preCache(ctx, assets, cfg.PreCache, area)
	}

	offset := geom.Pt(uint16(cfg.Capture.Row), uint16(cfg.Capture.Col))
	dims := geom.Pt(uint16(cfg.Capture.Height), uint16(cfg.Capture.Width))

	var (
		src     capture.Source
		emitter input.Emitter
	)
	switch cfg.Capture.Source {
	case config.SourceFile:
		// Replayed frames never react to input, so record it instead.
		src = capture.NewFileSource(cfg.Capture.File)
		emitter = input.NewRecorder()
	default:
		src = capture.NewScreenSource(0)
		robot := input.NewRobotEmitter(offset, dims, settleDelay)
		defer robot.ReleaseAll()
		emitter = robot

		if cfg.Input.Watchdog {
			wd := input.NewWatchdog(cfg.Input.SampleInterval, cfg.Input.Samples, cfg.Input.MaxUniquePoints)
			var cancel context.CancelFunc
			ctx, cancel = wd.Guard(ctx)
			defer cancel()
		}
	}

	var dumper *debugdump.Dumper
	if cfg.Debug.Enabled {
		dumper = debugdump.New(cfg.Debug.Dir, "d2sight")
	}

	a := agent.New(agent.Options{
		Planner: mosaic.Options{
			WideStartSize:       cfg.Movement.WideStartSize,
			MaxTilesToMark:      cfg.Movement.MaxNumTilesFromPathToMarkAsWalked,
			NumDestinations:     cfg.Movement.NumRandomDestinationPointsToChooseFrom,
			MinDestinationSteps: cfg.Movement.MinDestinationSteps,
			ShortPathThreshold:  cfg.Movement.ShortPathThreshold,
		},
		MaxMovements: cfg.Movement.MaxMovementsBeforeAutomapPathRefresh,
		MaxRefreshes: cfg.Movement.MaxAutomapPathRefreshBeforeGameRefresh,
		ClickDelay:   cfg.Movement.ClickDelay,
		AutomapKey:   cfg.Input.AutomapKey,
	}, agent.Deps{
		Frames:     capture.NewWindow(src, offset, dims),
		Emitter:    emitter,
		Contractor: assets.Contractor,
		Maps:       maps,
		Masks:      masks,
		Rand:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		Monsters:   monsters,
		Text:       text,
		Dumper:     dumper,
	})

	logger.Info("exploring",
		zap.String("area", area),
		zap.Int("act", cfg.Game.Act),
		zap.String("capture", cfg.Capture.Source))

	err = a.Explore(ctx)
	if cause := context.Cause(ctx); errors.Is(cause, input.ErrManualInterference) {
		return cause
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		return nil
	}
	return err
}

func preCache(ctx context.Context, assets *agent.Assets, cfg config.PreCacheConfig, area string) {
	areas := cfg.ConnectedAreas[area]
	if len(areas) == 0 {
		return
	}
	pc := assets.PreCacher(cfg.MultipleThreads, cfg.MaxParallel)

	if !cfg.MultipleThreads {
		if err := pc.Run(ctx, areas); err != nil {
			logger.Warn("pre-caching failed", zap.Error(err))
		}
		return
	}

	done := pc.Start(ctx, areas)
	go func() {
		if err := <-done; err != nil {
			logger.Warn("pre-caching failed", zap.Error(err))
		}
	}()
}
