// Package agent runs the perception loop: capture a frame, read the map,
// monsters and item names off it, and walk the mosaic planner's paths.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/debugdump"
	"github.com/Faultbox/d2sight/internal/input"
	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/mapmatch"
	"github.com/Faultbox/d2sight/internal/matcher/window"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/internal/mosaic"
	"github.com/Faultbox/d2sight/internal/textread"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// ErrUnknownArea is returned for areas missing from the roster.
var ErrUnknownArea = errors.New("unknown area")

// Framer captures frames of the game window.
type Framer interface {
	Frame(ctx context.Context) (*matrix.Image, error)
}

// MapMatcher finds automap sprites on a frame.
type MapMatcher interface {
	Match(img *matrix.Matrix) mapmatch.Sprites
}

// Options tune the coordinator.
type Options struct {
	Planner mosaic.Options

	// MaxMovements caps the clicks walked per planned path.
	MaxMovements int

	// MaxRefreshes is the number of plan, walk and stitch rounds per Explore.
	MaxRefreshes int

	// ClickDelay is waited after every walking click.
	ClickDelay time.Duration

	// AutomapKey, when set, is pressed once before exploring.
	AutomapKey string
}

// Deps are the collaborators of an Agent. Monsters, Text and Dumper are
// optional.
type Deps struct {
	Frames     Framer
	Emitter    input.Emitter
	Contractor *palette.Contractor
	Maps       MapMatcher
	Masks      *tilemask.Index
	Rand       geom.Rand
	Monsters   *window.Tree
	Text       *textread.Reader
	Dumper     *debugdump.Dumper
}

// Percepts is what one frame shows.
type Percepts struct {
	Frame      *matrix.Matrix
	MapSprites mapmatch.Sprites
	Monsters   []window.Match
	Items      []textread.Item
}

// Agent coordinates perception, planning and input.
type Agent struct {
	opts Options
	deps Deps

	planner *mosaic.Planner
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates an agent.
func New(opts Options, deps Deps) *Agent {
	return &Agent{opts: opts, deps: deps, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Planner returns the current mosaic planner, nil before Explore.
func (a *Agent) Planner() *mosaic.Planner {
	return a.planner
}

// Tick captures one frame and runs every configured matcher over it.
func (a *Agent) Tick(ctx context.Context) (*Percepts, error) {
	start := time.Now()
	img, err := a.deps.Frames.Frame(ctx)
	if err != nil {
		return nil, err
	}

	m := img.ToMatrix(a.deps.Contractor)
	p := &Percepts{Frame: m, MapSprites: a.deps.Maps.Match(m)}
	if a.deps.Monsters != nil {
		p.Monsters = a.deps.Monsters.Lookup(m)
	}
	if a.deps.Text != nil {
		p.Items = a.deps.Text.Read(m)
	}

	logger.Debug("tick",
		zap.Int("map_sprites", p.MapSprites.Count()),
		zap.Int("monsters", len(p.Monsters)),
		zap.Int("items", len(p.Items)),
		zap.Duration("elapsed", time.Since(start)))
	return p, nil
}

// Walk clicks each point and waits the click delay after it.
func (a *Agent) Walk(ctx context.Context, points []geom.PointU16) error {
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.deps.Emitter.MouseClick(p, input.Left); err != nil {
			return err
		}
		if err := a.sleep(ctx, a.opts.ClickDelay); err != nil {
			return err
		}
	}
	return nil
}

// Explore starts a fresh mosaic and runs MaxRefreshes rounds of Step.
func (a *Agent) Explore(ctx context.Context) error {
	if a.opts.AutomapKey != "" {
		if err := a.deps.Emitter.KeyClick(a.opts.AutomapKey); err != nil {
			return err
		}
	}

	p, err := a.Tick(ctx)
	if err != nil {
		return err
	}
	a.planner = mosaic.NewPlanner(a.opts.Planner, a.deps.Masks, a.deps.Rand, p.MapSprites)

	for i := 0; i < a.opts.MaxRefreshes; i++ {
		logger.Debug("automap refresh", zap.Int("round", i+1), zap.Int("of", a.opts.MaxRefreshes))
		if err := a.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Step plans a path, walks its first clicks and stitches the next frame into
// the mosaic. Planner failures restart the mosaic instead of failing.
func (a *Agent) Step(ctx context.Context) error {
	if a.planner == nil {
		return errors.New("agent: Step before Explore")
	}

	path, err := a.planner.Plan()
	if errors.Is(err, mosaic.ErrNoDestination) || errors.Is(err, mosaic.ErrNoPath) {
		logger.Warn("no path, restarting mosaic", zap.Error(err))
		return a.restart(ctx)
	}
	if err != nil {
		return err
	}
	a.dumpMosaic("planned_path", path)

	points := ClickPoints(path)
	points = points[:min(len(points), a.opts.MaxMovements)]
	if err := a.Walk(ctx, points); err != nil {
		return err
	}

	p, err := a.Tick(ctx)
	if err != nil {
		return err
	}
	if _, err := a.planner.Update(p.MapSprites); err != nil {
		if !errors.Is(err, mosaic.ErrMapsNotConnected) {
			return err
		}
		logger.Info("could not connect last location to current one, resetting map", zap.Error(err))
		a.planner.Reset(p.MapSprites)
		return nil
	}
	a.dumpMosaic("stitched", nil)
	return nil
}

func (a *Agent) restart(ctx context.Context) error {
	p, err := a.Tick(ctx)
	if err != nil {
		return err
	}
	a.planner.Reset(p.MapSprites)
	return nil
}

func (a *Agent) dumpMosaic(name string, path []geom.PointU16) {
	if a.deps.Dumper == nil {
		return
	}
	if _, err := a.deps.Dumper.Mosaic(name, a.planner.Grid(), path); err != nil {
		logger.Warn("debug dump failed", zap.String("name", name), zap.Error(err))
	}
}
