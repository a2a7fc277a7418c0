// Package precache builds the monster matchers of neighbouring areas before
// the agent walks into them.
package precache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matcher/window"
)

// BuildFunc builds the monster matcher of one area.
type BuildFunc func(area string) (*window.Tree, error)

// PreCacher stores matchers for areas that have none cached yet.
type PreCacher struct {
	Cache *window.Cache
	Build BuildFunc

	// NewBuild, when set, makes a fresh BuildFunc for every parallel
	// build so workers share no reader state.
	NewBuild func() BuildFunc

	// Parallel builds areas concurrently, at most MaxParallel at a time
	// (unbounded when MaxParallel <= 0).
	Parallel    bool
	MaxParallel int
}

// Missing returns the areas without a complete cache, in order.
func (p *PreCacher) Missing(areas []string) []string {
	var out []string
	seen := make(map[string]bool, len(areas))
	for _, a := range areas {
		if seen[a] || p.Cache.Has(a) {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Run builds and stores every missing area. A failing area does not stop the
// others; all failures are combined into the returned error.
func (p *PreCacher) Run(ctx context.Context, areas []string) error {
	missing := p.Missing(areas)
	if len(missing) == 0 {
		return nil
	}

	if !p.Parallel {
		var errs error
		for _, area := range missing {
			if err := ctx.Err(); err != nil {
				return multierr.Append(errs, err)
			}
			errs = multierr.Append(errs, p.cacheArea(area, p.Build))
		}
		return errs
	}

	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(ctx)
	if p.MaxParallel > 0 {
		g.SetLimit(p.MaxParallel)
	}
	for _, area := range missing {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			build := p.Build
			if p.NewBuild != nil {
				build = p.NewBuild()
			}
			if err := p.cacheArea(area, build); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	return multierr.Append(errs, g.Wait())
}

// Start runs in the background. The channel yields Run's result once.
func (p *PreCacher) Start(ctx context.Context, areas []string) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, areas)
		close(done)
	}()
	return done
}

func (p *PreCacher) cacheArea(area string, build BuildFunc) error {
	start := time.Now()
	log := logger.Named("precache").With(zap.String("area", area))
	log.Info("pre-caching area")

	t, err := build(area)
	if err != nil {
		return fmt.Errorf("pre-caching %s: %w", area, err)
	}
	if err := p.Cache.Save(area, t); err != nil {
		return fmt.Errorf("pre-caching %s: %w", area, err)
	}

	log.Debug("pre-cached area", zap.Duration("elapsed", time.Since(start)))
	return nil
}
