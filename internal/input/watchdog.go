package input

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
)

// ErrManualInterference is the cancel cause when the cursor moves more than
// the agent moves it.
var ErrManualInterference = errors.New("manual mouse movement detected")

type cursorPoint struct{ x, y int }

// Watchdog samples the cursor and trips when too many distinct positions
// appear within its sample ring.
type Watchdog struct {
	Cursor    func() (x, y int)
	Interval  time.Duration
	Samples   int
	MaxUnique int

	ring   []cursorPoint
	counts map[cursorPoint]int
	next   int
}

// NewWatchdog creates a watchdog over the OS cursor.
func NewWatchdog(interval time.Duration, samples, maxUnique int) *Watchdog {
	return &Watchdog{
		Cursor:    CursorPosition,
		Interval:  interval,
		Samples:   samples,
		MaxUnique: maxUnique,
	}
}

func (w *Watchdog) reset(p cursorPoint) {
	w.ring = make([]cursorPoint, max(w.Samples, 1))
	for i := range w.ring {
		w.ring[i] = p
	}
	w.counts = map[cursorPoint]int{p: len(w.ring)}
	w.next = 0
}

// sample replaces the oldest ring entry and reports the number of distinct
// positions in the ring.
func (w *Watchdog) sample(p cursorPoint) int {
	old := w.ring[w.next]
	if w.counts[old] <= 1 {
		delete(w.counts, old)
	} else {
		w.counts[old]--
	}
	w.ring[w.next] = p
	w.counts[p]++
	w.next = (w.next + 1) % len(w.ring)
	return len(w.counts)
}

// Watch samples the cursor until ctx is done or interference is detected.
func (w *Watchdog) Watch(ctx context.Context) error {
	x, y := w.Cursor()
	w.reset(cursorPoint{x, y})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.Interval):
		}

		x, y := w.Cursor()
		if unique := w.sample(cursorPoint{x, y}); unique > w.MaxUnique {
			logger.Warn("stopping on manual mouse movement",
				zap.Int("unique_points", unique),
				zap.Int("samples", len(w.ring)))
			return ErrManualInterference
		}
	}
}

// Guard runs the watchdog in the background and returns a context that is
// cancelled with ErrManualInterference when it trips.
func (w *Watchdog) Guard(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		if err := w.Watch(ctx); errors.Is(err, ErrManualInterference) {
			cancel(err)
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}
