package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// RetryDelay is the pause between attempts while a frame is not ready.
const RetryDelay = time.Millisecond

// DefaultRetries bounds the attempts of a single capture.
const DefaultRetries = 1000

// ScreenSource captures the primary display.
type ScreenSource struct {
	// Display is the index of the captured display.
	Display int

	// Retries bounds the attempts of one capture.
	Retries int

	grab   func(image.Rectangle) (*image.RGBA, error)
	bounds func(display int) image.Rectangle
}

// NewScreenSource returns a source for the given display.
func NewScreenSource(display int) *ScreenSource {
	return &ScreenSource{
		Display: display,
		Retries: DefaultRetries,
		grab:    screenshot.CaptureRect,
		bounds:  screenshot.GetDisplayBounds,
	}
}

// Displays returns the number of active displays.
func Displays() int {
	return screenshot.NumActiveDisplays()
}

// Capture grabs area, relative to the display origin. Attempts that fail or
// return an empty frame are retried every RetryDelay.
func (s *ScreenSource) Capture(ctx context.Context, area geom.Box) (*matrix.Image, error) {
	origin := s.bounds(s.Display).Min
	rect := image.Rect(
		origin.X+int(area.Offset.Col),
		origin.Y+int(area.Offset.Row),
		origin.X+int(area.Offset.Col)+int(area.Dims.Col),
		origin.Y+int(area.Offset.Row)+int(area.Dims.Row),
	)

	var lastErr error
	for attempt := 0; attempt < max(s.Retries, 1); attempt++ {
		rgba, err := s.grab(rect)
		if err == nil && rgba != nil && !rgba.Rect.Empty() {
			return matrix.FromImage(rgba), nil
		}
		if err == nil {
			err = ErrWouldBlock
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(RetryDelay):
		}
	}

	logger.Warn("screen capture failed",
		zap.Int("display", s.Display),
		zap.Int("retries", s.Retries),
		zap.Error(lastErr))
	return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, lastErr)
}
