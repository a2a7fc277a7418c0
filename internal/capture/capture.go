// Package capture grabs frames of the game window.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

var (
	// ErrCaptureFailed is returned when no frame could be taken.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrWouldBlock signals that a frame is not ready yet.
	ErrWouldBlock = errors.New("frame not ready")
)

// Source produces RGB frames of a screen area.
type Source interface {
	Capture(ctx context.Context, area geom.Box) (*matrix.Image, error)
}

// Window captures a fixed area of the screen, typically the game window.
type Window struct {
	Source Source
	Area   geom.Box
}

// NewWindow returns a Window over src.
func NewWindow(src Source, offset, dims geom.PointU16) *Window {
	return &Window{Source: src, Area: geom.Box{Offset: offset, Dims: dims}}
}

// Frame captures the window area.
func (w *Window) Frame(ctx context.Context) (*matrix.Image, error) {
	img, err := w.Source.Capture(ctx, w.Area)
	if err != nil {
		return nil, err
	}
	if img.Dims != w.Area.Dims {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrCaptureFailed, img.Dims, w.Area.Dims)
	}
	return img, nil
}

func crop(img *matrix.Image, area geom.Box) (*matrix.Image, error) {
	if area.Offset == (geom.PointU16{}) && area.Dims == img.Dims {
		return img, nil
	}
	out, err := img.Crop(area)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return out, nil
}
