package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// gradient paints pixel (x, y) as R=x, G=y, B=7.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 0xFF})
		}
	}
	return img
}

func fakeScreen(failures int, err error) (*ScreenSource, *[]image.Rectangle) {
	var rects []image.Rectangle
	s := &ScreenSource{
		Retries: 5,
		bounds: func(int) image.Rectangle {
			return image.Rect(100, 50, 1100, 850)
		},
	}
	s.grab = func(r image.Rectangle) (*image.RGBA, error) {
		rects = append(rects, r)
		if len(rects) <= failures {
			return nil, err
		}
		return gradient(r.Dx(), r.Dy()), nil
	}
	return s, &rects
}

func TestScreenSourceCapture(t *testing.T) {
	s, rects := fakeScreen(0, nil)
	area := geom.Box{Offset: geom.Pt(10, 20), Dims: geom.Pt(3, 4)}

	img, err := s.Capture(context.Background(), area)
	require.NoError(t, err)
	require.Len(t, *rects, 1)
	assert.Equal(t, image.Rect(120, 60, 124, 63), (*rects)[0])
	assert.Equal(t, geom.Pt(3, 4), img.Dims)
	assert.Equal(t, palette.Pixel{R: 3, G: 2, B: 7}, img.At(geom.Pt(2, 3)))
}

func TestScreenSourceRetries(t *testing.T) {
	s, rects := fakeScreen(2, ErrWouldBlock)
	img, err := s.Capture(context.Background(), geom.Box{Dims: geom.Pt(2, 2)})
	require.NoError(t, err)
	assert.Len(t, *rects, 3)
	assert.Equal(t, geom.Pt(2, 2), img.Dims)
}

func TestScreenSourceGivesUp(t *testing.T) {
	boom := errors.New("no display")
	s, rects := fakeScreen(100, boom)

	_, err := s.Capture(context.Background(), geom.Box{Dims: geom.Pt(2, 2)})
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, *rects, 5)
}

func TestScreenSourceCancelled(t *testing.T) {
	s, _ := fakeScreen(100, ErrWouldBlock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Capture(ctx, geom.Box{Dims: geom.Pt(2, 2)})
	assert.ErrorIs(t, err, context.Canceled)
}

func writeFrame(t *testing.T, dir, name string, shade uint8) string {
	t.Helper()
	img := gradient(8, 6)
	img.Set(0, 0, color.RGBA{R: shade, G: shade, B: shade, A: 0xFF})
	path := filepath.Join(dir, name)
	require.NoError(t, WriteBMP(path, img))
	return path
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	first := writeFrame(t, dir, "a.bmp", 200)
	second := writeFrame(t, dir, "b.bmp", 100)

	src := NewFileSource(first, second)
	ctx := context.Background()
	full := geom.Box{Dims: geom.Pt(6, 8)}

	img, err := src.Capture(ctx, full)
	require.NoError(t, err)
	assert.Equal(t, palette.Pixel{R: 200, G: 200, B: 200}, img.At(geom.Pt(0, 0)))
	assert.Equal(t, palette.Pixel{R: 7, G: 5, B: 7}, img.At(geom.Pt(5, 7)))

	for range 2 {
		img, err = src.Capture(ctx, full)
		require.NoError(t, err)
		assert.Equal(t, palette.Pixel{R: 100, G: 100, B: 100}, img.At(geom.Pt(0, 0)))
	}

	img, err = src.Capture(ctx, geom.Box{Offset: geom.Pt(1, 2), Dims: geom.Pt(2, 3)})
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(2, 3), img.Dims)
	assert.Equal(t, palette.Pixel{R: 2, G: 1, B: 7}, img.At(geom.Pt(0, 0)))

	_, err = src.Capture(ctx, geom.Box{Dims: geom.Pt(7, 8)})
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.ErrorIs(t, err, matrix.ErrOutOfBounds)
}

func TestFileSourceErrors(t *testing.T) {
	ctx := context.Background()
	area := geom.Box{Dims: geom.Pt(1, 1)}

	_, err := NewFileSource().Capture(ctx, area)
	assert.ErrorIs(t, err, ErrCaptureFailed)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.bmp")).Capture(ctx, area)
	assert.ErrorIs(t, err, ErrCaptureFailed)
}

func TestWindowFrame(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(writeFrame(t, dir, "a.bmp", 9))

	w := NewWindow(src, geom.Pt(1, 1), geom.Pt(4, 5))
	img, err := w.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(4, 5), img.Dims)
	assert.Equal(t, palette.Pixel{R: 1, G: 1, B: 7}, img.At(geom.Pt(0, 0)))
}
