package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// FileSource replays recorded BMP frames. Each capture returns the next
// frame; the last one repeats once the list is exhausted.
type FileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileSource returns a source replaying paths in order.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Capture decodes the next frame and crops area out of it.
func (s *FileSource) Capture(ctx context.Context, area geom.Box) (*matrix.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.paths) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no frames to replay", ErrCaptureFailed)
	}
	path := s.paths[s.next]
	if s.next < len(s.paths)-1 {
		s.next++
	}
	s.mu.Unlock()

	img, err := ReadBMP(path)
	if err != nil {
		return nil, err
	}
	return crop(img, area)
}

// ReadBMP decodes a BMP file into an RGB image.
func ReadBMP(path string) (*matrix.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	defer f.Close()

	src, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCaptureFailed, path, err)
	}
	return matrix.FromImage(src), nil
}

// WriteBMP encodes img as a BMP file.
func WriteBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
