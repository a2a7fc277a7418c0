// Package debugdump writes debug images of frames and mosaics.
package debugdump

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/internal/mosaic"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Dumper writes timestamped BMP files into a directory.
type Dumper struct {
	outputDir string
	prefix    string
	now       func() time.Time

	mu  sync.Mutex
	seq int
}

// New creates a dumper writing into outputDir.
func New(outputDir, prefix string) *Dumper {
	return &Dumper{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Dir returns the output directory.
func (d *Dumper) Dir() string {
	return d.outputDir
}

// Filename generates the path of the next dump named name without saving.
// A sequence number keeps dumps taken within one millisecond apart.
func (d *Dumper) Filename(name string) string {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	timestamp := d.now().Format("2006-01-02_15-04-05.000")
	filename := fmt.Sprintf("%s_%s_%s_%04d.bmp", d.prefix, name, timestamp, seq)
	if d.outputDir != "" {
		filename = filepath.Join(d.outputDir, filename)
	}
	return filename
}

// Image saves img.
func (d *Dumper) Image(name string, img image.Image) (string, error) {
	// Create output directory if needed
	if d.outputDir != "" {
		if err := os.MkdirAll(d.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := d.Filename(name)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := bmp.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding BMP: %w", err)
	}

	return filename, nil
}

// Frame saves a captured RGB frame.
func (d *Dumper) Frame(name string, img *matrix.Image) (string, error) {
	return d.Image(name, img.RGBA())
}

// Matrix saves an indexed raster drawn with pixels.
func (d *Dumper) Matrix(name string, m *matrix.Matrix, pixels *palette.PixelPalette) (string, error) {
	return d.Frame(name, m.ToImage(pixels))
}

// Mosaic saves a mosaic with path drawn over it.
func (d *Dumper) Mosaic(name string, g *mosaic.Grid, path []geom.PointU16) (string, error) {
	return d.Image(name, g.Image(path))
}
