package matrix

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Image is a row-major 24-bit RGB raster, as captured from the game window.
type Image struct {
	Dims   geom.PointU16
	Pixels []palette.Pixel
}

// NewImage returns a black image.
func NewImage(dims geom.PointU16) *Image {
	return &Image{Dims: dims, Pixels: make([]palette.Pixel, dims.Area())}
}

// FromImage converts any image.Image into an RGB raster.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := NewImage(geom.Pt(uint16(b.Dy()), uint16(b.Dx())))

	if rgba, ok := src.(*image.RGBA); ok {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := rgba.PixOffset(b.Min.X, y)
			for x := 0; x < b.Dx(); x++ {
				p := rgba.Pix[off+x*4 : off+x*4+3]
				img.Pixels[i] = palette.Pixel{R: p[0], G: p[1], B: p[2]}
				i++
			}
		}
		return img
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(src.At(x, y)).(color.RGBA)
			img.Pixels[i] = palette.Pixel{R: c.R, G: c.G, B: c.B}
			i++
		}
	}
	return img
}

// At returns the pixel at p.
func (img *Image) At(p geom.PointU16) palette.Pixel {
	return img.Pixels[int(p.Row)*int(img.Dims.Col)+int(p.Col)]
}

// ToMatrix contracts the image into palette indices.
func (img *Image) ToMatrix(c *palette.Contractor) *Matrix {
	return &Matrix{Dims: img.Dims, Data: c.ContractSlice(img.Pixels)}
}

// Crop copies the area into a new image.
func (img *Image) Crop(area geom.Box) (*Image, error) {
	if int(area.Offset.Row)+int(area.Dims.Row) > int(img.Dims.Row) ||
		int(area.Offset.Col)+int(area.Dims.Col) > int(img.Dims.Col) {
		return nil, fmt.Errorf("%w: %v+%v in %v", ErrOutOfBounds, area.Offset, area.Dims, img.Dims)
	}
	out := NewImage(area.Dims)
	for r := 0; r < int(area.Dims.Row); r++ {
		src := (int(area.Offset.Row)+r)*int(img.Dims.Col) + int(area.Offset.Col)
		copy(out.Pixels[r*int(area.Dims.Col):(r+1)*int(area.Dims.Col)], img.Pixels[src:src+int(area.Dims.Col)])
	}
	return out, nil
}

// DiffRatio returns the fraction of pixels that differ between two images of
// equal size.
func (img *Image) DiffRatio(o *Image) (float64, error) {
	if len(img.Pixels) != len(o.Pixels) {
		return 0, fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, img.Dims, o.Dims)
	}
	if len(img.Pixels) == 0 {
		return 0, nil
	}
	diff := 0
	for i := range img.Pixels {
		if img.Pixels[i] != o.Pixels[i] {
			diff++
		}
	}
	return float64(diff) / float64(len(img.Pixels)), nil
}

// RGBA converts the image for encoding.
func (img *Image) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, int(img.Dims.Col), int(img.Dims.Row)))
	for i, p := range img.Pixels {
		out.Pix[i*4] = p.R
		out.Pix[i*4+1] = p.G
		out.Pix[i*4+2] = p.B
		out.Pix[i*4+3] = 0xFF
	}
	return out
}
