// Package palette implements 256-entry index permutations and the
// 24-bit colour to palette index contraction used at screenshot ingress.
package palette

import (
	"errors"
	"fmt"
)

// Size is the number of entries in a palette.
const Size = 256

// ErrPaletteSize is returned when palette bytes are not a multiple of Size.
var ErrPaletteSize = errors.New("palette data is not a multiple of 256 bytes")

// Palette maps an 8-bit raster index to another 8-bit index.
type Palette [Size]byte

// Neutral returns the identity palette.
func Neutral() Palette {
	var p Palette
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

// IsNeutral reports whether p is the identity palette.
func (p *Palette) IsNeutral() bool {
	for i, v := range p {
		if int(v) != i {
			return false
		}
	}
	return true
}

// Transform maps a single index.
func (p *Palette) Transform(v byte) byte {
	return p[v]
}

// TransformSlice maps every byte of data into a new slice.
func (p *Palette) TransformSlice(data []byte) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = p[v]
	}
	return out
}

// Compose returns the palette i -> a[b[i]], i.e. b applied first.
func Compose(a, b Palette) Palette {
	var out Palette
	for i := range out {
		out[i] = a[b[i]]
	}
	return out
}

// CombineMultiple composes every palette of as with every palette of bs.
// The result is ordered with bs varying fastest.
func CombineMultiple(as, bs []Palette) []Palette {
	out := make([]Palette, 0, len(as)*len(bs))
	for _, a := range as {
		for _, b := range bs {
			out = append(out, Compose(a, b))
		}
	}
	return out
}

// FromBytes copies the first 256 bytes of data into a palette. Shorter input
// leaves the remaining entries zero.
func FromBytes(data []byte) Palette {
	var p Palette
	copy(p[:], data)
	return p
}

// ExtractPalettes splits data into consecutive 256-byte palettes.
func ExtractPalettes(data []byte) ([]Palette, error) {
	if len(data)%Size != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrPaletteSize, len(data))
	}
	out := make([]Palette, 0, len(data)/Size)
	for off := 0; off < len(data); off += Size {
		out = append(out, FromBytes(data[off:off+Size]))
	}
	return out, nil
}

// Bytes flattens palettes into one contiguous slice.
func Bytes(palettes []Palette) []byte {
	out := make([]byte, 0, len(palettes)*Size)
	for i := range palettes {
		out = append(out, palettes[i][:]...)
	}
	return out
}
