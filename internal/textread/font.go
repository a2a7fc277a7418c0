// Package textread reads item names and other labels off a screenshot by
// matching font glyphs in every item-quality colour.
package textread

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Alphabet lists the characters the reader recognizes.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ':/"

var ErrMissingGlyph = errors.New("font has no glyph")

// Font maps characters to glyph rasters. All glyphs share one size; Widths
// holds the inked width of each glyph before padding.
type Font struct {
	Glyphs map[rune]*matrix.Matrix
	Widths map[rune]uint16
}

// FontFromDC6 takes the glyph of every printable ASCII character from the
// first direction of a font sprite, frame index = character code.
func FontFromDC6(dc6 *formats.DC6) (*Font, error) {
	if len(dc6.Directions) == 0 {
		return nil, fmt.Errorf("%w: no directions", ErrMissingGlyph)
	}
	frames := dc6.Directions[0].Frames

	raw := make(map[rune]*matrix.Matrix)
	for c := rune(0); c < 128; c++ {
		if unicode.IsControl(c) || int(c) >= len(frames) {
			continue
		}
		m, err := matrix.FromDC6Frame(&frames[c])
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", c, err)
		}
		raw[c] = m
	}
	return NewFont(raw)
}

// NewFont pads glyphs to the size of the largest one, anchored top-left.
func NewFont(glyphs map[rune]*matrix.Matrix) (*Font, error) {
	var dims geom.PointU16
	for _, c := range Alphabet {
		g, ok := glyphs[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingGlyph, c)
		}
		dims.Row = max(dims.Row, g.Dims.Row)
		dims.Col = max(dims.Col, g.Dims.Col)
	}

	f := &Font{
		Glyphs: make(map[rune]*matrix.Matrix, len(Alphabet)),
		Widths: make(map[rune]uint16, len(Alphabet)),
	}
	for _, c := range Alphabet {
		g := glyphs[c]
		padded := matrix.Empty(dims)
		if err := padded.Insert(geom.PointU16{}, g); err != nil {
			return nil, err
		}
		f.Glyphs[c] = padded
		f.Widths[c] = g.NonZeroWidth()
	}
	return f, nil
}
