package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/d2sight/pkg/palette"
)

// PL2 format errors.
var (
	ErrTruncatedPL2Data = errors.New("truncated PL2 data")
	ErrPaletteBankSize  = errors.New("unexpected palette bank size")
)

const (
	pl2ActPaletteBytes     = palette.Size * 4
	pl2LightRadiusStart    = 20 * palette.Size
	pl2LightRadiusEnd      = 34 * palette.Size
	pl2FontQualityOffset   = 439847
	pl2FontQualityPalettes = 10

	// RandTransformsSize is the byte length of the random-transform bank.
	RandTransformsSize = 30 * palette.Size
)

// pl2QualitySlots maps font-quality palette slots to item qualities.
var pl2QualitySlots = []struct {
	slot    int
	quality palette.Quality
}{
	{2, palette.Set},
	{3, palette.Magic},
	{4, palette.Unique},
	{5, palette.Grey},
	{8, palette.Rune},
	{9, palette.Rare},
}

// PL2 holds the parts of an act palette file the vision pipeline uses.
type PL2 struct {
	// Pixels is the act RGB palette.
	Pixels palette.PixelPalette

	// LightRadius are the light-radius shading palettes.
	LightRadius []palette.Palette

	// FontQualities are the text recolour palettes, common (neutral) first.
	FontQualities []palette.QualityPalette
}

// ParsePL2 parses an act palette file.
func ParsePL2(data []byte) (*PL2, error) {
	fontEnd := pl2FontQualityOffset + pl2FontQualityPalettes*palette.Size
	if len(data) < fontEnd {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrTruncatedPL2Data, len(data), fontEnd)
	}

	pl2 := &PL2{}

	// RGBx entries
	for i := range pl2.Pixels {
		off := i * 4
		pl2.Pixels[i] = palette.Pixel{R: data[off], G: data[off+1], B: data[off+2]}
	}

	light, err := palette.ExtractPalettes(data[pl2LightRadiusStart:pl2LightRadiusEnd])
	if err != nil {
		return nil, fmt.Errorf("extracting light radius palettes: %w", err)
	}
	pl2.LightRadius = light

	font := data[pl2FontQualityOffset:fontEnd]
	pl2.FontQualities = make([]palette.QualityPalette, 0, len(pl2QualitySlots)+1)
	pl2.FontQualities = append(pl2.FontQualities, palette.QualityPalette{
		Quality: palette.Common,
		Palette: palette.Neutral(),
	})
	for _, s := range pl2QualitySlots {
		pl2.FontQualities = append(pl2.FontQualities, palette.QualityPalette{
			Quality: s.quality,
			Palette: palette.FromBytes(font[s.slot*palette.Size:]),
		})
	}

	return pl2, nil
}

// ParsePL2File parses an act palette file from disk.
func ParsePL2File(path string) (*PL2, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PL2 file: %w", err)
	}
	return ParsePL2(data)
}

// ParsePaletteBank splits a palette bank such as palshift.dat into its
// 256-byte palettes.
func ParsePaletteBank(data []byte) ([]palette.Palette, error) {
	return palette.ExtractPalettes(data)
}

// ParseRandTransforms parses the random-transform palette bank, which must
// hold exactly 30 palettes.
func ParseRandTransforms(data []byte) ([]palette.Palette, error) {
	if len(data) != RandTransformsSize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrPaletteBankSize, len(data), RandTransformsSize)
	}
	return palette.ExtractPalettes(data)
}
