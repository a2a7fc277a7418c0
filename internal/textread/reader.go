package textread

import (
	"cmp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matcher/trie"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Gaps between glyphs, in pixels from the previous glyph's right edge.
const (
	ItemGap = 10
	WordGap = 3
)

// Glyph is the payload of one font pattern.
type Glyph struct {
	Char    rune
	Width   uint16
	Quality palette.Quality
}

// GlyphHit is a glyph found at a screen point.
type GlyphHit struct {
	Point geom.PointU16
	Glyph
}

// Item is one line of text in a single quality colour.
type Item struct {
	Name    string
	Quality palette.Quality
	Point   geom.PointU16
}

// Reader matches every alphabet glyph in every quality colour.
type Reader struct {
	matcher *trie.Matcher[Glyph]
}

// NewReader builds the glyph trie. Glyph colourings that coincide with an
// earlier one are skipped.
func NewReader(font *Font, qualities []palette.QualityPalette) (*Reader, error) {
	var patterns []trie.Pattern[Glyph]
	seen := make(map[string]bool)

	for _, c := range Alphabet {
		glyph := font.Glyphs[c]
		for _, q := range qualities {
			m := glyph.Transform(&q.Palette)
			if seen[string(m.Data)] {
				logger.Debug("skipping duplicate glyph",
					zap.String("char", string(c)),
					zap.Stringer("quality", q.Quality))
				continue
			}
			seen[string(m.Data)] = true
			patterns = append(patterns, trie.Pattern[Glyph]{
				Matrix:  m,
				Payload: Glyph{Char: c, Width: font.Widths[c], Quality: q.Quality},
			})
		}
	}

	m, err := trie.New(patterns)
	if err != nil {
		return nil, err
	}
	return &Reader{matcher: m}, nil
}

// Glyphs returns every glyph found in img, including glyphs whose padding
// would run past the bottom or right edge.
func (r *Reader) Glyphs(img *matrix.Matrix) []GlyphHit {
	hits := r.matcher.Lookup(padForGlyphs(img, r.matcher.Dims()))
	out := make([]GlyphHit, len(hits))
	for i, h := range hits {
		out[i] = GlyphHit{Point: h.Offset, Glyph: h.Payload}
	}
	return out
}

// padForGlyphs extends img with transparent rows and columns so every glyph
// window can start at any pixel of img. Inked glyph cells never match the
// transparent margin.
func padForGlyphs(img *matrix.Matrix, glyph geom.PointU16) *matrix.Matrix {
	if glyph.Row == 0 || glyph.Col == 0 {
		return img
	}
	dims, ok := img.Dims.CheckedAdd(glyph.Sub(geom.Pt(1, 1)))
	if !ok {
		return img
	}
	padded := matrix.Empty(dims)
	if err := padded.Insert(geom.PointU16{}, img); err != nil {
		return img
	}
	return padded
}

// Read returns the text items in img sorted by origin.
func (r *Reader) Read(img *matrix.Matrix) []Item {
	return Group(r.Glyphs(img))
}

// ReadArea reads the items inside area; points stay in img coordinates.
func (r *Reader) ReadArea(img *matrix.Matrix, area geom.Box) ([]Item, error) {
	sub, err := img.Sub(area)
	if err != nil {
		return nil, err
	}
	items := r.Read(sub)
	for i := range items {
		items[i].Point = items[i].Point.Add(area.Offset)
	}
	return items, nil
}

// Group joins glyph hits into items. Hits of each quality are taken in
// reading order; a new item starts on a row change or a gap wider than
// ItemGap, and a gap wider than WordGap inserts a space.
func Group(hits []GlyphHit) []Item {
	byQuality := make(map[palette.Quality][]GlyphHit)
	for _, h := range hits {
		byQuality[h.Quality] = append(byQuality[h.Quality], h)
	}

	var items []Item
	for q, glyphs := range byQuality {
		slices.SortStableFunc(glyphs, func(a, b GlyphHit) int {
			return a.Point.Compare(b.Point)
		})

		var name strings.Builder
		start := glyphs[0].Point
		prev := glyphs[0]

		for _, g := range glyphs {
			gap := int(g.Point.Col) - (int(prev.Point.Col) + int(prev.Width))

			if g.Point.Row != prev.Point.Row || (gap > ItemGap && name.Len() > 0) {
				items = append(items, Item{Name: name.String(), Quality: q, Point: start})
				name.Reset()
				start = g.Point
			} else if gap > WordGap && name.Len() > 0 {
				name.WriteByte(' ')
			}

			name.WriteRune(g.Char)
			prev = g
		}
		items = append(items, Item{Name: name.String(), Quality: q, Point: start})
	}

	slices.SortFunc(items, func(a, b Item) int {
		if c := a.Point.Compare(b.Point); c != 0 {
			return c
		}
		return cmp.Compare(a.Quality, b.Quality)
	})
	return items
}
