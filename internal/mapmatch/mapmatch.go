// Package mapmatch finds automap sprites on a screenshot of the overlay map
// and reports them on the tile grid.
package mapmatch

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matcher/trie"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/encoding"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Step is the automap tile lattice in screen pixels.
var Step = geom.Pt(4, 8)

// MiddleArea is the screen region used to find the lattice phase.
var MiddleArea = geom.Box{Offset: geom.Pt(200, 304), Dims: geom.Pt(200, 200)}

// MinMatchRatio is the share of a sprite's pixels that must be visible.
const MinMatchRatio = 0.2

// Screen margins where the game UI hides the overlay.
const (
	edgeTop    = 8
	edgeLeft   = 16
	edgeRight  = 8
	edgeBottom = 553

	minRow = 16
	maxRow = 520
	minCol = 16
	maxCol = 776
)

var ErrNoSprites = errors.New("area has no automap sprites")

// Sprites maps a sprite id to the tile points it was seen at.
type Sprites map[uint32][]geom.PointU16

// Count returns the number of matches.
func (s Sprites) Count() int {
	n := 0
	for _, points := range s {
		n += len(points)
	}
	return n
}

// Assets reads logical asset paths.
type Assets interface {
	ReadFirst(path string, names ...string) ([]byte, error)
}

// Matcher matches the automap sprites of one area.
type Matcher struct {
	trie *trie.Matcher[uint32]
}

// Load builds the matcher of an area from the AutoMap table and the MaxiMap
// sprite sheet.
func Load(assets Assets, area string) (*Matcher, error) {
	text, err := assets.ReadFirst(archive.AutoMapPath)
	if err != nil {
		return nil, err
	}
	table, err := formats.ParseAutoMap(encoding.TableToUTF8(text))
	if err != nil {
		return nil, err
	}

	data, err := assets.ReadFirst(archive.MaxiMapPath)
	if err != nil {
		return nil, err
	}
	sheet, err := formats.ParseDC6(data)
	if err != nil {
		return nil, fmt.Errorf("parsing automap sprites: %w", err)
	}

	return New(sheet, table.SpriteIDs(area))
}

// New builds a matcher over the given frames of the first direction of
// sheet. Frames repeating an earlier one and fully transparent frames are
// skipped.
func New(sheet *formats.DC6, ids []uint32) (*Matcher, error) {
	if len(sheet.Directions) == 0 {
		return nil, ErrNoSprites
	}
	frames := sheet.Directions[0].Frames

	var patterns []trie.Pattern[uint32]
	seen := make(map[string]bool)

	for _, id := range ids {
		if int(id) >= len(frames) {
			logger.Warn("automap sprite out of range", zap.Uint32("id", id), zap.Int("frames", len(frames)))
			continue
		}
		m, err := matrix.FromDC6Frame(&frames[id])
		if err != nil {
			return nil, fmt.Errorf("automap sprite %d: %w", id, err)
		}
		if seen[string(m.Data)] || m.NonZeroWidth() == 0 {
			continue
		}
		seen[string(m.Data)] = true
		patterns = append(patterns, trie.Pattern[uint32]{Matrix: m, Payload: id})
	}

	if len(patterns) == 0 {
		return nil, ErrNoSprites
	}

	t, err := trie.New(patterns)
	if err != nil {
		return nil, err
	}
	logger.Debug("automap matcher built", zap.Int("sprites", t.Len()))
	return &Matcher{trie: t}, nil
}

// Match finds the automap sprites on img, a screenshot of the overlay map.
func (m *Matcher) Match(img *matrix.Matrix) Sprites {
	phase := m.Phase(img)

	mask := EdgeMask(img.Dims)
	hits := m.trie.LookupOverlap(img, mask, m.lattice(img, phase), MinMatchRatio)

	slices.SortStableFunc(hits, func(a, b trie.Hit[uint32]) int {
		return a.Offset.Compare(b.Offset)
	})

	sprites := make(Sprites)
	for _, h := range hits {
		p := h.Offset
		if p.Row < minRow || p.Row > maxRow || p.Col < minCol || p.Col > maxCol {
			continue
		}
		sprites[h.Payload] = append(sprites[h.Payload], p.Div(Step))
	}
	return sprites
}

// Phase returns the lattice offset within one step at which the middle of
// the screen matches the most sprites. Later phases win ties.
func (m *Matcher) Phase(img *matrix.Matrix) geom.PointU16 {
	var best geom.PointU16
	bestCount := -1

	for _, p := range Step.Points() {
		offsets := MiddleArea.Shift(p).PointsWithStep(Step)
		n := len(m.trie.LookupOverlap(img, matrix.Empty(img.Dims), offsets, MinMatchRatio))
		if n >= bestCount {
			best, bestCount = p, n
		}
	}
	return best
}

func (m *Matcher) lattice(img *matrix.Matrix, phase geom.PointU16) []geom.PointU16 {
	dims := m.trie.Dims()
	if dims.Row > img.Dims.Row || dims.Col > img.Dims.Col {
		return nil
	}
	return geom.Box{Offset: phase, Dims: img.Dims.Sub(dims)}.PointsWithStep(Step)
}

// EdgeMask claims the screen borders covered by the game UI so sprites cut
// off there still match.
func EdgeMask(dims geom.PointU16) *matrix.Matrix {
	mask := matrix.Empty(dims)
	for _, p := range dims.Points() {
		if p.Row < edgeTop || p.Row >= edgeBottom || p.Col < edgeLeft || int(p.Col) >= int(dims.Col)-edgeRight {
			mask.Set(p, trie.Claimed)
		}
	}
	return mask
}
