package trie

import (
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Claimed marks a pixel of an overlap mask as already explained by a match
// or outside the usable screen.
const Claimed = 1

// LookupOverlap finds patterns that may be partly hidden by earlier matches.
// Offsets are tried last to first. A pixel that differs from the pattern is
// tolerated where mask is Claimed; a pattern matches when at least minRatio
// of its checked pixels agree, and its pixels are then claimed in mask.
func (m *Matcher[T]) LookupOverlap(img, mask *matrix.Matrix, offsets []geom.PointU16, minRatio float64) []Hit[T] {
	var hits []Hit[T]
	for i := len(offsets) - 1; i >= 0; i-- {
		off := offsets[i]
		if int(off.Row)+int(m.dims.Row) > int(img.Dims.Row) || int(off.Col)+int(m.dims.Col) > int(img.Dims.Col) {
			continue
		}
		m.descendOverlap(img, mask, m.root, off, minRatio, &hits)
	}
	return hits
}

func (m *Matcher[T]) descendOverlap(img, mask *matrix.Matrix, n *node[T], off geom.PointU16, minRatio float64, hits *[]Hit[T]) {
	if n.isLeaf() {
		if overlapMatch(img, mask, off, n.values, minRatio) {
			*hits = append(*hits, Hit[T]{Offset: off, Payload: n.payload})
			for _, pv := range n.values {
				mask.Set(off.Add(pv.Point), Claimed)
			}
		}
		return
	}

	if n.zero != nil {
		m.descendOverlap(img, mask, n.zero, off, minRatio, hits)
	}

	p := off.Add(n.point)
	v := img.At(p)
	if v == 0 {
		return
	}
	if child, ok := n.children[v]; ok {
		m.descendOverlap(img, mask, child, off, minRatio, hits)
	}
	if mask.At(p) == Claimed {
		for _, k := range sortedKeys(n.children) {
			if k != v {
				m.descendOverlap(img, mask, n.children[k], off, minRatio, hits)
			}
		}
	}
}

func overlapMatch(img, mask *matrix.Matrix, off geom.PointU16, values []matrix.PointValue, minRatio float64) bool {
	matched, overlapped := 0, 0
	for _, pv := range values {
		p := off.Add(pv.Point)
		switch {
		case img.At(p) == pv.Value:
			matched++
		case mask.At(p) == Claimed:
			overlapped++
		default:
			return false
		}
	}
	return float64(matched) >= minRatio*float64(matched+overlapped)
}
