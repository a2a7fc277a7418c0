// Package trie implements a pattern trie over sparse rasters. Each level
// branches on the value at one point; transparent cells of a pattern are
// wildcards.
package trie

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Trie errors.
var (
	ErrNoPatterns       = errors.New("no patterns")
	ErrPatternSize      = errors.New("patterns differ in size")
	ErrDuplicatePattern = errors.New("duplicate pattern")
	ErrEmptyPattern     = errors.New("pattern has no opaque cells")
)

// Pattern is one raster to index with the payload reported on a hit.
type Pattern[T any] struct {
	Matrix  *matrix.Matrix
	Payload T
}

// Hit is a pattern found at an offset of a screenshot.
type Hit[T any] struct {
	Offset  geom.PointU16
	Payload T
}

type node[T any] struct {
	point    geom.PointU16
	zero     *node[T]
	children map[byte]*node[T]

	// leaf fields
	values  []matrix.PointValue
	payload T
}

func (n *node[T]) isLeaf() bool {
	return n.children == nil && n.zero == nil
}

// Matcher is a built trie.
type Matcher[T any] struct {
	dims geom.PointU16
	root *node[T]
	size int
}

type entry[T any] struct {
	m       *matrix.Matrix
	values  []matrix.PointValue
	payload T
}

// New builds a trie over patterns of equal size.
func New[T any](patterns []Pattern[T]) (*Matcher[T], error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	dims := patterns[0].Matrix.Dims
	seen := make(map[string]int, len(patterns))
	entries := make([]entry[T], 0, len(patterns))
	used := make([]bool, dims.Area())

	for i, p := range patterns {
		if p.Matrix.Dims != dims {
			return nil, fmt.Errorf("%w: pattern %d is %v, expected %v", ErrPatternSize, i, p.Matrix.Dims, dims)
		}
		if j, ok := seen[string(p.Matrix.Data)]; ok {
			return nil, fmt.Errorf("%w: patterns %d and %d", ErrDuplicatePattern, j, i)
		}
		seen[string(p.Matrix.Data)] = i

		values := p.Matrix.NonZeroPointValues()
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: pattern %d", ErrEmptyPattern, i)
		}
		for _, pv := range values {
			used[int(pv.Point.Row)*int(dims.Col)+int(pv.Point.Col)] = true
		}
		entries = append(entries, entry[T]{m: p.Matrix, values: values, payload: p.Payload})
	}

	var remaining []geom.PointU16
	for i, p := range dims.Points() {
		if used[i] {
			remaining = append(remaining, p)
		}
	}

	return &Matcher[T]{dims: dims, root: grow(entries, remaining), size: len(entries)}, nil
}

func grow[T any](entries []entry[T], remaining []geom.PointU16) *node[T] {
	if len(entries) == 1 {
		return &node[T]{values: entries[0].values, payload: entries[0].payload}
	}

	point, remaining := bestPoint(entries, remaining)

	split := make(map[byte][]entry[T])
	for _, e := range entries {
		v := e.m.At(point)
		split[v] = append(split[v], e)
	}

	n := &node[T]{point: point, children: make(map[byte]*node[T], len(split))}
	for v, group := range split {
		child := grow(group, remaining)
		if v == 0 {
			n.zero = child
		} else {
			n.children[v] = child
		}
	}
	return n
}

// bestPoint picks the point opaque in most entries and drops it and every
// point transparent in all entries from the remaining set. Distinct
// entries always differ at an opaque remaining point.
func bestPoint[T any](entries []entry[T], remaining []geom.PointU16) (geom.PointU16, []geom.PointU16) {
	counts := make([]int, len(remaining))
	for _, e := range entries {
		for i, p := range remaining {
			if e.m.At(p) != 0 {
				counts[i]++
			}
		}
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}

	next := make([]geom.PointU16, 0, len(remaining))
	for i, p := range remaining {
		if counts[i] > 0 && i != best {
			next = append(next, p)
		}
	}
	return remaining[best], next
}

// Dims returns the pattern dimensions.
func (m *Matcher[T]) Dims() geom.PointU16 {
	return m.dims
}

// Len returns the number of indexed patterns.
func (m *Matcher[T]) Len() int {
	return m.size
}

// Lookup finds every pattern at every offset where it fits inside img.
func (m *Matcher[T]) Lookup(img *matrix.Matrix) []Hit[T] {
	return m.LookupAt(img, img.WindowOffsets(m.dims))
}

// LookupAt finds patterns at the given offsets. Each offset must leave room
// for the full pattern.
func (m *Matcher[T]) LookupAt(img *matrix.Matrix, offsets []geom.PointU16) []Hit[T] {
	var hits []Hit[T]
	m.descend(img, m.root, offsets, &hits)
	return hits
}

func (m *Matcher[T]) descend(img *matrix.Matrix, n *node[T], offsets []geom.PointU16, hits *[]Hit[T]) {
	if len(offsets) == 0 {
		return
	}

	if n.isLeaf() {
		for _, off := range offsets {
			if exactMatch(img, off, n.values) {
				*hits = append(*hits, Hit[T]{Offset: off, Payload: n.payload})
			}
		}
		return
	}

	// the zero child treats the point as a wildcard
	if n.zero != nil {
		m.descend(img, n.zero, offsets, hits)
	}

	buckets := make(map[byte][]geom.PointU16)
	for _, off := range offsets {
		v := img.At(off.Add(n.point))
		if _, ok := n.children[v]; ok {
			buckets[v] = append(buckets[v], off)
		}
	}

	for _, k := range sortedKeys(buckets) {
		m.descend(img, n.children[k], buckets[k], hits)
	}
}

func sortedKeys[V any](m map[byte]V) []byte {
	keys := make([]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func exactMatch(img *matrix.Matrix, off geom.PointU16, values []matrix.PointValue) bool {
	for _, pv := range values {
		if img.At(off.Add(pv.Point)) != pv.Value {
			return false
		}
	}
	return true
}
