package trie

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

func mat(t *testing.T, rows, cols uint16, data ...byte) *matrix.Matrix {
	t.Helper()
	m, err := matrix.New(geom.Pt(rows, cols), data)
	require.NoError(t, err)
	return m
}

func TestNewErrors(t *testing.T) {
	a := mat(t, 2, 2, 5, 0, 0, 7)

	tests := []struct {
		name     string
		patterns []Pattern[string]
		wantErr  error
	}{
		{"none", nil, ErrNoPatterns},
		{"size", []Pattern[string]{{a, "a"}, {mat(t, 1, 2, 1, 2), "b"}}, ErrPatternSize},
		{"duplicate", []Pattern[string]{{a, "a"}, {a.Clone(), "b"}}, ErrDuplicatePattern},
		{"transparent", []Pattern[string]{{a, "a"}, {matrix.Empty(geom.Pt(2, 2)), "b"}}, ErrEmptyPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.patterns)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLookup(t *testing.T) {
	m, err := New([]Pattern[string]{
		{mat(t, 2, 2, 5, 0, 0, 7), "diagonal"},
		{mat(t, 2, 2, 5, 6, 0, 0), "bar"},
	})
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(2, 2), m.Dims())
	assert.Equal(t, 2, m.Len())

	// transparent cells of a pattern match anything
	img := mat(t, 3, 4,
		5, 9, 0, 0,
		0, 7, 5, 6,
		0, 0, 0, 0,
	)

	assert.ElementsMatch(t, []Hit[string]{
		{Offset: geom.Pt(0, 0), Payload: "diagonal"},
		{Offset: geom.Pt(1, 2), Payload: "bar"},
	}, m.Lookup(img))

	hits := m.LookupAt(img, []geom.PointU16{geom.Pt(1, 2)})
	require.Len(t, hits, 1)
	assert.Equal(t, "bar", hits[0].Payload)

	assert.Empty(t, m.Lookup(mat(t, 1, 1, 5)))
}

func TestLookupSoundAndComplete(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	dims := geom.Pt(3, 3)

	var patterns []Pattern[int]
	seen := map[string]bool{}
	for len(patterns) < 40 {
		data := make([]byte, dims.Area())
		opaque := false
		for i := range data {
			data[i] = byte(rng.IntN(4))
			opaque = opaque || data[i] != 0
		}
		if !opaque || seen[string(data)] {
			continue
		}
		seen[string(data)] = true
		patterns = append(patterns, Pattern[int]{mat(t, 3, 3, data...), len(patterns)})
	}

	m, err := New(patterns)
	require.NoError(t, err)

	for round := 0; round < 5; round++ {
		img := matrix.Empty(geom.Pt(12, 12))
		for i := range img.Data {
			img.Data[i] = byte(rng.IntN(4))
		}
		// plant a few patterns so there is something to find
		for k := 0; k < 4; k++ {
			p := patterns[rng.IntN(len(patterns))].Matrix
			off := geom.Pt(uint16(rng.IntN(10)), uint16(rng.IntN(10)))
			for _, pv := range p.NonZeroPointValues() {
				img.Set(off.Add(pv.Point), pv.Value)
			}
		}

		var want []Hit[int]
		for _, off := range img.WindowOffsets(dims) {
			for _, p := range patterns {
				if exactMatch(img, off, p.Matrix.NonZeroPointValues()) {
					want = append(want, Hit[int]{Offset: off, Payload: p.Payload})
				}
			}
		}

		require.NotEmpty(t, want)
		assert.ElementsMatch(t, want, m.Lookup(img))
	}
}

func TestLookupOverlap(t *testing.T) {
	m, err := New([]Pattern[string]{
		{mat(t, 2, 2, 9, 9, 9, 9), "block"},
		{mat(t, 2, 2, 9, 9, 9, 4), "notch"},
	})
	require.NoError(t, err)

	offsets := []geom.PointU16{geom.Pt(0, 0), geom.Pt(2, 2)}

	t.Run("exact", func(t *testing.T) {
		img := mat(t, 2, 2, 9, 9, 9, 4)
		mask := matrix.Empty(img.Dims)

		hits := m.LookupOverlap(img, mask, offsets, 0.2)
		require.Len(t, hits, 1)
		assert.Equal(t, "notch", hits[0].Payload)
		assert.Equal(t, []byte{1, 1, 1, 1}, mask.Data)
	})

	t.Run("occluded", func(t *testing.T) {
		img := mat(t, 2, 2, 9, 9, 9, 3)

		assert.Empty(t, m.LookupOverlap(img, matrix.Empty(img.Dims), offsets, 0.2))

		mask := mat(t, 2, 2, 0, 0, 0, Claimed)
		hits := m.LookupOverlap(img, mask, offsets, 0.2)
		assert.Len(t, hits, 2)
	})

	t.Run("ratio", func(t *testing.T) {
		img := mat(t, 2, 2, 9, 9, 9, 3)
		mask := mat(t, 2, 2, 0, 0, 0, Claimed)

		assert.Empty(t, m.LookupOverlap(img, mask, offsets, 0.9))
		assert.Equal(t, []byte{0, 0, 0, 1}, mask.Data)
	})
}
