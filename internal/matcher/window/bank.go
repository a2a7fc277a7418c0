// Package window implements the 4x4 sprite-window matcher: a bank of
// (window, palette) entries indexed by a flat byte decision tree.
package window

import (
	"encoding/binary"
	"slices"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

const (
	// Size is the number of cells of a window.
	Size = matrix.WindowSize * matrix.WindowSize

	// reservedValue is drawn by the game over sprites and never part of one.
	reservedValue = 172

	minUniqueValues = 4
	entrySize       = 6
)

// Entry identifies one bank sprite: a neutral window and the palette it is
// drawn with.
type Entry struct {
	MatrixID  uint32
	PaletteID uint16
}

func (e Entry) bytes() [entrySize]byte {
	var b [entrySize]byte
	binary.BigEndian.PutUint32(b[:4], e.MatrixID)
	binary.BigEndian.PutUint16(b[4:], e.PaletteID)
	return b
}

func entryFromBytes(b []byte) Entry {
	return Entry{
		MatrixID:  binary.BigEndian.Uint32(b[:4]),
		PaletteID: binary.BigEndian.Uint16(b[4:6]),
	}
}

// Bank holds the neutral windows and the palettes entries refer to.
type Bank struct {
	Windows  []matrix.Window
	Palettes []palette.Palette
}

// Value returns cell i of the entry's window after its palette is applied.
func (b *Bank) Value(e Entry, i int) byte {
	return b.Palettes[e.PaletteID][b.Windows[e.MatrixID][i]]
}

// Transformed returns the entry's window after its palette is applied.
func (b *Bank) Transformed(e Entry) matrix.Window {
	return transform(b.Windows[e.MatrixID], &b.Palettes[e.PaletteID])
}

func (b *Bank) contains(e Entry) bool {
	return int(e.MatrixID) < len(b.Windows) && int(e.PaletteID) < len(b.Palettes)
}

func transform(w matrix.Window, p *palette.Palette) matrix.Window {
	var out matrix.Window
	for i, v := range w {
		out[i] = p[v]
	}
	return out
}

// IsValid reports whether a window can identify a sprite: no transparent or
// reserved cells and at least four distinct values.
func IsValid(w matrix.Window) bool {
	for _, v := range w {
		if v == 0 || v == reservedValue {
			return false
		}
	}
	return uniqueValues(w) >= minUniqueValues
}

func uniqueValues(w matrix.Window) int {
	var seen [256]bool
	n := 0
	for _, v := range w {
		if !seen[v] {
			seen[v] = true
			n++
		}
	}
	return n
}

// FrameWindows cuts a frame into non-overlapping 4x4 windows and returns the
// valid ones, most distinct values first.
func FrameWindows(m *matrix.Matrix) []matrix.Window {
	var windows []matrix.Window
	for row := uint16(0); row+matrix.WindowSize <= m.Dims.Row; row += matrix.WindowSize {
		for col := uint16(0); col+matrix.WindowSize <= m.Dims.Col; col += matrix.WindowSize {
			w := m.Window(geom.Pt(row, col))
			if IsValid(w) {
				windows = append(windows, w)
			}
		}
	}
	slices.SortStableFunc(windows, func(a, b matrix.Window) int {
		return uniqueValues(b) - uniqueValues(a)
	})
	return windows
}
