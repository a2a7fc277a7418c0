// Package matrix provides the indexed 8-bit raster shared by the decoders,
// the matchers and the map mosaic.
package matrix

import (
	"errors"
	"fmt"

	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// WindowSize is the side of the square matcher window.
const WindowSize = 4

// Matrix errors.
var (
	ErrDimensionMismatch = errors.New("matrix dimensions do not match data")
	ErrOutOfBounds       = errors.New("area outside matrix")
)

// Window is one 4x4 block of a matrix in row-major order.
type Window [WindowSize * WindowSize]byte

// PointValue is a point of a matrix together with its value.
type PointValue struct {
	Point geom.PointU16
	Value byte
}

// Matrix is a row-major indexed raster. Value 0 is transparent.
type Matrix struct {
	Dims geom.PointU16
	Data []byte
}

// New wraps data as a matrix of the given dimensions.
func New(dims geom.PointU16, data []byte) (*Matrix, error) {
	if dims.Area() != len(data) {
		return nil, fmt.Errorf("%w: %v needs %d bytes, got %d", ErrDimensionMismatch, dims, dims.Area(), len(data))
	}
	return &Matrix{Dims: dims, Data: data}, nil
}

// Empty returns a zeroed matrix.
func Empty(dims geom.PointU16) *Matrix {
	return &Matrix{Dims: dims, Data: make([]byte, dims.Area())}
}

// FromDC6Frame decodes an RLE frame into a matrix.
func FromDC6Frame(f *formats.DC6Frame) (*Matrix, error) {
	data, err := f.Decode()
	if err != nil {
		return nil, err
	}
	return New(geom.Pt(uint16(f.Height), uint16(f.Width)), data)
}

// FromDCCFrame wraps a decoded cell frame. Frames of one direction share the
// direction's dimensions.
func FromDCCFrame(dir *formats.DCCDirection, frame int) *Matrix {
	return &Matrix{
		Dims: geom.Pt(uint16(dir.Height()), uint16(dir.Width())),
		Data: dir.Frames[frame].Pixels,
	}
}

func (m *Matrix) index(p geom.PointU16) int {
	return int(p.Row)*int(m.Dims.Col) + int(p.Col)
}

// At returns the value at p.
func (m *Matrix) At(p geom.PointU16) byte {
	return m.Data[m.index(p)]
}

// Set stores v at p.
func (m *Matrix) Set(p geom.PointU16, v byte) {
	m.Data[m.index(p)] = v
}

// Len returns the number of cells.
func (m *Matrix) Len() int {
	return len(m.Data)
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{Dims: m.Dims, Data: append([]byte(nil), m.Data...)}
}

// Equal reports whether both matrices have the same dimensions and data.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.Dims != o.Dims {
		return false
	}
	for i := range m.Data {
		if m.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// Transform returns a new matrix with the palette applied to every cell.
func (m *Matrix) Transform(p *palette.Palette) *Matrix {
	return &Matrix{Dims: m.Dims, Data: p.TransformSlice(m.Data)}
}

// Row returns row r as a slice aliasing the matrix data.
func (m *Matrix) Row(r uint16) []byte {
	off := int(r) * int(m.Dims.Col)
	return m.Data[off : off+int(m.Dims.Col)]
}

// RemoveLastRow drops the bottom row.
func (m *Matrix) RemoveLastRow() {
	if m.Dims.Row == 0 {
		return
	}
	m.Dims.Row--
	m.Data = m.Data[:m.Dims.Area()]
}

// NonZeroWidth returns one past the right-most column holding a non-zero
// value, or 0 for an empty matrix.
func (m *Matrix) NonZeroWidth() uint16 {
	for col := int(m.Dims.Col) - 1; col >= 0; col-- {
		for row := uint16(0); row < m.Dims.Row; row++ {
			if m.At(geom.Pt(row, uint16(col))) != 0 {
				return uint16(col) + 1
			}
		}
	}
	return 0
}

// Points enumerates every point in row-major order.
func (m *Matrix) Points() []geom.PointU16 {
	return m.Dims.Points()
}

// NonZeroPoints returns the points holding a non-zero value.
func (m *Matrix) NonZeroPoints() []geom.PointU16 {
	var points []geom.PointU16
	for _, p := range m.Points() {
		if m.At(p) != 0 {
			points = append(points, p)
		}
	}
	return points
}

// NonZeroPointValues returns the non-zero cells with their values.
func (m *Matrix) NonZeroPointValues() []PointValue {
	var pvs []PointValue
	for _, p := range m.Points() {
		if v := m.At(p); v != 0 {
			pvs = append(pvs, PointValue{Point: p, Value: v})
		}
	}
	return pvs
}

// WindowOffsets returns every top-left offset at which a window of the given
// dimensions fits entirely inside the matrix.
func (m *Matrix) WindowOffsets(window geom.PointU16) []geom.PointU16 {
	if window.Row > m.Dims.Row || window.Col > m.Dims.Col {
		return nil
	}
	return geom.Pt(m.Dims.Row-window.Row+1, m.Dims.Col-window.Col+1).Points()
}

// WindowPoints returns the points of the window box at the origin, clipped
// to the matrix.
func (m *Matrix) WindowPoints(window geom.PointU16) []geom.PointU16 {
	return geom.Pt(min(window.Row, m.Dims.Row), min(window.Col, m.Dims.Col)).Points()
}

// Window returns the 4x4 block whose top-left corner is offset.
func (m *Matrix) Window(offset geom.PointU16) Window {
	var w Window
	c := 0
	for row := offset.Row; row < offset.Row+WindowSize; row++ {
		base := m.index(geom.Pt(row, offset.Col))
		copy(w[c:c+WindowSize], m.Data[base:base+WindowSize])
		c += WindowSize
	}
	return w
}

func (m *Matrix) contains(area geom.Box) bool {
	return int(area.Offset.Row)+int(area.Dims.Row) <= int(m.Dims.Row) &&
		int(area.Offset.Col)+int(area.Dims.Col) <= int(m.Dims.Col)
}

// Sub copies the area into a new matrix.
func (m *Matrix) Sub(area geom.Box) (*Matrix, error) {
	if !m.contains(area) {
		return nil, fmt.Errorf("%w: %v+%v in %v", ErrOutOfBounds, area.Offset, area.Dims, m.Dims)
	}
	out := Empty(area.Dims)
	for r := uint16(0); r < area.Dims.Row; r++ {
		src := m.index(area.Offset.Add(geom.Pt(r, 0)))
		copy(out.Row(r), m.Data[src:src+int(area.Dims.Col)])
	}
	return out, nil
}

// Insert copies sub into the matrix with its top-left corner at offset.
func (m *Matrix) Insert(offset geom.PointU16, sub *Matrix) error {
	if !m.contains(geom.Box{Offset: offset, Dims: sub.Dims}) {
		return fmt.Errorf("%w: %v+%v in %v", ErrOutOfBounds, offset, sub.Dims, m.Dims)
	}
	for r := uint16(0); r < sub.Dims.Row; r++ {
		dst := m.index(offset.Add(geom.Pt(r, 0)))
		copy(m.Data[dst:dst+int(sub.Dims.Col)], sub.Row(r))
	}
	return nil
}

// ClearArea zeroes the part of the area that lies inside the matrix.
func (m *Matrix) ClearArea(area geom.Box) {
	rowEnd := min(int(area.Offset.Row)+int(area.Dims.Row), int(m.Dims.Row))
	colEnd := min(int(area.Offset.Col)+int(area.Dims.Col), int(m.Dims.Col))
	for row := int(area.Offset.Row); row < rowEnd; row++ {
		for col := int(area.Offset.Col); col < colEnd; col++ {
			m.Data[row*int(m.Dims.Col)+col] = 0
		}
	}
}

// ClearAreas zeroes every area.
func (m *Matrix) ClearAreas(areas []geom.Box) {
	for _, a := range areas {
		m.ClearArea(a)
	}
}

// DiffRatio returns the fraction of cells that differ between two matrices
// of equal size.
func (m *Matrix) DiffRatio(o *Matrix) (float64, error) {
	if len(m.Data) != len(o.Data) {
		return 0, fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, m.Dims, o.Dims)
	}
	if len(m.Data) == 0 {
		return 0, nil
	}
	diff := 0
	for i := range m.Data {
		if m.Data[i] != o.Data[i] {
			diff++
		}
	}
	return float64(diff) / float64(len(m.Data)), nil
}

// ToImage expands the matrix through an RGB palette.
func (m *Matrix) ToImage(pixels *palette.PixelPalette) *Image {
	return &Image{Dims: m.Dims, Pixels: pixels.Expand(m.Data)}
}
