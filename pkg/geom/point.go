// Package geom provides the integer point, box and direction types shared by
// the rasters, matchers and the map mosaic.
package geom

import (
	"fmt"
	"math"
)

// PointU8 is a sprite-local row/col coordinate.
type PointU8 struct {
	Row, Col uint8
}

// U16 widens the point to screen coordinates.
func (p PointU8) U16() PointU16 {
	return PointU16{Row: uint16(p.Row), Col: uint16(p.Col)}
}

// PointU16 is a screen-local or grid-local row/col coordinate.
type PointU16 struct {
	Row, Col uint16
}

// Pt is shorthand for a PointU16.
func Pt(row, col uint16) PointU16 {
	return PointU16{Row: row, Col: col}
}

// Add returns p + o. It panics if either axis overflows.
func (p PointU16) Add(o PointU16) PointU16 {
	r, ok := p.CheckedAdd(o)
	if !ok {
		panic(fmt.Sprintf("geom: %v + %v overflows", p, o))
	}
	return r
}

// CheckedAdd returns p + o and false if either axis overflows.
func (p PointU16) CheckedAdd(o PointU16) (PointU16, bool) {
	r := PointU16{Row: p.Row + o.Row, Col: p.Col + o.Col}
	return r, r.Row >= p.Row && r.Col >= p.Col
}

// Sub returns p - o. It panics if either axis underflows.
func (p PointU16) Sub(o PointU16) PointU16 {
	r, ok := p.CheckedSub(o)
	if !ok {
		panic(fmt.Sprintf("geom: %v - %v underflows", p, o))
	}
	return r
}

// CheckedSub returns p - o and false if either axis underflows.
func (p PointU16) CheckedSub(o PointU16) (PointU16, bool) {
	if o.Row > p.Row || o.Col > p.Col {
		return PointU16{}, false
	}
	return PointU16{Row: p.Row - o.Row, Col: p.Col - o.Col}, true
}

// Mul multiplies component-wise. It panics if either axis overflows.
func (p PointU16) Mul(o PointU16) PointU16 {
	row, col := uint32(p.Row)*uint32(o.Row), uint32(p.Col)*uint32(o.Col)
	if row > math.MaxUint16 || col > math.MaxUint16 {
		panic(fmt.Sprintf("geom: %v * %v overflows", p, o))
	}
	return PointU16{Row: uint16(row), Col: uint16(col)}
}

// Div divides component-wise.
func (p PointU16) Div(o PointU16) PointU16 {
	return PointU16{Row: p.Row / o.Row, Col: p.Col / o.Col}
}

// Area returns Row*Col, the number of cells in a box of these dimensions.
func (p PointU16) Area() int {
	return int(p.Row) * int(p.Col)
}

// Less orders points by row, then column.
func (p PointU16) Less(o PointU16) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Col < o.Col
}

// Compare returns -1, 0 or 1 ordering by row then column.
func (p PointU16) Compare(o PointU16) int {
	switch {
	case p.Less(o):
		return -1
	case o.Less(p):
		return 1
	default:
		return 0
	}
}

// I32 converts to a signed point.
func (p PointU16) I32() PointI32 {
	return PointI32{Row: int32(p.Row), Col: int32(p.Col)}
}

// Points enumerates every point of a box with these dimensions in row-major order.
func (p PointU16) Points() []PointU16 {
	points := make([]PointU16, 0, p.Area())
	for row := uint16(0); row < p.Row; row++ {
		for col := uint16(0); col < p.Col; col++ {
			points = append(points, PointU16{Row: row, Col: col})
		}
	}
	return points
}

func (p PointU16) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// PointI32 is a signed delta between two points.
type PointI32 struct {
	Row, Col int32
}

// Add returns p + o.
func (p PointI32) Add(o PointI32) PointI32 {
	return PointI32{Row: p.Row + o.Row, Col: p.Col + o.Col}
}

// Sub returns p - o.
func (p PointI32) Sub(o PointI32) PointI32 {
	return PointI32{Row: p.Row - o.Row, Col: p.Col - o.Col}
}

// U16 converts to an unsigned point, reporting false if either axis is
// negative or too large.
func (p PointI32) U16() (PointU16, bool) {
	if p.Row < 0 || p.Col < 0 || p.Row > math.MaxUint16 || p.Col > math.MaxUint16 {
		return PointU16{}, false
	}
	return PointU16{Row: uint16(p.Row), Col: uint16(p.Col)}, true
}

// Manhattan returns |Row| + |Col|.
func (p PointI32) Manhattan() int32 {
	return abs32(p.Row) + abs32(p.Col)
}

func (p PointI32) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Box is a rectangle given by its top-left offset and dimensions.
type Box struct {
	Offset PointU16
	Dims   PointU16
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p PointU16) bool {
	return p.Row >= b.Offset.Row && int(p.Row) < int(b.Offset.Row)+int(b.Dims.Row) &&
		p.Col >= b.Offset.Col && int(p.Col) < int(b.Offset.Col)+int(b.Dims.Col)
}

// Shift returns the box moved by d.
func (b Box) Shift(d PointU16) Box {
	return Box{Offset: b.Offset.Add(d), Dims: b.Dims}
}

// PointsWithStep enumerates the box's points on a step lattice anchored at its offset.
func (b Box) PointsWithStep(step PointU16) []PointU16 {
	var points []PointU16
	for row := 0; row < int(b.Dims.Row); row += int(step.Row) {
		for col := 0; col < int(b.Dims.Col); col += int(step.Col) {
			points = append(points, b.Offset.Add(PointU16{Row: uint16(row), Col: uint16(col)}))
		}
	}
	return points
}
