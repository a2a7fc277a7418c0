// Package mosaic accumulates automap matches into a walkability grid that
// grows as the player moves, and plans exploration paths over it.
package mosaic

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Faultbox/d2sight/internal/mapmatch"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Rings caps the breadth-first fill.
const Rings = 72

// Unreached is the step count of a tile the last fill did not reach.
const Unreached = -1

// Tile is one cell of the grid.
type Tile struct {
	Walkable        tilemask.Cell
	WalkedCount     uint32
	WalkedCountPath uint32
	Steps           int32
}

// Reached reports whether the last fill reached the tile.
func (t *Tile) Reached() bool {
	return t.Steps != Unreached
}

// Pad is the number of tiles to add on each side of the grid.
type Pad struct {
	Top, Bottom, Left, Right int32
}

// IsZero reports whether the pad adds nothing.
func (p Pad) IsZero() bool {
	return p == Pad{}
}

// Grid is a row-major occupancy grid.
type Grid struct {
	Dims  geom.PointU16
	Tiles []Tile
}

// NewGrid returns an all-empty grid.
func NewGrid(dims geom.PointU16) *Grid {
	g := &Grid{Dims: dims, Tiles: make([]Tile, dims.Area())}
	for i := range g.Tiles {
		g.Tiles[i].Steps = Unreached
	}
	return g
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < int(g.Dims.Row) && col < int(g.Dims.Col)
}

func (g *Grid) index(row, col int) int {
	return row*int(g.Dims.Col) + col
}

// At returns the tile at p. The point must lie inside the grid.
func (g *Grid) At(p geom.PointU16) *Tile {
	return &g.Tiles[g.index(int(p.Row), int(p.Col))]
}

// ErrGridTooLarge is returned when padding would grow the grid past the
// range of a tile coordinate.
var ErrGridTooLarge = errors.New("mosaic grid too large")

// Pad grows the grid, keeping existing tiles at their shifted positions.
func (g *Grid) Pad(p Pad) error {
	if p.IsZero() {
		return nil
	}

	grow, ok := geom.PointI32{Row: p.Top + p.Bottom, Col: p.Left + p.Right}.U16()
	if !ok {
		return fmt.Errorf("%w: pad %+v", ErrGridTooLarge, p)
	}
	dims, ok := g.Dims.CheckedAdd(grow)
	if !ok {
		return fmt.Errorf("%w: %v grown by %v", ErrGridTooLarge, g.Dims, grow)
	}
	padded := NewGrid(dims)
	for row := 0; row < int(g.Dims.Row); row++ {
		src := g.Tiles[g.index(row, 0):g.index(row+1, 0)]
		copy(padded.Tiles[padded.index(row+int(p.Top), int(p.Left)):], src)
	}
	*g = *padded
	return nil
}

// Mark stamps the tile mask of every matched sprite, with sprite points
// shifted by offset. Openings are never overwritten and empty mask cells
// leave the grid untouched. Cells falling outside the grid are dropped.
func (g *Grid) Mark(masks *tilemask.Index, sprites mapmatch.Sprites, offset geom.PointU16) {
	for id, points := range sprites {
		mask := masks.Mask(id)
		for i, row := range mask {
			for j, cell := range row {
				if cell == tilemask.Empty {
					continue
				}
				for _, p := range points {
					r := int(offset.Row) + int(p.Row) + i
					c := int(offset.Col) + int(p.Col) + j
					if !g.inBounds(r, c) {
						continue
					}
					t := &g.Tiles[g.index(r, c)]
					if t.Walkable != tilemask.Opening {
						t.Walkable = cell
					}
				}
			}
		}
	}
}

var neighbours = [4]geom.PointI32{
	{Row: -1}, // up
	{Col: 1},  // right
	{Row: 1},  // down
	{Col: -1}, // left
}

// Fill runs a breadth-first search over walkable tiles from base, at most
// Rings steps deep. With wide > 0 every walkable tile of the 2*wide square
// around base is seeded at distance 0. A base on a wall seeds the walkable
// tiles of at least the 2x2 square instead of itself, so no wall is ever
// reached. A newly reached tile's WalkedCountPath is its parent's plus its
// own WalkedCount.
func (g *Grid) Fill(base geom.PointU16, wide int) {
	for i := range g.Tiles {
		g.Tiles[i].Steps = Unreached
		g.Tiles[i].WalkedCountPath = 0
	}

	var current []geom.PointU16
	seed := func(row, col int) {
		if !g.inBounds(row, col) {
			return
		}
		t := &g.Tiles[g.index(row, col)]
		if !t.Walkable.IsWalkable() || t.Reached() {
			return
		}
		t.Steps = 0
		t.WalkedCountPath = t.WalkedCount
		current = append(current, geom.Pt(uint16(row), uint16(col)))
	}

	seed(int(base.Row), int(base.Col))
	if len(current) == 0 {
		wide = max(wide, 1)
	}
	for row := int(base.Row) - wide; row < int(base.Row)+wide; row++ {
		for col := int(base.Col) - wide; col < int(base.Col)+wide; col++ {
			seed(row, col)
		}
	}

	var next []geom.PointU16
	for ring := int32(1); ring <= Rings && len(current) > 0; ring++ {
		for _, pos := range current {
			parent := g.At(pos)
			for _, d := range neighbours {
				row, col := int(pos.Row)+int(d.Row), int(pos.Col)+int(d.Col)
				if !g.inBounds(row, col) {
					continue
				}
				t := &g.Tiles[g.index(row, col)]
				if !t.Walkable.IsWalkable() || t.Reached() {
					continue
				}
				t.Steps = ring
				t.WalkedCountPath = parent.WalkedCountPath + t.WalkedCount
				next = append(next, geom.Pt(uint16(row), uint16(col)))
			}
		}
		current, next = next, current[:0]
	}
}

// Destination is a candidate end point of an exploration path.
type Destination struct {
	Point geom.PointU16
	Score float64
}

// maxSamples bounds the random sampling of destinations.
const maxSamples = 65536

// Destinations samples up to n random reached tiles at least minSteps from
// the base. A tile scores sqrt(WalkedCountPath)/Steps; lower means less
// explored at a reasonable distance.
func (g *Grid) Destinations(rng geom.Rand, n, minSteps int) []Destination {
	var out []Destination
	for tries := 0; len(out) < n && tries < maxSamples; tries++ {
		p := geom.Pt(uint16(rng.IntN(int(g.Dims.Row))), uint16(rng.IntN(int(g.Dims.Col))))
		t := g.At(p)
		if !t.Reached() || t.Steps == 0 || int(t.Steps) < minSteps {
			continue
		}
		out = append(out, Destination{
			Point: p,
			Score: math.Sqrt(float64(t.WalkedCountPath)) / float64(t.Steps),
		})
	}
	return out
}

var pathSteps = [4]struct {
	delta    geom.PointI32
	vertical bool
}{
	{geom.PointI32{Row: -1}, true},
	{geom.PointI32{Col: 1}, false},
	{geom.PointI32{Row: 1}, true},
	{geom.PointI32{Col: -1}, false},
}

// Path walks from end back to the fill's base along decreasing step counts
// and returns it base first. Where possible each step switches between
// vertical and horizontal so the path does not hug walls. It reports false
// when end was not reached.
func (g *Grid) Path(end geom.PointU16) ([]geom.PointU16, bool) {
	t := g.At(end)
	if !t.Reached() {
		return nil, false
	}

	path := []geom.PointU16{end}
	cur, steps := end, t.Steps
	lastVertical := true

	for steps > 0 {
		var next geom.PointU16
		nextSteps := int32(Unreached)

		for _, s := range pathSteps {
			row, col := int(cur.Row)+int(s.delta.Row), int(cur.Col)+int(s.delta.Col)
			if !g.inBounds(row, col) {
				continue
			}
			adj := g.Tiles[g.index(row, col)]
			if !adj.Reached() || adj.Steps >= steps {
				continue
			}
			next, nextSteps = geom.Pt(uint16(row), uint16(col)), adj.Steps
			if s.vertical != lastVertical {
				lastVertical = !lastVertical
				break
			}
		}

		if nextSteps == Unreached {
			return nil, false
		}
		cur, steps = next, nextSteps
		path = append(path, cur)
	}

	slices.Reverse(path)
	return path, true
}

// MarkRadius is the half side of the square marked around walked tiles.
const MarkRadius = 8

// MarkWalked increments WalkedCount once for every tile within MarkRadius
// of any path point.
func (g *Grid) MarkWalked(path []geom.PointU16) {
	marked := make(map[int]struct{})
	for _, p := range path {
		rowStart, rowEnd := max(int(p.Row)-MarkRadius, 0), min(int(p.Row)+MarkRadius, int(g.Dims.Row))
		colStart, colEnd := max(int(p.Col)-MarkRadius, 0), min(int(p.Col)+MarkRadius, int(g.Dims.Col))
		for row := rowStart; row < rowEnd; row++ {
			for col := colStart; col < colEnd; col++ {
				marked[g.index(row, col)] = struct{}{}
			}
		}
	}
	for i := range marked {
		g.Tiles[i].WalkedCount++
	}
}
