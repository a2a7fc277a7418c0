package geom

// Direction is one of the eight compass directions, or Same for no movement.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	Same
)

var directionNames = [...]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest", "same"}

func (d Direction) String() string {
	if d < North || d > Same {
		return "unknown"
	}
	return directionNames[d]
}

// Delta returns the unit row/col step of the direction.
func (d Direction) Delta() PointI32 {
	switch d {
	case North:
		return PointI32{Row: -1}
	case NorthEast:
		return PointI32{Row: -1, Col: 1}
	case East:
		return PointI32{Col: 1}
	case SouthEast:
		return PointI32{Row: 1, Col: 1}
	case South:
		return PointI32{Row: 1}
	case SouthWest:
		return PointI32{Row: 1, Col: -1}
	case West:
		return PointI32{Col: -1}
	case NorthWest:
		return PointI32{Row: -1, Col: -1}
	default:
		return PointI32{}
	}
}

// Opposite returns the direction pointing the other way. Same stays Same.
func (d Direction) Opposite() Direction {
	if d == Same {
		return Same
	}
	return (d + 4) % 8
}

// Rand is the subset of math/rand/v2 the planner depends on.
type Rand interface {
	IntN(n int) int
}

// Diagonals lists the four diagonal directions.
var Diagonals = [4]Direction{NorthEast, SouthEast, SouthWest, NorthWest}

// RandomDiagonal picks one of the four diagonal directions.
func RandomDiagonal(rng Rand) Direction {
	return Diagonals[rng.IntN(len(Diagonals))]
}

// DirectionTo returns the compass direction from p towards o.
func (p PointU16) DirectionTo(o PointU16) Direction {
	dr := int(o.Row) - int(p.Row)
	dc := int(o.Col) - int(p.Col)

	switch {
	case dr == 0 && dc == 0:
		return Same
	case dr > 0 && dc == 0:
		return South
	case dr < 0 && dc == 0:
		return North
	case dr == 0 && dc > 0:
		return East
	case dr == 0 && dc < 0:
		return West
	case dr > 0 && dc > 0:
		return SouthEast
	case dr > 0 && dc < 0:
		return SouthWest
	case dr < 0 && dc > 0:
		return NorthEast
	default:
		return NorthWest
	}
}

// MoveInDirection returns up to steps points walking from p in d, excluding p.
// The walk stops early at a negative coordinate.
func (p PointU16) MoveInDirection(d Direction, steps int) []PointU16 {
	delta := d.Delta()
	points := make([]PointU16, 0, steps)
	row, col := int32(p.Row), int32(p.Col)

	for i := 0; i < steps; i++ {
		row += delta.Row
		col += delta.Col
		if row < 0 || col < 0 || row > 0xFFFF || col > 0xFFFF {
			break
		}
		points = append(points, PointU16{Row: uint16(row), Col: uint16(col)})
	}
	return points
}
