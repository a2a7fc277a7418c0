package mosaic

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/mapmatch"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Planner errors.
var (
	ErrNoDestination    = errors.New("no destination in reach")
	ErrNoPath           = errors.New("no path to destination")
	ErrMapsNotConnected = errors.New("automap frames could not be stitched")
)

// Grid geometry of one screen of automap tiles.
var (
	ScreenTiles  = geom.Pt(150, 100)
	ScreenCenter = geom.Pt(75, 50)
)

const (
	// fallbackSteps is the length of straight-line moves.
	fallbackSteps = 64
	// movedDistance is the displacement above which a move counts.
	movedDistance = 10
	// minMatchRatio is the least share of the previous frame's matches a
	// new frame must keep to be stitched.
	minMatchRatio = 0.5
)

// Options tune the planner.
type Options struct {
	WideStartSize       int
	MaxTilesToMark      int
	NumDestinations     int
	MinDestinationSteps int
	// Paths of at most this many tiles are replaced by a random diagonal.
	ShortPathThreshold int
}

// DefaultOptions returns the planner defaults.
func DefaultOptions() Options {
	return Options{
		WideStartSize:       5,
		MaxTilesToMark:      20,
		NumDestinations:     100,
		MinDestinationSteps: 10,
		ShortPathThreshold:  10,
	}
}

// extents is how far the view has ever moved from the first frame.
type extents struct {
	up, down, left, right int32
}

// Planner owns the mosaic of one area and plans where to walk next.
type Planner struct {
	opts  Options
	masks *tilemask.Index
	rng   geom.Rand

	grid     *Grid
	moved    extents
	distance geom.PointI32
	anchor   geom.PointU16
	sprites  mapmatch.Sprites

	wideNext      bool
	lastDirection geom.Direction
	lastMoveOK    bool
}

// NewPlanner starts a mosaic from the sprites of the first frame.
func NewPlanner(opts Options, masks *tilemask.Index, rng geom.Rand, sprites mapmatch.Sprites) *Planner {
	p := &Planner{opts: opts, masks: masks, rng: rng}
	p.Reset(sprites)
	return p
}

// Reset discards the mosaic and starts again from sprites.
func (p *Planner) Reset(sprites mapmatch.Sprites) {
	p.grid = NewGrid(ScreenTiles)
	p.moved = extents{}
	p.distance = geom.PointI32{}
	p.anchor = ScreenCenter
	p.sprites = sprites
	p.wideNext = false
	p.lastDirection = geom.Same
	p.lastMoveOK = true

	p.grid.Mark(p.masks, sprites, geom.PointU16{})
}

// Grid returns the mosaic.
func (p *Planner) Grid() *Grid {
	return p.grid
}

// Anchor returns the grid tile believed to be under the player.
func (p *Planner) Anchor() geom.PointU16 {
	return p.anchor
}

// LastMoveSucceeded reports whether the last stitched frame showed real
// movement.
func (p *Planner) LastMoveSucceeded() bool {
	return p.lastMoveOK
}

// LastDirection returns the direction of the last planned move.
func (p *Planner) LastDirection() geom.Direction {
	return p.lastDirection
}

// Plan returns the next path in grid tiles, starting at the anchor.
// After a move that went nowhere it walks straight back the opposite way.
func (p *Planner) Plan() ([]geom.PointU16, error) {
	wide := 0
	if p.wideNext {
		wide = p.opts.WideStartSize
	}
	p.grid.Fill(p.anchor, wide)

	if !p.lastMoveOK {
		p.lastDirection = p.lastDirection.Opposite()
		logger.Debug("reversing direction", zap.Stringer("direction", p.lastDirection))
		path, err := p.straightPath(p.lastDirection)
		if err != nil {
			return nil, err
		}
		p.markWalked(path)
		return path, nil
	}

	dests := p.grid.Destinations(p.rng, p.opts.NumDestinations, p.opts.MinDestinationSteps)
	if len(dests) == 0 {
		return nil, ErrNoDestination
	}
	best := slices.MinFunc(dests, func(a, b Destination) int {
		return cmp.Compare(a.Score, b.Score)
	})

	path, ok := p.grid.Path(best.Point)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoPath, best.Point)
	}
	if len(path) <= p.opts.ShortPathThreshold {
		d := geom.RandomDiagonal(p.rng)
		logger.Debug("path too short, moving diagonally",
			zap.Int("length", len(path)),
			zap.Stringer("direction", d))
		straight, err := p.straightPath(d)
		if err != nil {
			return nil, err
		}
		path = straight
	}

	p.markWalked(path)
	p.lastDirection = p.anchor.DirectionTo(best.Point)
	return path, nil
}

// straightPath walks fallbackSteps tiles from the anchor in d, anchor first.
func (p *Planner) straightPath(d geom.Direction) ([]geom.PointU16, error) {
	steps := p.anchor.MoveInDirection(d, fallbackSteps)
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: cannot move %v from %v", ErrNoPath, d, p.anchor)
	}
	return append([]geom.PointU16{p.anchor}, steps...), nil
}

func (p *Planner) markWalked(path []geom.PointU16) {
	p.grid.MarkWalked(path[:min(p.opts.MaxTilesToMark, len(path))])
}

// Update stitches the sprites of a new frame into the mosaic and moves the
// anchor by the displacement between the frames.
func (p *Planner) Update(sprites mapmatch.Sprites) (geom.PointI32, error) {
	prev, cur := p.sprites.Count(), sprites.Count()
	if prev > 0 && float64(cur)/float64(prev) < minMatchRatio {
		return geom.PointI32{}, fmt.Errorf("%w: %d of %d matches left", ErrMapsNotConnected, cur, prev)
	}

	diff := Displacement(p.sprites, sprites)
	p.distance = p.distance.Add(diff)

	pad := padFor(p.moved, p.distance)
	if err := p.grid.Pad(pad); err != nil {
		return diff, err
	}
	p.moved = extend(p.moved, p.distance)

	offset, ok := geom.PointI32{Row: p.moved.up + p.distance.Row, Col: p.moved.left + p.distance.Col}.U16()
	if !ok {
		return diff, fmt.Errorf("%w: frame offset out of range", ErrMapsNotConnected)
	}
	shift, ok := geom.PointI32{Row: pad.Top, Col: pad.Left}.U16()
	if !ok {
		return diff, fmt.Errorf("%w: pad out of range", ErrMapsNotConnected)
	}
	previous, ok := p.anchor.CheckedAdd(shift)
	if !ok {
		return diff, fmt.Errorf("%w: anchor out of range", ErrMapsNotConnected)
	}
	if p.anchor, ok = offset.CheckedAdd(ScreenCenter); !ok {
		return diff, fmt.Errorf("%w: anchor out of range", ErrMapsNotConnected)
	}

	p.grid.Mark(p.masks, sprites, offset)
	p.grid.Fill(p.anchor, p.opts.WideStartSize)

	path, ok := p.grid.Path(previous)
	if !ok {
		return diff, fmt.Errorf("%w: no path back to %v", ErrMapsNotConnected, previous)
	}

	p.lastMoveOK = diff.Manhattan() > movedDistance
	p.wideNext = !p.lastMoveOK
	p.anchor = path[0]
	p.sprites = sprites

	logger.Debug("mosaic updated",
		zap.Stringer("displacement", diff),
		zap.Stringer("anchor", p.anchor),
		zap.Stringer("grid", p.grid.Dims),
		zap.Bool("moved", p.lastMoveOK))
	return diff, nil
}

// Displacement returns the most common offset between points of the same
// sprite id in two frames, previous minus current. Ties go to the smallest
// offset; frames without common sprites give zero.
func Displacement(previous, current mapmatch.Sprites) geom.PointI32 {
	votes := make(map[geom.PointI32]int)
	for id, before := range previous {
		after, ok := current[id]
		if !ok {
			continue
		}
		for _, a := range before {
			for _, b := range after {
				votes[a.I32().Sub(b.I32())]++
			}
		}
	}

	var best geom.PointI32
	bestVotes := 0
	for d, n := range votes {
		if n > bestVotes || (n == bestVotes && lessI32(d, best)) {
			best, bestVotes = d, n
		}
	}
	return best
}

func lessI32(a, b geom.PointI32) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

func padFor(m extents, d geom.PointI32) Pad {
	var pad Pad
	if d.Row > m.down {
		pad.Bottom = d.Row - m.down
	}
	if d.Col > m.right {
		pad.Right = d.Col - m.right
	}
	if d.Row < -m.up {
		pad.Top = -d.Row - m.up
	}
	if d.Col < -m.left {
		pad.Left = -d.Col - m.left
	}
	return pad
}

func extend(m extents, d geom.PointI32) extents {
	return extents{
		up:    max(m.up, -d.Row),
		down:  max(m.down, d.Row),
		left:  max(m.left, -d.Col),
		right: max(m.right, d.Col),
	}
}
