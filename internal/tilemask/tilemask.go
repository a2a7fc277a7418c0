// Package tilemask maps automap sprite ids to the walkability pattern the
// sprite stamps onto the map tile grid.
package tilemask

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Cell is the walkability of one map tile.
type Cell uint8

const (
	Empty Cell = iota
	Wall
	Opening
)

var cellNames = [...]string{"empty", "wall", "opening"}

func (c Cell) String() string {
	if int(c) >= len(cellNames) {
		return "unknown"
	}
	return cellNames[c]
}

// IsWalkable reports whether the player can stand on the tile.
func (c Cell) IsWalkable() bool {
	return c != Wall
}

// Mask dimensions in tiles.
const (
	Rows = 8
	Cols = 2
)

// Mask is the 8x2 tile pattern of one map sprite.
type Mask [Rows][Cols]Cell

// Predefined masks. Rows not set are empty.
var (
	MaskEmpty      = Mask{}
	MaskSingle     = Mask{7: {Wall, Empty}}
	MaskSingleHigh = Mask{5: {Wall, Empty}}
	MaskLarge      = Mask{5: {Wall, Wall}, 6: {Wall, Wall}, 7: {Wall, Wall}}
	MaskOpening    = Mask{7: {Opening, Opening}}
)

// Masks maps the names used in range tables to masks.
var Masks = map[string]Mask{
	"empty":       MaskEmpty,
	"single":      MaskSingle,
	"single_high": MaskSingleHigh,
	"large":       MaskLarge,
	"opening":     MaskOpening,
}

// Range table errors.
var (
	ErrRangeGap    = errors.New("tile mask ranges are not contiguous from 0")
	ErrEmptyRange  = errors.New("tile mask range is empty")
	ErrUnknownMask = errors.New("unknown tile mask")
)

// Range assigns a mask to sprite ids [Start, End).
type Range struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
	Mask  string `yaml:"mask"`
}

type table struct {
	Ranges []Range `yaml:"ranges"`
}

type span struct {
	end  uint32
	mask Mask
}

// Index answers the mask of a sprite id. It is read-only once built.
type Index struct {
	spans []span
}

// NewIndex validates ranges and builds the index. Ranges must start at 0
// and each must begin where the previous one ended.
func NewIndex(ranges []Range) (*Index, error) {
	ix := &Index{spans: make([]span, 0, len(ranges))}
	var next uint32

	for i, r := range ranges {
		if r.Start != next {
			return nil, fmt.Errorf("%w: range %d starts at %d, expected %d", ErrRangeGap, i, r.Start, next)
		}
		if r.End <= r.Start {
			return nil, fmt.Errorf("%w: range %d is [%d,%d)", ErrEmptyRange, i, r.Start, r.End)
		}
		mask, ok := Masks[r.Mask]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMask, r.Mask)
		}
		ix.spans = append(ix.spans, span{end: r.End, mask: mask})
		next = r.End
	}
	return ix, nil
}

// Parse reads a YAML range table.
func Parse(data []byte) (*Index, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing tile mask table: %w", err)
	}
	return NewIndex(t.Ranges)
}

// Load reads a YAML range table from a file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tile mask table: %w", err)
	}
	return Parse(data)
}

// Mask returns the mask of a sprite id. Ids outside every range are empty.
func (ix *Index) Mask(id uint32) Mask {
	i := sort.Search(len(ix.spans), func(i int) bool { return ix.spans[i].end > id })
	if i == len(ix.spans) {
		return MaskEmpty
	}
	return ix.spans[i].mask
}

// Len returns the number of sprite ids covered by the table.
func (ix *Index) Len() uint32 {
	if len(ix.spans) == 0 {
		return 0
	}
	return ix.spans[len(ix.spans)-1].end
}
