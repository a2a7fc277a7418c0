package window

import (
	"fmt"
	"math"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Range is a half-open id range into the bank.
type Range struct {
	Start, End int
}

// Len returns the number of ids in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

type rangePair struct {
	windows, palettes Range
}

// Builder accumulates bank windows and palettes and the entries drawn from
// them. Windows are shared between sprites and each post-transform window
// is recorded once.
type Builder struct {
	bank               Bank
	entries            []Entry
	seen               map[matrix.Window]struct{}
	sprites            map[string]Range
	processed          map[rangePair]struct{}
	maxWindowsPerFrame int
}

// NewBuilder creates a builder keeping at most maxWindowsPerFrame new
// windows of each sprite frame.
func NewBuilder(maxWindowsPerFrame int) *Builder {
	return &Builder{
		seen:               make(map[matrix.Window]struct{}),
		sprites:            make(map[string]Range),
		processed:          make(map[rangePair]struct{}),
		maxWindowsPerFrame: maxWindowsPerFrame,
	}
}

// AddPalettes appends palettes to the bank and returns their id range.
func (b *Builder) AddPalettes(ps ...palette.Palette) Range {
	r := Range{Start: len(b.bank.Palettes)}
	b.bank.Palettes = append(b.bank.Palettes, ps...)
	r.End = len(b.bank.Palettes)
	return r
}

// Palette returns a bank palette by id.
func (b *Builder) Palette(id int) palette.Palette {
	return b.bank.Palettes[id]
}

// Sprite returns the window range of a sprite added earlier.
func (b *Builder) Sprite(name string) (Range, bool) {
	r, ok := b.sprites[name]
	return r, ok
}

// AddSprite cuts the frames of a cell-compressed sprite into windows once
// per sprite name and returns the sprite's window range.
func (b *Builder) AddSprite(name string, dcc *formats.DCC) Range {
	if r, ok := b.sprites[name]; ok {
		return r
	}

	r := Range{Start: len(b.bank.Windows)}
	for d := range dcc.Directions {
		dir := &dcc.Directions[d]
		for f := range dir.Frames {
			kept := 0
			for _, w := range FrameWindows(matrix.FromDCCFrame(dir, f)) {
				if kept == b.maxWindowsPerFrame {
					break
				}
				if _, ok := b.seen[w]; ok {
					continue
				}
				b.bank.Windows = append(b.bank.Windows, w)
				kept++
			}
		}
	}
	r.End = len(b.bank.Windows)
	b.sprites[name] = r
	return r
}

// AddEntries records every window of the range under every palette of the
// range whose transformed window is valid and not yet indexed.
func (b *Builder) AddEntries(windows, palettes Range) {
	key := rangePair{windows, palettes}
	if _, ok := b.processed[key]; ok {
		return
	}
	b.processed[key] = struct{}{}

	for w := windows.Start; w < windows.End; w++ {
		for p := palettes.Start; p < palettes.End; p++ {
			tw := transform(b.bank.Windows[w], &b.bank.Palettes[p])
			if !IsValid(tw) {
				continue
			}
			if _, ok := b.seen[tw]; ok {
				continue
			}
			b.seen[tw] = struct{}{}
			b.entries = append(b.entries, Entry{MatrixID: uint32(w), PaletteID: uint16(p)})
		}
	}
}

// NumEntries returns the number of recorded entries.
func (b *Builder) NumEntries() int {
	return len(b.entries)
}

// Build indexes the recorded entries.
func (b *Builder) Build() (*Tree, error) {
	if len(b.bank.Palettes) > math.MaxUint16+1 {
		return nil, fmt.Errorf("too many palettes: %d", len(b.bank.Palettes))
	}
	return NewTree(b.bank, b.entries)
}
