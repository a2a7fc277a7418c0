package window

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Kind selects how a matcher's palette bank is expanded.
type Kind int

const (
	// KindArea matches every monster of an area, optionally in their
	// unique and champion colourings.
	KindArea Kind = iota
	// KindMonster matches a single monster or NPC.
	KindMonster
)

// Assets reads logical paths from the named archives.
type Assets interface {
	ReadFirst(path string, names ...string) ([]byte, error)
}

// Options configures bank construction.
type Options struct {
	Kind                   Kind
	MaxWindowsPerFrame     int
	MatchUniqueAndChampion bool
}

// Palettes are the act palettes a bank is expanded with.
type Palettes struct {
	LightRadius    []palette.Palette
	RandTransforms []palette.Palette
}

// Assemble builds a matcher for monsters. Sprites that cannot be read are
// skipped.
func Assemble(assets Assets, monsters []Monster, pals Palettes, opts Options) (*Tree, error) {
	start := time.Now()
	b := NewBuilder(opts.MaxWindowsPerFrame)

	base := b.AddPalettes(palette.Neutral())
	base.End = b.AddPalettes(pals.LightRadius...).End

	variants := Range{Start: base.End, End: base.End}
	if opts.Kind == KindArea && opts.MatchUniqueAndChampion {
		all := b.bank.Palettes[base.Start:base.End]
		variants = b.AddPalettes(palette.CombineMultiple(all, pals.RandTransforms)...)
	}

	groups := make(map[string][]Monster)
	for _, m := range monsters {
		groups[m.Code] = append(groups[m.Code], m)
	}
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		var shifts []palette.Palette
		if data, err := assets.ReadFirst(archive.PalShiftPath(code), archive.Data); err == nil {
			if shifts, err = formats.ParsePaletteBank(data); err != nil {
				logger.Warn("bad palshift bank", zap.String("code", code), zap.Error(err))
			}
		}

		for _, m := range groups[code] {
			pr := monsterPalettes(b, base, shifts, m.PalShiftID)

			for _, path := range m.Sprites {
				data, err := assets.ReadFirst(path, archive.Data, archive.Expansion)
				if err != nil {
					logger.Debug("sprite not found", zap.String("path", path))
					continue
				}
				dcc, err := formats.ParseDCC(data)
				if err != nil {
					return nil, fmt.Errorf("decoding %s: %w", path, err)
				}

				wr := b.AddSprite(path, dcc)
				b.AddEntries(wr, pr)
				if opts.Kind == KindArea {
					b.AddEntries(wr, variants)
				}
			}
		}
	}

	logger.Info("matcher bank assembled",
		zap.Int("windows", len(b.bank.Windows)),
		zap.Int("palettes", len(b.bank.Palettes)),
		zap.Int("entries", b.NumEntries()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return b.Build()
}

// monsterPalettes returns the palette range a monster is drawn with: the
// base range, or the base range composed with the monster's palette shift.
func monsterPalettes(b *Builder, base Range, shifts []palette.Palette, id int) Range {
	idx := 2 + id
	if idx < 0 || idx >= len(shifts) || shifts[idx].IsNeutral() {
		return base
	}
	shift := shifts[idx]

	shifted := make([]palette.Palette, 0, base.Len())
	for i := base.Start; i < base.End; i++ {
		shifted = append(shifted, palette.Compose(b.Palette(i), shift))
	}
	return b.AddPalettes(shifted...)
}
