package palette

// Quality is the rarity tint of an item name on screen.
type Quality int

const (
	Grey Quality = iota
	Common
	Magic
	Rare
	Set
	Unique
	Rune
)

var qualityNames = [...]string{"grey", "common", "magic", "rare", "set", "unique", "rune"}

func (q Quality) String() string {
	if q < Grey || q > Rune {
		return "unknown"
	}
	return qualityNames[q]
}

// QualityPalette pairs a quality with the palette that tints white font glyphs.
type QualityPalette struct {
	Quality Quality
	Palette Palette
}
