package palette

// Pixel is a 24-bit RGB colour.
type Pixel struct {
	R, G, B uint8
}

// Transparent is the sentinel pixel marking see-through screen regions. Any
// pixel with a saturated red channel contracts like it.
var Transparent = Pixel{R: 255, G: 255, B: 255}

// saturated reports whether any channel is at 255. Game palettes only use
// 255 in the transparent sentinel.
func (p Pixel) saturated() bool {
	return p.R == 255 || p.G == 255 || p.B == 255
}

// TransparentIndex is the raster index the transparent sentinel contracts to.
const TransparentIndex = 255

// LUTSize is the number of entries of the contraction table.
const LUTSize = 64 * 64 * 64

// Pack6 keys a pixel by the top six bits of each channel.
func Pack6(p Pixel) int {
	return int(p.R>>2)<<12 | int(p.G>>2)<<6 | int(p.B>>2)
}

// PixelPalette holds the 256 colours an indexed raster is drawn with.
type PixelPalette [Size]Pixel

// Expand maps an indexed raster back to colours.
func (pp *PixelPalette) Expand(data []byte) []Pixel {
	out := make([]Pixel, len(data))
	for i, v := range data {
		out[i] = pp[v]
	}
	return out
}

// Contractor maps 24-bit pixels to palette indices through a 2^18 entry LUT.
type Contractor struct {
	lut []byte
}

// NewContractor builds the LUT for a pixel palette. Entries for colours the
// palette does not contain stay 0, the transparent raster value. Palette
// colours with a saturated channel are left out.
func NewContractor(pixels *PixelPalette) *Contractor {
	lut := make([]byte, LUTSize)
	for i, px := range pixels {
		if px.saturated() {
			continue
		}
		lut[Pack6(px)] = byte(i)
	}
	return &Contractor{lut: lut}
}

// Contract maps one pixel to its palette index. A red channel of 255 always
// gives TransparentIndex.
func (c *Contractor) Contract(p Pixel) byte {
	if p.R == 255 {
		return TransparentIndex
	}
	return c.lut[Pack6(p)]
}

// ContractSlice maps a row-major pixel slice to an indexed raster.
func (c *Contractor) ContractSlice(pixels []Pixel) []byte {
	out := make([]byte, len(pixels))
	for i, p := range pixels {
		out[i] = c.Contract(p)
	}
	return out
}
