package mosaic

import (
	"image"
	"image/color"

	"github.com/Faultbox/d2sight/pkg/geom"
)

// walkedShade is the brightness added per walk over a tile.
const walkedShade = 30

// Image renders the grid for debugging: walls white, walkable tiles shaded
// cyan by walked count, the path red with its first point yellow.
func (g *Grid) Image(path []geom.PointU16) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(g.Dims.Col), int(g.Dims.Row)))

	for i, t := range g.Tiles {
		x, y := i%int(g.Dims.Col), i/int(g.Dims.Col)
		if !t.Walkable.IsWalkable() {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			continue
		}
		shade := uint8(min(t.WalkedCount*walkedShade, 255))
		img.SetRGBA(x, y, color.RGBA{G: shade, B: shade, A: 255})
	}

	for _, p := range path {
		if !g.inBounds(int(p.Row), int(p.Col)) {
			continue
		}
		c := img.RGBAAt(int(p.Col), int(p.Row))
		c.R = 255
		img.SetRGBA(int(p.Col), int(p.Row), c)
	}
	if len(path) > 0 && g.inBounds(int(path[0].Row), int(path[0].Col)) {
		c := img.RGBAAt(int(path[0].Col), int(path[0].Row))
		c.G = 255
		img.SetRGBA(int(path[0].Col), int(path[0].Row), c)
	}
	return img
}
