package agent

import "github.com/Faultbox/d2sight/pkg/geom"

// Screen geometry of walking clicks.
const (
	MiddleRow  = 290
	MiddleCol  = 400
	TileScale  = 40
	ScreenRows = 552
	ScreenCols = 800
)

// PathDiffs returns the steps between consecutive path tiles.
func PathDiffs(path []geom.PointU16) []geom.PointI32 {
	if len(path) < 2 {
		return nil
	}
	diffs := make([]geom.PointI32, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		diffs = append(diffs, path[i+1].I32().Sub(path[i].I32()))
	}
	return diffs
}

func clamp(v, hi int32) uint16 {
	return uint16(max(0, min(v, hi-1)))
}

// ClickPoints turns a tile path into window points to click. The walk is
// projected from the screen middle; a click is emitted whenever the target
// leaves the screen, clamped to its edge, plus a final click on the path end
// when it is still on screen.
func ClickPoints(path []geom.PointU16) []geom.PointU16 {
	var (
		points   []geom.PointU16
		pos      geom.PointI32
		finalHop bool
	)
	for _, d := range PathDiffs(path) {
		finalHop = true
		pos = pos.Add(geom.PointI32{Row: d.Row * TileScale, Col: d.Col * TileScale})

		row, col := pos.Row+MiddleRow, pos.Col+MiddleCol
		if row < 0 || row >= ScreenRows || col < 0 || col >= ScreenCols {
			points = append(points, geom.Pt(clamp(row, ScreenRows), clamp(col, ScreenCols)))
			finalHop = false
		}
	}
	if finalHop {
		points = append(points, geom.Pt(clamp(pos.Row+MiddleRow, ScreenRows), clamp(pos.Col+MiddleCol, ScreenCols)))
	}
	return points
}
