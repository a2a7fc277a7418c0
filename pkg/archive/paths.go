package archive

import "fmt"

// Logical paths of the assets the vision pipeline reads.
const (
	ActPalettePath     = `data\global\palette\ACT1\Pal.PL2`
	RandTransformsPath = `data\global\monsters\RandTransforms.dat`
	FontPath           = `data\local\font\latin\font16.DC6`
	MaxiMapPath        = `data\global\ui\AUTOMAP\MaxiMap.dc6`
	AutoMapPath        = `data\global\excel\AutoMap.txt`
)

// PalShiftPath returns the palette-shift bank path of a monster.
func PalShiftPath(monsterCode string) string {
	return fmt.Sprintf(`data\global\monsters\%s\COF\palshift.dat`, monsterCode)
}

// PalettePath returns the Pal.PL2 path of an act (1..5).
func PalettePath(act int) string {
	return fmt.Sprintf(`data\global\palette\ACT%d\Pal.PL2`, act)
}

// Excel tables the monster roster is derived from.
const (
	LevelsPath    = `data\global\excel\Levels.txt`
	MonStatsPath  = `data\global\excel\monstats.txt`
	MonStats2Path = `data\global\excel\monstats2.txt`
)

// MonsterSpritePath returns the DCC path of one monster composit in one mode:
// data\global\monsters\<code>\<composit>\<code><composit><equipment><mode><weapon>.dcc.
func MonsterSpritePath(code, composit, equipment, mode, weapon string) string {
	return fmt.Sprintf(`data\global\monsters\%s\%s\%s%s%s%s%s.dcc`, code, composit, code, composit, equipment, mode, weapon)
}
