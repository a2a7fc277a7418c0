// Package formats provides parsers for the game's sprite, palette and table
// formats.
//
// DC6 frames are run-length encoded and decoded lazily per frame. DCC
// containers are cell compressed and decoded eagerly into per-direction
// rasters. PL2 act palettes, palette banks and the AutoMap table feed the
// matchers.
package formats
