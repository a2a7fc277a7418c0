package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/d2sight/pkg/stream"
)

// DCC format errors.
var (
	ErrInvalidDCCSignature = errors.New("invalid DCC signature: expected 116")
	ErrInvalidDCCTag       = errors.New("invalid DCC tag: expected 1")
	ErrTruncatedDCCData    = errors.New("truncated DCC data")
)

const (
	dccSignature = 116
	dccCellSize  = 4
)

// bitsWidthTable maps a 4-bit field width code to the field's bit width.
var bitsWidthTable = [16]uint{0, 1, 2, 4, 6, 8, 10, 12, 14, 16, 20, 24, 26, 28, 30, 32}

// numPixelTable gives the number of set bits of a 4-bit pixel mask.
var numPixelTable = [16]int{0, 1, 1, 2, 1, 2, 2, 3, 1, 2, 2, 3, 2, 3, 3, 4}

// DCCBox is an inclusive bounding box in sprite space.
type DCCBox struct {
	RowMin, ColMin int
	RowMax, ColMax int
}

// Height returns the number of rows in the box.
func (b DCCBox) Height() int { return b.RowMax - b.RowMin + 1 }

// Width returns the number of columns in the box.
func (b DCCBox) Width() int { return b.ColMax - b.ColMin + 1 }

// DCCFrameHeader holds the per-frame fields of a direction.
type DCCFrameHeader struct {
	Variable0    uint32
	Width        uint32
	Height       uint32
	ColOffset    int32
	RowOffset    int32
	OptionalData uint32
	CodedBytes   uint32
	BottomUp     bool
}

// Box computes the frame's bounding box.
func (h DCCFrameHeader) Box() DCCBox {
	var b DCCBox
	if h.BottomUp {
		b.RowMin = int(h.RowOffset)
		b.RowMax = b.RowMin + int(h.Height) - 1
	} else {
		b.RowMax = int(h.RowOffset)
		b.RowMin = b.RowMax - int(h.Height) + 1
	}
	b.ColMin = int(h.ColOffset)
	b.ColMax = b.ColMin + int(h.Width) - 1
	return b
}

// DCCFrame is one decoded frame. Pixels covers the whole direction box so
// all frames of a direction share one coordinate system.
type DCCFrame struct {
	Header   DCCFrameHeader
	Box      DCCBox
	Optional []byte
	Pixels   []byte
}

// DCCDirection holds the decoded frames of one direction.
type DCCDirection struct {
	Box    DCCBox
	Frames []DCCFrame
}

// Width returns the width of every frame raster in the direction.
func (d *DCCDirection) Width() int { return d.Box.Width() }

// Height returns the height of every frame raster in the direction.
func (d *DCCDirection) Height() int { return d.Box.Height() }

// DCC represents a decoded cell-compressed sprite container.
type DCC struct {
	Version    uint8
	Directions []DCCDirection
}

// ParseDCC parses and fully decodes a DCC container.
//
// Bit-stream over-reads inside a direction panic: they only happen for
// corrupt assets.
func ParseDCC(data []byte) (*DCC, error) {
	s := stream.NewByteStream(data)

	sig, err := s.Uint8()
	if err != nil {
		return nil, fmt.Errorf("%w: reading signature", ErrTruncatedDCCData)
	}
	if sig != dccSignature {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDCCSignature, sig)
	}

	version, err := s.Uint8()
	if err != nil {
		return nil, fmt.Errorf("%w: reading version", ErrTruncatedDCCData)
	}
	numDirections, err := s.Uint8()
	if err != nil {
		return nil, fmt.Errorf("%w: reading direction count", ErrTruncatedDCCData)
	}
	framesPerDirection, err := s.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: reading frame count", ErrTruncatedDCCData)
	}
	tag, err := s.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: reading tag", ErrTruncatedDCCData)
	}
	if tag != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDCCTag, tag)
	}
	// total size of the encoded directions
	if _, err := s.Uint32(); err != nil {
		return nil, fmt.Errorf("%w: reading total size", ErrTruncatedDCCData)
	}

	offsets := make([]uint32, numDirections)
	for i := range offsets {
		if offsets[i], err = s.Uint32(); err != nil {
			return nil, fmt.Errorf("%w: reading direction offset %d", ErrTruncatedDCCData, i)
		}
		if int(offsets[i]) >= len(data) {
			return nil, fmt.Errorf("%w: direction %d at offset %d", ErrTruncatedDCCData, i, offsets[i])
		}
	}

	dcc := &DCC{Version: version, Directions: make([]DCCDirection, numDirections)}
	for i, off := range offsets {
		dcc.Directions[i] = decodeDCCDirection(data[off:], int(uint8(framesPerDirection)))
	}
	return dcc, nil
}

// ParseDCCFile parses a DCC file from disk.
func ParseDCCFile(path string) (*DCC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DCC file: %w", err)
	}
	return ParseDCC(data)
}

type dccDirectionHeader struct {
	compression  uint32
	variable0    uint
	width        uint
	height       uint
	colOffset    uint
	rowOffset    uint
	optionalData uint
	codedBytes   uint
}

func readDCCDirectionHeader(bs *stream.BitStream) dccDirectionHeader {
	// encoded size of the direction
	bs.Bits(32)

	return dccDirectionHeader{
		compression:  bs.Bits(2),
		variable0:    bitsWidthTable[bs.Bits(4)],
		width:        bitsWidthTable[bs.Bits(4)],
		height:       bitsWidthTable[bs.Bits(4)],
		colOffset:    bitsWidthTable[bs.Bits(4)],
		rowOffset:    bitsWidthTable[bs.Bits(4)],
		optionalData: bitsWidthTable[bs.Bits(4)],
		codedBytes:   bitsWidthTable[bs.Bits(4)],
	}
}

func readDCCFrameHeader(bs *stream.BitStream, dh dccDirectionHeader) DCCFrameHeader {
	return DCCFrameHeader{
		Variable0:    bs.Bits(dh.variable0),
		Width:        bs.Bits(dh.width),
		Height:       bs.Bits(dh.height),
		ColOffset:    bs.SignedBits(dh.colOffset),
		RowOffset:    bs.SignedBits(dh.rowOffset),
		OptionalData: bs.Bits(dh.optionalData),
		CodedBytes:   bs.Bits(dh.codedBytes),
		BottomUp:     bs.Bit(),
	}
}

// dccStreams are the cursors of one direction's parallel bit streams over
// the same bytes. A nil stream is absent for this compression flag.
type dccStreams struct {
	equalCell    *stream.BitStream
	pixelMask    *stream.BitStream
	encodingType *stream.BitStream
	rawPixel     *stream.BitStream
	pixelCode    *stream.BitStream
}

func readDCCStreams(bs *stream.BitStream, data []byte, compression uint32) (dccStreams, [256]byte) {
	var equalCellSize, encodingTypeSize, rawPixelSize uint64
	if compression&2 != 0 {
		equalCellSize = uint64(bs.Bits(20))
	}
	pixelMaskSize := uint64(bs.Bits(20))
	if compression&1 != 0 {
		encodingTypeSize = uint64(bs.Bits(20))
		rawPixelSize = uint64(bs.Bits(20))
	}

	pixelValues := readDCCPixelValues(bs)

	pos := bs.BitPosition()
	next := func(size uint64) *stream.BitStream {
		s := stream.NewBitStreamAt(data, pos)
		pos += size
		return s
	}

	var st dccStreams
	if compression&2 != 0 {
		st.equalCell = next(equalCellSize)
	}
	st.pixelMask = next(pixelMaskSize)
	if compression&1 != 0 {
		st.encodingType = next(encodingTypeSize)
		st.rawPixel = next(rawPixelSize)
	}
	st.pixelCode = next(0)

	return st, pixelValues
}

// readDCCPixelValues reads the 256-bit key listing which palette indices the
// direction uses, compacted in ascending order.
func readDCCPixelValues(bs *stream.BitStream) [256]byte {
	var values [256]byte
	c := 0
	for i := 0; i < 256; i++ {
		if bs.Bit() {
			values[c] = byte(i)
			c++
		}
	}
	return values
}

// dccCell is one rectangle of a frame's cell grid in direction coordinates.
type dccCell struct {
	row, col      int
	height, width int
}

type dccCellGrid struct {
	rows, cols int
	cells      []dccCell
}

// dccEntry is one pixel-buffer entry: up to four colours for a cell of a frame.
type dccEntry struct {
	pixels    [4]byte
	frame     int
	frameCell int
}

// DCCCellSizes splits a frame extent into cell sizes. The first cell ends on
// the direction's 4-pixel lattice, interior cells are 4 wide and the last
// cell takes the remainder.
func DCCCellSizes(frameSize, frameMin, dirMin int) []int {
	first := dccCellSize - (frameMin-dirMin)%dccCellSize

	n := 1
	if frameSize-first > 1 {
		tmp := frameSize - first - 1
		n = 2 + tmp/dccCellSize
		if tmp%dccCellSize == 0 {
			n--
		}
	}

	if n == 1 {
		return []int{frameSize}
	}

	sizes := make([]int, 0, n)
	sizes = append(sizes, first)
	for i := 1; i < n-1; i++ {
		sizes = append(sizes, dccCellSize)
	}
	return append(sizes, frameSize-first-dccCellSize*(n-2))
}

func dccFrameCells(dir, frame DCCBox) dccCellGrid {
	heights := DCCCellSizes(frame.Height(), frame.RowMin, dir.RowMin)
	widths := DCCCellSizes(frame.Width(), frame.ColMin, dir.ColMin)

	grid := dccCellGrid{rows: len(heights), cols: len(widths)}
	grid.cells = make([]dccCell, 0, len(heights)*len(widths))

	row := frame.RowMin - dir.RowMin
	for _, h := range heights {
		col := frame.ColMin - dir.ColMin
		for _, w := range widths {
			grid.cells = append(grid.cells, dccCell{row: row, col: col, height: h, width: w})
			col += w
		}
		row += h
	}
	return grid
}

func decodeDCCDirection(data []byte, numFrames int) DCCDirection {
	bs := stream.NewBitStream(data)
	dh := readDCCDirectionHeader(bs)

	frames := make([]DCCFrame, numFrames)
	hasOptional := false
	for i := range frames {
		frames[i].Header = readDCCFrameHeader(bs, dh)
		frames[i].Box = frames[i].Header.Box()
		if frames[i].Header.OptionalData > 0 {
			hasOptional = true
		}
	}

	if hasOptional {
		bs.Align()
		for i := range frames {
			frames[i].Optional = bs.AlignedBytes(int(frames[i].Header.OptionalData))
		}
	}

	if numFrames == 0 {
		return DCCDirection{}
	}

	dir := frames[0].Box
	for _, f := range frames[1:] {
		dir.RowMin = min(dir.RowMin, f.Box.RowMin)
		dir.ColMin = min(dir.ColMin, f.Box.ColMin)
		dir.RowMax = max(dir.RowMax, f.Box.RowMax)
		dir.ColMax = max(dir.ColMax, f.Box.ColMax)
	}

	streams, pixelValues := readDCCStreams(bs, data, dh.compression)

	grids := make([]dccCellGrid, numFrames)
	for i := range frames {
		grids[i] = dccFrameCells(dir, frames[i].Box)
	}

	entries := dccPixelBuffer(&streams, dir, frames, grids)
	for i := range entries {
		for j, v := range entries[i].pixels {
			entries[i].pixels[j] = pixelValues[v]
		}
	}

	dccPaintFrames(streams.pixelCode, dir, frames, grids, entries)

	return DCCDirection{Box: dir, Frames: frames}
}

// dccPixelBuffer runs the first decoding phase: it decides for every cell of
// every frame whether it reuses the previous colours at that buffer position
// or streams new ones.
func dccPixelBuffer(st *dccStreams, dir DCCBox, frames []DCCFrame, grids []dccCellGrid) []dccEntry {
	bufRows := 1 + (dir.Height()-1)/dccCellSize
	bufCols := 1 + (dir.Width()-1)/dccCellSize

	cellBuffer := make([]int, bufRows*bufCols)
	for i := range cellBuffer {
		cellBuffer[i] = -1
	}

	var entries []dccEntry

	for f := range frames {
		grid := grids[f]
		rowOffset := (frames[f].Box.RowMin - dir.RowMin) / dccCellSize
		colOffset := (frames[f].Box.ColMin - dir.ColMin) / dccCellSize

		for row := 0; row < grid.rows; row++ {
			for col := 0; col < grid.cols; col++ {
				bufID := (rowOffset+row)*bufCols + colOffset + col
				old := cellBuffer[bufID]

				var pixels [4]byte

				if old != -1 {
					// the equal-cell bit exists only for cells with a prior entry
					if st.equalCell != nil && st.equalCell.Bit() {
						continue
					}

					mask := st.pixelMask.Byte(4)
					indices, n := dccStreamIndices(st, numPixelTable[mask])
					cur := n - 1
					for i := 0; i < 4; i++ {
						if mask&(1<<i) != 0 {
							if cur >= 0 {
								pixels[i] = indices[cur]
								cur--
							}
						} else {
							pixels[i] = entries[old].pixels[i]
						}
					}
				} else {
					indices, n := dccStreamIndices(st, 4)
					cur := n - 1
					for i := 0; i < 4 && cur >= 0; i++ {
						pixels[i] = indices[cur]
						cur--
					}
				}

				cellBuffer[bufID] = len(entries)
				entries = append(entries, dccEntry{
					pixels:    pixels,
					frame:     f,
					frameCell: row*grid.cols + col,
				})
			}
		}
	}

	return entries
}

// dccStreamIndices reads up to n ascending palette-key indices. A value equal
// to its predecessor terminates the pack early.
func dccStreamIndices(st *dccStreams, n int) ([4]byte, int) {
	var indices [4]byte
	if n == 0 {
		return indices, 0
	}

	if st.encodingType != nil && st.encodingType.Bit() {
		var last byte
		c := 0
		for i := 0; i < n; i++ {
			v := st.rawPixel.Byte(8)
			if v == last {
				break
			}
			indices[i] = v
			last = v
			c++
		}
		return indices, c
	}

	var last byte
	c := 0
	for i := 0; i < n; i++ {
		v := last
		displ := st.pixelCode.Byte(4)
		v += displ
		for displ == 15 {
			displ = st.pixelCode.Byte(4)
			v += displ
		}
		if v == last {
			break
		}
		indices[i] = v
		last = v
		c++
	}
	return indices, c
}

// dccPaintFrames runs the second decoding phase, painting every cell into a
// direction-sized canvas and copying it into the frame raster.
func dccPaintFrames(pixelCode *stream.BitStream, dir DCCBox, frames []DCCFrame, grids []dccCellGrid, entries []dccEntry) {
	width, height := dir.Width(), dir.Height()
	canvas := make([]byte, width*height)

	bufCols := 1 + (width-1)/dccCellSize
	bufRows := 1 + (height-1)/dccCellSize
	bufCells := make([]dccCell, bufRows*bufCols)

	next := 0

	for f := range frames {
		raster := make([]byte, width*height)

		for c, cell := range grids[f].cells {
			buf := &bufCells[(cell.row/dccCellSize)*bufCols+cell.col/dccCellSize]

			switch {
			case next < len(entries) && entries[next].frame == f && entries[next].frameCell == c:
				e := entries[next]
				if e.pixels[0] == e.pixels[1] {
					fillCell(canvas, width, cell, e.pixels[0])
				} else {
					bits := uint(2)
					if e.pixels[1] == e.pixels[2] {
						bits = 1
					}
					for r := cell.row; r < cell.row+cell.height; r++ {
						for col := cell.col; col < cell.col+cell.width; col++ {
							canvas[r*width+col] = e.pixels[pixelCode.Byte(bits)]
						}
					}
				}
				copyCell(raster, canvas, width, cell)
				next++

			case cell.height == buf.height && cell.width == buf.width:
				// copied element-wise, row-major: source and target may overlap
				for r := 0; r < cell.height; r++ {
					for col := 0; col < cell.width; col++ {
						canvas[(cell.row+r)*width+cell.col+col] = canvas[(buf.row+r)*width+buf.col+col]
					}
				}
				copyCell(raster, canvas, width, cell)

			default:
				fillCell(canvas, width, cell, 0)
			}

			*buf = cell
		}

		frames[f].Pixels = raster
	}
}

func fillCell(dst []byte, width int, cell dccCell, v byte) {
	for r := cell.row; r < cell.row+cell.height; r++ {
		line := dst[r*width+cell.col : r*width+cell.col+cell.width]
		for i := range line {
			line[i] = v
		}
	}
}

func copyCell(dst, src []byte, width int, cell dccCell) {
	for r := cell.row; r < cell.row+cell.height; r++ {
		off := r*width + cell.col
		copy(dst[off:off+cell.width], src[off:off+cell.width])
	}
}
