package formats

import (
	"bytes"
	"encoding/binary"
)

// EncodeDC6Frame run-length encodes a row-major raster in the DC6 scanline
// layout: rows bottom-up, zero pixels as transparent skips, every row closed
// by an end-of-line marker.
func EncodeDC6Frame(raster []byte, width, height int) []byte {
	var out []byte
	for row := height - 1; row >= 0; row-- {
		line := raster[row*width : (row+1)*width]
		col := 0
		for col < width {
			if line[col] == 0 {
				n := 0
				for col < width && line[col] == 0 && n < dc6RunLengthMax {
					col++
					n++
				}
				// trailing transparency needs no skip
				if col < width {
					out = append(out, dc6EndOfLine|byte(n))
				}
				continue
			}
			start := col
			for col < width && line[col] != 0 && col-start < dc6RunLengthMax {
				col++
			}
			out = append(out, byte(col-start))
			out = append(out, line[start:col]...)
		}
		out = append(out, dc6EndOfLine)
	}
	return out
}

// MarshalDC6 serialises a container in the layout ParseDC6 reads. Every
// direction must hold the same number of frames.
func MarshalDC6(dc6 *DC6) []byte {
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	framesPerDirection := 0
	if len(dc6.Directions) > 0 {
		framesPerDirection = len(dc6.Directions[0].Frames)
	}

	w(int32(dc6Version))
	w(uint32(1)) // flags
	w(uint32(0)) // encoding
	w([4]byte{0xEE, 0xEE, 0xEE, 0xEE})
	w(uint32(len(dc6.Directions)))
	w(uint32(framesPerDirection))

	indexAt := buf.Len()
	buf.Write(make([]byte, len(dc6.Directions)*framesPerDirection*4))

	var pointers []uint32
	for _, dir := range dc6.Directions {
		for _, f := range dir.Frames {
			pointers = append(pointers, uint32(buf.Len()))
			w(uint32(0)) // flipped
			w(f.Width)
			w(f.Height)
			w(f.OffsetRow)
			w(f.OffsetCol)
			w(uint32(0)) // unknown
			w(uint32(0)) // next block
			w(uint32(len(f.Payload)))
			buf.Write(f.Payload)
			buf.Write([]byte{0xEE, 0xEE, 0xEE})
		}
	}

	data := buf.Bytes()
	for i, p := range pointers {
		binary.LittleEndian.PutUint32(data[indexAt+i*4:], p)
	}
	return data
}
