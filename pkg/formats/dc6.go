package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/d2sight/pkg/stream"
)

// DC6 format errors.
var (
	ErrInvalidDC6Version = errors.New("invalid DC6 version: expected 6")
	ErrTruncatedDC6Data  = errors.New("truncated DC6 data")
	ErrRowOverflow       = errors.New("DC6 literal run overflows scanline")
)

const (
	dc6Version      = 6
	dc6EndOfLine    = 0x80
	dc6RunLengthMax = 0x7F
)

// DC6FrameHeader holds the placement metadata of one RLE frame.
type DC6FrameHeader struct {
	Width     uint32
	Height    uint32
	OffsetRow int32
	OffsetCol int32
}

// DC6Frame is one run-length encoded frame. Payload aliases the file data.
type DC6Frame struct {
	DC6FrameHeader
	Payload []byte
}

// DC6Direction holds the frames of one sprite direction.
type DC6Direction struct {
	Frames []DC6Frame
}

// DC6 represents a parsed run-length encoded sprite container.
type DC6 struct {
	Directions []DC6Direction
}

// ParseDC6 parses a DC6 container. Frames are left encoded; call Decode on a
// frame to obtain its raster.
func ParseDC6(data []byte) (*DC6, error) {
	s := stream.NewByteStream(data)

	version, err := s.Int32()
	if err != nil {
		return nil, fmt.Errorf("%w: reading version", ErrTruncatedDC6Data)
	}
	if version != dc6Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDC6Version, version)
	}

	// flags, encoding, termination
	if err := s.Skip(12); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedDC6Data)
	}

	numDirections, err := s.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: reading direction count", ErrTruncatedDC6Data)
	}
	framesPerDirection, err := s.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: reading frame count", ErrTruncatedDC6Data)
	}

	indexSize := uint64(numDirections) * uint64(framesPerDirection) * 4
	if indexSize > uint64(s.Remaining()) {
		return nil, fmt.Errorf("%w: frame index of %d bytes", ErrTruncatedDC6Data, indexSize)
	}
	_ = s.Skip(int(indexSize))

	dc6 := &DC6{Directions: make([]DC6Direction, numDirections)}
	for d := range dc6.Directions {
		frames := make([]DC6Frame, framesPerDirection)
		for f := range frames {
			frame, err := parseDC6Frame(s)
			if err != nil {
				return nil, fmt.Errorf("direction %d frame %d: %w", d, f, err)
			}
			frames[f] = frame
		}
		dc6.Directions[d].Frames = frames
	}

	return dc6, nil
}

// ParseDC6File parses a DC6 file from disk.
func ParseDC6File(path string) (*DC6, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DC6 file: %w", err)
	}
	return ParseDC6(data)
}

func parseDC6Frame(s *stream.ByteStream) (DC6Frame, error) {
	var f DC6Frame

	// flipped flag
	if err := s.Skip(4); err != nil {
		return f, fmt.Errorf("%w: reading flip flag", ErrTruncatedDC6Data)
	}

	var err error
	if f.Width, err = s.Uint32(); err != nil {
		return f, fmt.Errorf("%w: reading width", ErrTruncatedDC6Data)
	}
	if f.Height, err = s.Uint32(); err != nil {
		return f, fmt.Errorf("%w: reading height", ErrTruncatedDC6Data)
	}
	if f.OffsetRow, err = s.Int32(); err != nil {
		return f, fmt.Errorf("%w: reading row offset", ErrTruncatedDC6Data)
	}
	if f.OffsetCol, err = s.Int32(); err != nil {
		return f, fmt.Errorf("%w: reading col offset", ErrTruncatedDC6Data)
	}

	// unknown, next block
	if err := s.Skip(8); err != nil {
		return f, fmt.Errorf("%w: reading block link", ErrTruncatedDC6Data)
	}

	length, err := s.Uint32()
	if err != nil {
		return f, fmt.Errorf("%w: reading payload length", ErrTruncatedDC6Data)
	}
	if f.Payload, err = s.Bytes(int(length)); err != nil {
		return f, fmt.Errorf("%w: reading %d payload bytes", ErrTruncatedDC6Data, length)
	}

	if err := s.Skip(3); err != nil {
		return f, fmt.Errorf("%w: reading terminator", ErrTruncatedDC6Data)
	}

	return f, nil
}

// Decode expands the frame into a row-major Width*Height raster. Rows are
// encoded bottom-up; the first end-of-line marker on row 0 ends the frame
// and any bytes after it are ignored.
func (f *DC6Frame) Decode() ([]byte, error) {
	width, height := int(f.Width), int(f.Height)
	raster := make([]byte, width*height)
	if height == 0 {
		return raster, nil
	}

	row, col := height-1, 0
	payload := f.Payload
	i := 0

	for {
		if i >= len(payload) {
			return nil, fmt.Errorf("%w: payload ended on row %d", ErrTruncatedDC6Data, row)
		}
		b := payload[i]
		i++

		switch {
		case b == dc6EndOfLine:
			if row == 0 {
				return raster, nil
			}
			row--
			col = 0

		case b&dc6EndOfLine != 0:
			col += int(b & dc6RunLengthMax)

		default:
			n := int(b)
			if col+n > width {
				return nil, fmt.Errorf("%w: run of %d at col %d, width %d", ErrRowOverflow, n, col, width)
			}
			if i+n > len(payload) {
				return nil, fmt.Errorf("%w: literal run of %d", ErrTruncatedDC6Data, n)
			}
			copy(raster[row*width+col:], payload[i:i+n])
			i += n
			col += n
		}
	}
}
