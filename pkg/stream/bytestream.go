// Package stream provides cursor-style readers over byte slices: a byte
// stream for the aligned little-endian sprite headers and a bit stream for
// the bit-packed cell format.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a read runs past the end of the data.
var ErrTruncated = errors.New("truncated stream")

// ByteStream reads little-endian values from a byte slice.
type ByteStream struct {
	data   []byte
	offset int
}

// NewByteStream creates a stream positioned at the start of data.
func NewByteStream(data []byte) *ByteStream {
	return &ByteStream{data: data}
}

// Offset returns the current read position.
func (s *ByteStream) Offset() int {
	return s.offset
}

// Len returns the total length of the underlying data.
func (s *ByteStream) Len() int {
	return len(s.data)
}

// Remaining returns the number of unread bytes.
func (s *ByteStream) Remaining() int {
	return len(s.data) - s.offset
}

func (s *ByteStream) need(n int, what string) error {
	if n < 0 || s.offset+n > len(s.data) {
		return fmt.Errorf("%w: reading %s (%d bytes at offset %d of %d)", ErrTruncated, what, n, s.offset, len(s.data))
	}
	return nil
}

// Seek moves the cursor to an absolute offset.
func (s *ByteStream) Seek(offset int) error {
	if offset < 0 || offset > len(s.data) {
		return fmt.Errorf("%w: seek to %d of %d", ErrTruncated, offset, len(s.data))
	}
	s.offset = offset
	return nil
}

// Skip advances the cursor by n bytes.
func (s *ByteStream) Skip(n int) error {
	if err := s.need(n, "skip"); err != nil {
		return err
	}
	s.offset += n
	return nil
}

// Uint8 reads one byte.
func (s *ByteStream) Uint8() (uint8, error) {
	if err := s.need(1, "uint8"); err != nil {
		return 0, err
	}
	v := s.data[s.offset]
	s.offset++
	return v, nil
}

// Uint16 reads a little-endian uint16.
func (s *ByteStream) Uint16() (uint16, error) {
	if err := s.need(2, "uint16"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(s.data[s.offset:])
	s.offset += 2
	return v, nil
}

// Uint32 reads a little-endian uint32.
func (s *ByteStream) Uint32() (uint32, error) {
	if err := s.need(4, "uint32"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(s.data[s.offset:])
	s.offset += 4
	return v, nil
}

// Int32 reads a little-endian int32.
func (s *ByteStream) Int32() (int32, error) {
	v, err := s.Uint32()
	return int32(v), err
}

// Bytes returns the next n bytes. The returned slice aliases the stream data.
func (s *ByteStream) Bytes(n int) ([]byte, error) {
	if err := s.need(n, "bytes"); err != nil {
		return nil, err
	}
	b := s.data[s.offset : s.offset+n : s.offset+n]
	s.offset += n
	return b, nil
}
