package stream

import "fmt"

// BitStream reads little-endian bit fields, least significant bit first,
// from a byte slice. Several bit streams may share one slice, each with its
// own cursor.
//
// Reading past the end of the data panics: the cell format gives no length
// for the individual streams, so an over-read means the asset is corrupt.
type BitStream struct {
	data       []byte
	byteOffset int
	bitOffset  uint
}

// NewBitStream creates a bit stream positioned at the start of data.
func NewBitStream(data []byte) *BitStream {
	return &BitStream{data: data}
}

// NewBitStreamAt creates a bit stream over data starting bitOffset bits in.
func NewBitStreamAt(data []byte, bitOffset uint64) *BitStream {
	return &BitStream{
		data:       data,
		byteOffset: int(bitOffset / 8),
		bitOffset:  uint(bitOffset % 8),
	}
}

// BitPosition returns the absolute cursor position in bits.
func (s *BitStream) BitPosition() uint64 {
	return uint64(s.byteOffset)*8 + uint64(s.bitOffset)
}

// ByteOffset returns the index of the byte holding the next bit.
func (s *BitStream) ByteOffset() int {
	return s.byteOffset
}

// Aligned reports whether the cursor sits on a byte boundary.
func (s *BitStream) Aligned() bool {
	return s.bitOffset == 0
}

// Align advances the cursor to the next byte boundary.
func (s *BitStream) Align() {
	if s.bitOffset != 0 {
		s.bitOffset = 0
		s.byteOffset++
	}
}

// Bit reads a single bit.
func (s *BitStream) Bit() bool {
	if s.byteOffset >= len(s.data) {
		panic(fmt.Sprintf("bit stream over-read at byte %d of %d", s.byteOffset, len(s.data)))
	}
	v := s.data[s.byteOffset]>>s.bitOffset&1 == 1
	s.bitOffset++
	if s.bitOffset == 8 {
		s.bitOffset = 0
		s.byteOffset++
	}
	return v
}

// Bits reads n bits (n <= 32) as an unsigned value.
func (s *BitStream) Bits(n uint) uint32 {
	if n > 32 {
		panic(fmt.Sprintf("bit stream read of %d bits exceeds 32", n))
	}
	var v uint32
	for i := uint(0); i < n; i++ {
		if s.Bit() {
			v |= 1 << i
		}
	}
	return v
}

// Byte reads n bits (n <= 8) into a byte.
func (s *BitStream) Byte(n uint) uint8 {
	if n > 8 {
		panic(fmt.Sprintf("bit stream byte read of %d bits exceeds 8", n))
	}
	return uint8(s.Bits(n))
}

// SignedBits reads n bits as a two's complement value.
func (s *BitStream) SignedBits(n uint) int32 {
	switch n {
	case 0:
		return 0
	case 1:
		if s.Bit() {
			return -1
		}
		return 0
	}

	v := s.Bits(n)
	if v&(1<<(n-1)) != 0 && n < 32 {
		v |= ^uint32(0) << n
	}
	return int32(v)
}

func (s *BitStream) mustBeAligned(op string) {
	if s.bitOffset != 0 {
		panic(fmt.Sprintf("bit stream %s at unaligned bit offset %d", op, s.bitOffset))
	}
}

// AlignedByte reads a whole byte. The cursor must be on a byte boundary.
func (s *BitStream) AlignedByte() uint8 {
	s.mustBeAligned("aligned byte read")
	if s.byteOffset >= len(s.data) {
		panic(fmt.Sprintf("bit stream over-read at byte %d of %d", s.byteOffset, len(s.data)))
	}
	v := s.data[s.byteOffset]
	s.byteOffset++
	return v
}

// AlignedUint32 reads a little-endian uint32. The cursor must be on a byte boundary.
func (s *BitStream) AlignedUint32() uint32 {
	s.mustBeAligned("aligned uint32 read")
	var v uint32
	for i := 0; i < 4; i++ {
		v |= uint32(s.AlignedByte()) << (8 * i)
	}
	return v
}

// AlignedBytes reads n whole bytes. The cursor must be on a byte boundary.
func (s *BitStream) AlignedBytes(n int) []byte {
	s.mustBeAligned("aligned bytes read")
	if s.byteOffset+n > len(s.data) {
		panic(fmt.Sprintf("bit stream over-read of %d bytes at byte %d of %d", n, s.byteOffset, len(s.data)))
	}
	b := s.data[s.byteOffset : s.byteOffset+n : s.byteOffset+n]
	s.byteOffset += n
	return b
}
