package stream

// BitWriter packs bit fields in the layout BitStream reads: little-endian,
// least significant bit first. The sprite tooling uses it to synthesise
// cell-format fixtures.
type BitWriter struct {
	data  []byte
	nbits uint64
}

// Bits appends the low n bits of v.
func (w *BitWriter) Bits(v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		w.Bit(v>>i&1 == 1)
	}
}

// SignedBits appends the low n bits of a two's complement value.
func (w *BitWriter) SignedBits(v int32, n uint) {
	w.Bits(uint32(v), n)
}

// Bit appends a single bit.
func (w *BitWriter) Bit(b bool) {
	if w.nbits%8 == 0 {
		w.data = append(w.data, 0)
	}
	if b {
		w.data[len(w.data)-1] |= 1 << (w.nbits % 8)
	}
	w.nbits++
}

// Align pads with zero bits up to the next byte boundary.
func (w *BitWriter) Align() {
	w.nbits = uint64(len(w.data)) * 8
}

// Bytes appends whole bytes after aligning.
func (w *BitWriter) Bytes(b []byte) {
	w.Align()
	w.data = append(w.data, b...)
	w.nbits = uint64(len(w.data)) * 8
}

// Len returns the number of bits written.
func (w *BitWriter) Len() uint64 {
	return w.nbits
}

// Data returns the packed bytes.
func (w *BitWriter) Data() []byte {
	return w.data
}
