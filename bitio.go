package entropy

import (
	"github.com/chronos-tachyon/assert"
	"github.com/pkg/errors"
)

// BitWriter accumulates bits into an in-memory byte buffer.  Bits are
// packed MSB-first: the first bit written lands in the most significant
// bit of the first byte.  The zero value is ready to use.
type BitWriter struct {
	buf []byte
	acc byte
	num byte
}

// WriteBit appends a single bit.  Only the low bit of the argument is used.
func (w *BitWriter) WriteBit(bit byte) {
	w.acc = (w.acc << 1) | (bit & 1)
	w.num++
	if w.num == 8 {
		w.buf = append(w.buf, w.acc)
		w.acc = 0
		w.num = 0
	}
}

// WriteBits appends the size low-order bits of value, most significant
// first.  This is the same order in which a Code's bits are defined.
func (w *BitWriter) WriteBits(value uint32, size byte) {
	assert.Assertf(size <= maxCodeSize, "size %d > %d", size, maxCodeSize)
	for shift := size; shift > 0; shift-- {
		w.WriteBit(byte(value >> (shift - 1)))
	}
}

// WriteCode appends all of hc's bits.
func (w *BitWriter) WriteCode(hc Code) {
	w.WriteBits(hc.Bits, hc.Size)
}

// BitsWritten returns the total number of bits appended so far.
func (w *BitWriter) BitsWritten() int {
	return len(w.buf)*8 + int(w.num)
}

// Bytes pads the final partial byte with zero bits and returns the packed
// buffer.  The writer must not be used again afterward.
func (w *BitWriter) Bytes() []byte {
	if w.num > 0 {
		w.buf = append(w.buf, w.acc<<(8-w.num))
		w.acc = 0
		w.num = 0
	}
	return w.buf
}

// BitReader consumes bits from a byte buffer in the order BitWriter wrote
// them.  Reading past the end of the buffer returns ErrOutOfData; there is
// no implicit padding.
type BitReader struct {
	data []byte
	pos  int
	acc  byte
	num  byte
}

// NewBitReader constructs a BitReader over data.  The reader does not copy
// or modify the buffer.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// ReadBit consumes and returns the next bit.
func (r *BitReader) ReadBit() (byte, error) {
	if r.num == 0 {
		if r.pos == len(r.data) {
			return 0, errors.Wrapf(ErrOutOfData, "at bit offset %d", r.pos*8)
		}
		r.acc = r.data[r.pos]
		r.pos++
		r.num = 8
	}
	r.num--
	return (r.acc >> r.num) & 1, nil
}

// ReadBits consumes the next size bits and returns them in the low-order
// bits of the result, first bit most significant.
func (r *BitReader) ReadBits(size byte) (uint32, error) {
	assert.Assertf(size <= maxCodeSize, "size %d > %d", size, maxCodeSize)
	var value uint32
	for i := byte(0); i < size; i++ {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		value = (value << 1) | uint32(bit)
	}
	return value, nil
}

// BitsRemaining returns the number of unread bits left in the buffer.
func (r *BitReader) BitsRemaining() int {
	return int(r.num) + (len(r.data)-r.pos)*8
}
