package entropy

import (
	"github.com/pkg/errors"
)

// RangeDecoder mirrors RangeEncoder: it tracks the identical [low, high]
// interval plus a 32-bit window of stream bits, and recovers each symbol
// by locating the window inside the model's cumulative ranges.  The
// renormalization steps are bit-for-bit symmetric with the encoder's,
// consuming exactly one stream bit per shift.
type RangeDecoder struct {
	r     *BitReader
	low   uint64
	high  uint64
	value uint64
}

// NewRangeDecoder primes a decoder with the first 32 bits of the stream.
// Fails with ErrOutOfData if the stream is shorter than that; Close always
// emits at least 32 bits, so any complete stream suffices.
func NewRangeDecoder(r *BitReader) (*RangeDecoder, error) {
	value, err := r.ReadBits(rangeStateBits)
	if err != nil {
		return nil, errors.Wrap(err, "priming range decoder")
	}
	return &RangeDecoder{
		r:     r,
		low:   0,
		high:  rangeStateMax,
		value: uint64(value),
	}, nil
}

// Decode recovers the next symbol under m and narrows the interval exactly
// as the encoder did.  Running out of stream bits mid-symbol means the
// input was truncated and fails with ErrCorruptStream.
//
// In adaptive sessions the caller observes the returned symbol on the
// model afterward, mirroring the encoding side.
func (d *RangeDecoder) Decode(m *Model) (Symbol, error) {
	total := m.TotalCount()
	size := d.high - d.low + 1

	target := ((d.value-d.low+1)*total - 1) / size
	sym := m.SymbolAtCumulative(target)

	symLow := m.CumulativeBefore(sym)
	symHigh := symLow + uint64(m.Count(sym))

	d.high = d.low + size*symHigh/total - 1
	d.low = d.low + size*symLow/total

	for {
		if d.high < rangeHalf {
			// top bit was 0
		} else if d.low >= rangeHalf {
			d.low -= rangeHalf
			d.high -= rangeHalf
			d.value -= rangeHalf
		} else if d.low >= rangeQuarter && d.high < 3*rangeQuarter {
			d.low -= rangeQuarter
			d.high -= rangeQuarter
			d.value -= rangeQuarter
		} else {
			break
		}

		d.low = (d.low << 1) & rangeStateMax
		d.high = ((d.high << 1) & rangeStateMax) | 1

		bit, err := d.r.ReadBit()
		if err != nil {
			return InvalidSymbol, errors.Wrapf(ErrCorruptStream, "stream truncated mid-symbol: %v", err)
		}
		d.value = ((d.value << 1) & rangeStateMax) | uint64(bit)
	}

	return sym, nil
}
