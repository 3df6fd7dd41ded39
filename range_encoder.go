package entropy

import (
	"github.com/pkg/errors"
)

const (
	// rangeStateBits is the precision of the coding interval.  TotalCount
	// is capped at maxModelTotal; the renormalized interval is always
	// wider than rangeQuarter, so sub-interval widths never underflow to
	// zero and the interval products fit comfortably in a uint64.
	rangeStateBits = 32
	rangeStateMax  = uint64(1)<<rangeStateBits - 1
	rangeHalf      = uint64(1) << (rangeStateBits - 1)
	rangeQuarter   = uint64(1) << (rangeStateBits - 2)
)

// RangeEncoder encodes symbols by narrowing a [low, high] interval in
// proportion to each symbol's share of the model's total count, emitting
// interval bits as they settle.  Underflow near the midpoint is handled by
// counting pending bits (the E3 mapping): when the next settled bit is
// finally known, the pending bits follow it, inverted.
//
// Encode symbols with Encode, then call Close exactly once; the stream is
// incomplete without it.
type RangeEncoder struct {
	w       *BitWriter
	low     uint64
	high    uint64
	pending int
}

// NewRangeEncoder constructs a RangeEncoder over the full interval,
// emitting bits to w.
func NewRangeEncoder(w *BitWriter) *RangeEncoder {
	return &RangeEncoder{
		w:    w,
		low:  0,
		high: rangeStateMax,
	}
}

// Encode narrows the interval to sym's sub-range within m and emits any
// settled bits.  Fails with ErrUnknownSymbol if sym is outside m's
// alphabet or has a zero count.
//
// In adaptive sessions the caller observes sym on the model afterward; the
// decoding side must do the same, in the same order.
func (e *RangeEncoder) Encode(sym Symbol, m *Model) error {
	if sym < 0 || int(sym) >= m.AlphabetSize() || m.Count(sym) == 0 {
		return errors.Wrapf(ErrUnknownSymbol, "symbol %d", sym)
	}

	total := m.TotalCount()
	symLow := m.CumulativeBefore(sym)
	symHigh := symLow + uint64(m.Count(sym))

	size := e.high - e.low + 1
	e.high = e.low + size*symHigh/total - 1
	e.low = e.low + size*symLow/total

	for {
		if e.high < rangeHalf {
			// top bit settled as 0
			e.emit(0)
		} else if e.low >= rangeHalf {
			// top bit settled as 1
			e.emit(1)
			e.low -= rangeHalf
			e.high -= rangeHalf
		} else if e.low >= rangeQuarter && e.high < 3*rangeQuarter {
			// straddling the midpoint: defer until settled
			e.pending++
			e.low -= rangeQuarter
			e.high -= rangeQuarter
		} else {
			break
		}

		e.low = (e.low << 1) & rangeStateMax
		e.high = ((e.high << 1) & rangeStateMax) | 1
	}

	return nil
}

// Close terminates the stream by emitting all 32 bits of low, the first of
// which releases any pending underflow bits.  The emitted value lies
// inside the final interval, and the total number of bits emitted equals
// exactly the number the decoder consumes, so a truncated stream always
// starves the decoder instead of decoding silently.
func (e *RangeEncoder) Close() {
	for i := 0; i < rangeStateBits; i++ {
		e.emit(byte(e.low >> (rangeStateBits - 1)))
		e.low = (e.low << 1) & rangeStateMax
	}
}

func (e *RangeEncoder) emit(bit byte) {
	e.w.WriteBit(bit)
	for e.pending > 0 {
		e.w.WriteBit(bit ^ 1)
		e.pending--
	}
}
