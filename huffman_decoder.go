package entropy

import (
	"github.com/pkg/errors"
)

// HuffmanDecoder reconstructs a canonical Huffman code from its per-symbol
// bit lengths alone and decodes bitstreams produced by HuffmanEncoder.
type HuffmanDecoder struct {
	count   [maxCodeSize + 1]uint32 // symbols per code length
	first   [maxCodeSize + 1]uint32 // first canonical code value per length
	offset  [maxCodeSize + 1]uint32 // index of that code's symbol in ordered
	ordered []Symbol                // live symbols sorted by (length, symbol)
	sizes   []byte
	minSize byte
	maxSize byte
}

// Init initializes this decoder from zero or more bit lengths, one for
// each symbol in the code, per the algorithm in RFC 1951 Section 3.2.2.
// Symbols with an assigned bit length of 0 are omitted from the code
// entirely.
//
// Not all inputs describe a canonical Huffman code.  Length sets that
// over- or under-subscribe the code space (violating Kraft equality) are
// rejected with ErrCorruptStream, as are lengths beyond maxCodeSize.
// Degenerate codes of 0 or 1 live symbols are permitted, since no complete
// code exists for those alphabets.
func (d *HuffmanDecoder) Init(sizes []byte) error {
	numSymbols := Symbol(len(sizes))

	var count [maxCodeSize + 1]uint32
	var numLive uint32
	var minSize, maxSize byte
	for symbol := Symbol(0); symbol < numSymbols; symbol++ {
		size := sizes[symbol]
		if size == 0 {
			continue
		}
		if size > maxCodeSize {
			return errors.Wrapf(ErrCorruptStream, "bit length %d > %d for symbol %d", size, maxCodeSize, symbol)
		}

		if numLive == 0 {
			minSize = size
			maxSize = size
		} else if minSize > size {
			minSize = size
		} else if maxSize < size {
			maxSize = size
		}

		count[size]++
		numLive++
	}

	// permit the degenerate code with 0 symbols
	if numLive == 0 {
		*d = HuffmanDecoder{sizes: append([]byte(nil), sizes...)}
		return nil
	}

	// Assign the first canonical code value of each length, and check that
	// the lengths exactly fill the code space.  The accumulator is wider
	// than the 32-bit code space: a huge alphabet can over-subscribe the
	// space by an exact multiple of 1<<32, which a uint32 sum would wrap
	// right back onto the expected value.
	var first [maxCodeSize + 1]uint32
	var offset [maxCodeSize + 1]uint32
	var code uint64
	var index uint32
	for bits := minSize; bits <= maxSize; bits++ {
		code = (code + uint64(count[bits-1])) << 1
		first[bits] = uint32(code)
		offset[bits] = index
		index += count[bits]
	}
	code += uint64(count[maxSize])

	// permit the degenerate code with 1 symbol
	// forbid all other degenerate codes
	if code == 1 && maxSize == 1 {
		// pass
	} else if code != (1 << maxSize) {
		return errors.Wrapf(ErrCorruptStream, "bit lengths violate Kraft equality: expected %d, got %d", uint64(1)<<maxSize, code)
	}

	ordered := make([]Symbol, numLive)
	var next [maxCodeSize + 1]uint32
	for symbol := Symbol(0); symbol < numSymbols; symbol++ {
		size := sizes[symbol]
		if size == 0 {
			continue
		}
		ordered[offset[size]+next[size]] = symbol
		next[size]++
	}

	*d = HuffmanDecoder{
		count:   count,
		first:   first,
		offset:  offset,
		ordered: ordered,
		sizes:   append([]byte(nil), sizes...),
		minSize: minSize,
		maxSize: maxSize,
	}
	return nil
}

// MinSize is the bit length of the shortest legal code.
func (d HuffmanDecoder) MinSize() byte {
	return d.minSize
}

// MaxSize is the bit length of the longest legal code.
func (d HuffmanDecoder) MaxSize() byte {
	return d.maxSize
}

// MaxSymbol is the last Symbol in the code's alphabet.
//
// (The first Symbol in the code's alphabet is always 0.)
func (d HuffmanDecoder) MaxSymbol() Symbol {
	return Symbol(len(d.sizes)) - 1
}

// SizeBySymbol returns a copy of the original bit length array used to
// initialize this decoder.
func (d HuffmanDecoder) SizeBySymbol() []byte {
	return append([]byte(nil), d.sizes...)
}

// decodeOne walks bits from r until they form a valid code word.
func (d *HuffmanDecoder) decodeOne(r *BitReader) (Symbol, error) {
	var code uint32
	for size := byte(1); size <= d.maxSize; size++ {
		bit, err := r.ReadBit()
		if err != nil {
			return InvalidSymbol, errors.Wrap(err, "mid-code")
		}
		code = (code << 1) | uint32(bit)
		if size < d.minSize {
			continue
		}
		if rel := code - d.first[size]; code >= d.first[size] && rel < d.count[size] {
			return d.ordered[d.offset[size]+rel], nil
		}
	}
	return InvalidSymbol, errors.Wrapf(ErrCorruptStream, "no code word matches prefix %s", MakeCode(d.maxSize, code))
}

// DecodeFrom reads codes from r until count symbols have been recovered.
// Fails with ErrOutOfData if the stream runs out of bits first, and with
// ErrCorruptStream if an accumulated prefix matches no code word; the
// latter cannot happen for a complete code but is defended against for
// degenerate tables and untrusted input.
func (d *HuffmanDecoder) DecodeFrom(r *BitReader, count int) ([]Symbol, error) {
	if count > 0 && d.maxSize == 0 {
		return nil, errors.Wrap(ErrCorruptStream, "empty code cannot decode any symbols")
	}
	// Every code word is at least one bit, so the stream cannot hold more
	// symbols than it has bits left.  Checking up front keeps a hostile
	// count from driving the allocation below.
	if remaining := r.BitsRemaining(); count > remaining {
		return nil, errors.Wrapf(ErrCorruptStream, "%d symbols cannot fit in %d remaining bits", count, remaining)
	}
	out := make([]Symbol, 0, count)
	for len(out) < count {
		symbol, err := d.decodeOne(r)
		if err != nil {
			return nil, errors.Wrapf(err, "after %d of %d symbols", len(out), count)
		}
		out = append(out, symbol)
	}
	return out, nil
}
