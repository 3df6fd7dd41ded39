package entropy

import (
	"math"

	"github.com/chronos-tachyon/assert"
	"github.com/pkg/errors"
)

// Kind selects which entropy coder a Codec drives.
type Kind byte

const (
	// HuffmanCoding selects canonical Huffman codes with a static,
	// lengths-only table in the header.
	HuffmanCoding Kind = iota

	// RangeCoding selects the range coder with a static frequency table
	// in the header.
	RangeCoding

	// AdaptiveRangeCoding selects the range coder with an adaptive model
	// rebuilt identically on both sides; the header carries no table.
	AdaptiveRangeCoding
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case HuffmanCoding:
		return "HuffmanCoding"
	case RangeCoding:
		return "RangeCoding"
	case AdaptiveRangeCoding:
		return "AdaptiveRangeCoding"
	default:
		return "InvalidKind"
	}
}

// Codec composes a coder, a frequency model, and the bitstream layer
// behind byte-oriented Encode and Decode.  Both sides of a transfer must
// configure the same Kind and alphabet size; everything else travels in
// the encoded buffer itself:
//
//	alphabet size   32 bits
//	symbol count    32 bits
//	table           one 8-bit code length per symbol (HuffmanCoding),
//	                one 32-bit frequency count per symbol (RangeCoding),
//	                absent (AdaptiveRangeCoding)
//	payload         coder bitstream, MSB-first, zero-padded to a byte
//
// A Codec holds no state across calls except its configuration, so one
// Codec may encode or decode any number of buffers sequentially.
type Codec struct {
	kind         Kind
	alphabetSize int
	model        *Model
}

// Init configures the codec for an alphabet of the given size.  The
// frequency table for each Encode is derived from the input sequence
// itself, so encoding an empty sequence fails with ErrEmptyAlphabet; pin a
// model with InitWithModel to allow that.
func (c *Codec) Init(kind Kind, alphabetSize int) error {
	assert.Assertf(kind <= AdaptiveRangeCoding, "invalid Kind %d", kind)
	if err := checkAlphabetSize(alphabetSize); err != nil {
		return err
	}
	*c = Codec{kind: kind, alphabetSize: alphabetSize}
	return nil
}

// InitWithModel configures the codec with a pinned static model, so the
// alphabet and table outlive any particular input sequence.  Not valid for
// AdaptiveRangeCoding, whose model is rebuilt per session by definition.
func (c *Codec) InitWithModel(kind Kind, model *Model) error {
	assert.Assertf(kind <= AdaptiveRangeCoding, "invalid Kind %d", kind)
	assert.Assertf(model != nil, "nil model")
	if kind == AdaptiveRangeCoding {
		return errors.New("AdaptiveRangeCoding rebuilds its model per session and cannot pin one")
	}
	*c = Codec{kind: kind, alphabetSize: model.AlphabetSize(), model: model}
	return nil
}

// Kind returns the configured coder kind.
func (c *Codec) Kind() Kind {
	return c.kind
}

// AlphabetSize returns the configured alphabet size.
func (c *Codec) AlphabetSize() int {
	return c.alphabetSize
}

// Encode encodes symbols into a self-contained buffer.
func (c *Codec) Encode(symbols []Symbol) ([]byte, error) {
	assert.Assertf(c.alphabetSize > 0, "Codec not initialized")
	assert.Assertf(uint64(len(symbols)) <= math.MaxUint32, "sequence of %d symbols too long", len(symbols))

	var w BitWriter
	w.WriteBits(uint32(c.alphabetSize), 32)
	w.WriteBits(uint32(len(symbols)), 32)

	switch c.kind {
	case HuffmanCoding:
		m, err := c.sessionModel(symbols)
		if err != nil {
			return nil, err
		}
		var enc HuffmanEncoder
		if err := enc.Init(m); err != nil {
			return nil, err
		}
		for _, size := range enc.SizeBySymbol() {
			w.WriteBits(uint32(size), 8)
		}
		if err := enc.EncodeTo(&w, symbols); err != nil {
			return nil, err
		}

	case RangeCoding:
		m, err := c.sessionModel(symbols)
		if err != nil {
			return nil, err
		}
		for _, count := range m.Counts() {
			w.WriteBits(count, 32)
		}
		if err := c.rangeEncode(&w, symbols, m, false); err != nil {
			return nil, err
		}

	case AdaptiveRangeCoding:
		m, err := NewAdaptiveModel(c.alphabetSize)
		if err != nil {
			return nil, err
		}
		if err := c.rangeEncode(&w, symbols, m, true); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

// Decode decodes a buffer produced by Encode under the same configuration.
func (c *Codec) Decode(data []byte) ([]Symbol, error) {
	assert.Assertf(c.alphabetSize > 0, "Codec not initialized")

	r := NewBitReader(data)
	alphabetSize, err := r.ReadBits(32)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptStream, "header truncated: %v", err)
	}
	if int(alphabetSize) != c.alphabetSize {
		return nil, errors.Wrapf(ErrCorruptStream, "alphabet size %d does not match configured %d", alphabetSize, c.alphabetSize)
	}
	symbolCount, err := r.ReadBits(32)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptStream, "header truncated: %v", err)
	}
	// Guard the int conversion: on 32-bit platforms a count at or above
	// 1<<31 would wrap negative and decode as an empty sequence.
	if uint64(symbolCount) > uint64(math.MaxInt) {
		return nil, errors.Wrapf(ErrCorruptStream, "symbol count %d does not fit in int", symbolCount)
	}
	count := int(symbolCount)

	switch c.kind {
	case HuffmanCoding:
		sizes := make([]byte, alphabetSize)
		for i := range sizes {
			size, err := r.ReadBits(8)
			if err != nil {
				return nil, errors.Wrapf(ErrCorruptStream, "length table truncated: %v", err)
			}
			sizes[i] = byte(size)
		}
		var dec HuffmanDecoder
		if err := dec.Init(sizes); err != nil {
			return nil, err
		}
		return dec.DecodeFrom(r, count)

	case RangeCoding:
		counts := make([]uint32, alphabetSize)
		for i := range counts {
			count, err := r.ReadBits(32)
			if err != nil {
				return nil, errors.Wrapf(ErrCorruptStream, "frequency table truncated: %v", err)
			}
			counts[i] = count
		}
		m, err := NewModelFromCounts(counts)
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptStream, "invalid frequency table: %v", err)
		}
		return rangeDecode(r, count, m, false)

	default:
		m, err := NewAdaptiveModel(c.alphabetSize)
		if err != nil {
			return nil, err
		}
		return rangeDecode(r, count, m, true)
	}
}

// sessionModel returns the pinned model, or derives one from the sequence.
func (c *Codec) sessionModel(symbols []Symbol) (*Model, error) {
	if c.model != nil {
		return c.model, nil
	}
	return NewModelFromSymbols(c.alphabetSize, symbols)
}

func (c *Codec) rangeEncode(w *BitWriter, symbols []Symbol, m *Model, adaptive bool) error {
	// An empty sequence carries no payload at all: the range coder's
	// terminal flush only exists to pin down coded symbols.
	if len(symbols) == 0 {
		return nil
	}
	enc := NewRangeEncoder(w)
	for _, sym := range symbols {
		if err := enc.Encode(sym, m); err != nil {
			return err
		}
		if adaptive {
			m.Observe(sym)
		}
	}
	enc.Close()
	return nil
}

// maxRangePrealloc caps rangeDecode's initial allocation.  A range-coded
// payload can pack many symbols per bit, so the count field alone does not
// bound the buffer; a hostile count must not translate into a huge
// up-front allocation.
const maxRangePrealloc = 1 << 16

func rangeDecode(r *BitReader, count int, m *Model, adaptive bool) ([]Symbol, error) {
	if count == 0 {
		return []Symbol{}, nil
	}
	dec, err := NewRangeDecoder(r)
	if err != nil {
		return nil, err
	}
	capHint := count
	if capHint > maxRangePrealloc {
		capHint = maxRangePrealloc
	}
	out := make([]Symbol, 0, capHint)
	for len(out) < count {
		sym, err := dec.Decode(m)
		if err != nil {
			return nil, errors.Wrapf(err, "after %d of %d symbols", len(out), count)
		}
		if adaptive {
			m.Observe(sym)
		}
		out = append(out, sym)
	}
	return out, nil
}
