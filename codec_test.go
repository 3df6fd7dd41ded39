package entropy

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

var codecKinds = []Kind{HuffmanCoding, RangeCoding, AdaptiveRangeCoding}

func makeCodecInput(n int) []Symbol {
	rng := rand.New(rand.NewSource(23))
	zipf := rand.NewZipf(rng, 1.5, 1, 9)
	seq := make([]Symbol, n)
	for i := range seq {
		seq[i] = Symbol(zipf.Uint64())
	}
	return seq
}

func TestCodec_RoundTrip(t *testing.T) {
	seq := makeCodecInput(2000)
	for _, kind := range codecKinds {
		t.Run(kind.String(), func(t *testing.T) {
			var c Codec
			if err := c.Init(kind, 10); err != nil {
				t.Fatalf("Init failed: %v", err)
			}

			data, err := c.Encode(seq)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !equalSymbols(seq, decoded) {
				t.Errorf("round trip mismatch")
			}
		})
	}
}

func TestCodec_EmptyInput(t *testing.T) {
	m := mustModelFromCounts(t, []uint32{3, 1})

	for _, kind := range []Kind{HuffmanCoding, RangeCoding} {
		var c Codec
		if err := c.InitWithModel(kind, m); err != nil {
			t.Fatalf("%v: InitWithModel failed: %v", kind, err)
		}
		data, err := c.Encode(nil)
		if err != nil {
			t.Fatalf("%v: Encode failed: %v", kind, err)
		}
		decoded, err := c.Decode(data)
		if err != nil {
			t.Fatalf("%v: Decode failed: %v", kind, err)
		}
		if len(decoded) != 0 {
			t.Errorf("%v: expected empty sequence, got %v", kind, decoded)
		}
	}

	// Huffman header: 4+4 bytes plus one length byte per symbol, no payload.
	var c Codec
	if err := c.InitWithModel(HuffmanCoding, m); err != nil {
		t.Fatalf("InitWithModel failed: %v", err)
	}
	data, err := c.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 10 {
		t.Errorf("header-only buffer: expected 10 bytes, got %d", len(data))
	}

	// Adaptive mode needs no model at all for an empty sequence.
	if err := c.Init(AdaptiveRangeCoding, 2); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	data, err = c.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 8 {
		t.Errorf("header-only buffer: expected 8 bytes, got %d", len(data))
	}
	decoded, err := c.Decode(data)
	if err != nil || len(decoded) != 0 {
		t.Errorf("expected empty decode, got (%v, %v)", decoded, err)
	}
}

func TestCodec_EmptyInputWithoutModel(t *testing.T) {
	var c Codec
	if err := c.Init(HuffmanCoding, 4); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := c.Encode(nil); !errors.Is(err, ErrEmptyAlphabet) {
		t.Errorf("expected ErrEmptyAlphabet, got %v", err)
	}
}

func TestCodec_SingleSymbolAlphabet(t *testing.T) {
	seq := []Symbol{0, 0, 0, 0, 0}
	for _, kind := range codecKinds {
		t.Run(kind.String(), func(t *testing.T) {
			var c Codec
			if err := c.Init(kind, 1); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			data, err := c.Encode(seq)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !equalSymbols(seq, decoded) {
				t.Errorf("wrong symbols:\n\texpect: %v\n\tactual: %v", seq, decoded)
			}
		})
	}
}

func TestCodec_TruncationFails(t *testing.T) {
	seq := makeCodecInput(500)
	for _, kind := range codecKinds {
		t.Run(kind.String(), func(t *testing.T) {
			var c Codec
			if err := c.Init(kind, 10); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			data, err := c.Encode(seq)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			_, err = c.Decode(data[:len(data)-1])
			if !errors.Is(err, ErrCorruptStream) && !errors.Is(err, ErrOutOfData) {
				t.Errorf("expected ErrCorruptStream or ErrOutOfData, got %v", err)
			}

			// Cutting into the header fails as well.
			_, err = c.Decode(data[:5])
			if !errors.Is(err, ErrCorruptStream) && !errors.Is(err, ErrOutOfData) {
				t.Errorf("expected ErrCorruptStream or ErrOutOfData, got %v", err)
			}
		})
	}
}

func TestCodec_HostileSymbolCount(t *testing.T) {
	// A forged symbol-count field comes back as a decode error; it must
	// not size an allocation before any payload has been read.
	seq := makeCodecInput(200)
	for _, kind := range codecKinds {
		t.Run(kind.String(), func(t *testing.T) {
			var c Codec
			if err := c.Init(kind, 10); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			data, err := c.Encode(seq)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			for i := 4; i < 8; i++ {
				data[i] = 0xff
			}
			_, err = c.Decode(data)
			if !errors.Is(err, ErrCorruptStream) && !errors.Is(err, ErrOutOfData) {
				t.Errorf("expected ErrCorruptStream or ErrOutOfData, got %v", err)
			}
		})
	}
}

func TestCodec_AlphabetMismatch(t *testing.T) {
	seq := makeCodecInput(100)
	var enc Codec
	if err := enc.Init(HuffmanCoding, 10); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	data, err := enc.Encode(seq)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var dec Codec
	if err := dec.Init(HuffmanCoding, 12); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := dec.Decode(data); !errors.Is(err, ErrCorruptStream) {
		t.Errorf("expected ErrCorruptStream, got %v", err)
	}
}

func TestCodec_ZeroCountSymbolRejected(t *testing.T) {
	m := mustModelFromCounts(t, []uint32{5, 0, 2})
	for _, kind := range []Kind{HuffmanCoding, RangeCoding} {
		var c Codec
		if err := c.InitWithModel(kind, m); err != nil {
			t.Fatalf("%v: InitWithModel failed: %v", kind, err)
		}
		if _, err := c.Encode([]Symbol{0, 1}); !errors.Is(err, ErrUnknownSymbol) {
			t.Errorf("%v: expected ErrUnknownSymbol, got %v", kind, err)
		}
	}
}

func TestCodec_AdaptiveCannotPinModel(t *testing.T) {
	m := mustModelFromCounts(t, []uint32{1, 1})
	var c Codec
	if err := c.InitWithModel(AdaptiveRangeCoding, m); err == nil {
		t.Errorf("expected an error pinning a model on AdaptiveRangeCoding")
	}
}

func TestCodec_StaticModelSharedAcrossBuffers(t *testing.T) {
	// One pinned model serves many sequential buffers, including symbols
	// absent from any particular input.
	m := mustModelFromCounts(t, []uint32{4, 3, 2, 1})
	var c Codec
	if err := c.InitWithModel(RangeCoding, m); err != nil {
		t.Fatalf("InitWithModel failed: %v", err)
	}

	inputs := [][]Symbol{
		{0, 0, 0},
		{3, 2, 1, 0},
		{1, 1, 1, 1, 1},
	}
	for _, seq := range inputs {
		data, err := c.Encode(seq)
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", seq, err)
		}
		decoded, err := c.Decode(data)
		if err != nil {
			t.Fatalf("Decode(%v) failed: %v", seq, err)
		}
		if !equalSymbols(seq, decoded) {
			t.Errorf("wrong symbols:\n\texpect: %v\n\tactual: %v", seq, decoded)
		}
	}
}
