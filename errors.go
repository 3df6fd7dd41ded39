package entropy

import (
	"github.com/pkg/errors"
)

// Sentinel errors returned by the coders and the codec facade.  Failure
// paths wrap these with context; test with errors.Is.
var (
	// ErrEmptyAlphabet indicates that no symbol has a positive frequency,
	// so there is nothing to build a code from.
	ErrEmptyAlphabet = errors.New("no symbol has a positive frequency")

	// ErrUnknownSymbol indicates a symbol that is outside the alphabet or
	// has no code (zero frequency) in the active table.
	ErrUnknownSymbol = errors.New("symbol is absent from the active table")

	// ErrCorruptStream indicates that a decoder could not produce the
	// expected symbols from the input, which is therefore malformed or
	// truncated.
	ErrCorruptStream = errors.New("corrupt or truncated stream")

	// ErrOutOfData indicates that a BitReader was exhausted before the
	// expected number of bits could be read.
	ErrOutOfData = errors.New("bit reader exhausted")

	// ErrPrecisionOverflow indicates frequency totals that cannot be
	// represented within the coder's fixed-precision domain, even after
	// rescaling.
	ErrPrecisionOverflow = errors.New("frequency totals exceed fixed-precision bounds")
)
