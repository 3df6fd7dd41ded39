package entropy

import (
	"github.com/chronos-tachyon/assert"
	"github.com/pkg/errors"
)

const (
	// maxModelTotal bounds TotalCount so that interval arithmetic in the
	// range coder cannot overflow or produce zero-width sub-ranges: the
	// renormalized interval is always wider than 2^30, so any total at or
	// below 2^29 keeps every live symbol's sub-range non-empty.
	maxModelTotal = 1 << 29

	// maxAlphabetSize keeps rescaling effective: with every live count
	// floored at 1, the post-rescale total can never exceed the alphabet
	// size, which stays far below maxModelTotal.
	maxAlphabetSize = 1 << 24
)

// Model holds per-symbol frequency counts over a fixed alphabet, plus the
// cumulative table both coders consume.  A Model is bound to one coding
// session; adaptive models mutate and must never be shared across
// concurrent sessions.
type Model struct {
	counts   []uint32
	cum      []uint64 // cum[i] = sum of counts[0:i]; len(cum) = len(counts)+1
	total    uint64
	adaptive bool
	dirty    bool
}

// NewModelFromSymbols counts the symbols of a sequence in one pass.  The
// result depends only on the multiset of symbols, not their order.  Fails
// with ErrUnknownSymbol if a symbol falls outside the alphabet, and with
// ErrEmptyAlphabet if the sequence is empty.
func NewModelFromSymbols(alphabetSize int, symbols []Symbol) (*Model, error) {
	if err := checkAlphabetSize(alphabetSize); err != nil {
		return nil, err
	}
	counts := make([]uint32, alphabetSize)
	for _, sym := range symbols {
		if sym < 0 || int(sym) >= alphabetSize {
			return nil, errors.Wrapf(ErrUnknownSymbol, "symbol %d outside alphabet of size %d", sym, alphabetSize)
		}
		counts[sym]++
	}
	return newModel(counts, false)
}

// NewModelFromCounts accepts externally supplied counts, one per symbol.
// At least one count must be positive.  Totals beyond the coder's
// fixed-precision bound are rescaled deterministically; the rescaled counts
// are visible through Counts, so a table serialized after construction
// reconstructs the identical model.
func NewModelFromCounts(counts []uint32) (*Model, error) {
	if err := checkAlphabetSize(len(counts)); err != nil {
		return nil, err
	}
	dup := make([]uint32, len(counts))
	copy(dup, counts)
	return newModel(dup, false)
}

// NewAdaptiveModel builds an all-ones model over the alphabet with Observe
// enabled.  Encoder and decoder sides of an adaptive session each build one
// and apply Observe after every coded symbol, in the same order; the two
// models then stay identical without any table being transmitted.
func NewAdaptiveModel(alphabetSize int) (*Model, error) {
	if err := checkAlphabetSize(alphabetSize); err != nil {
		return nil, err
	}
	counts := make([]uint32, alphabetSize)
	for i := range counts {
		counts[i] = 1
	}
	return newModel(counts, true)
}

func checkAlphabetSize(alphabetSize int) error {
	if alphabetSize <= 0 {
		return errors.Wrapf(ErrEmptyAlphabet, "alphabet of size %d", alphabetSize)
	}
	if alphabetSize > maxAlphabetSize {
		return errors.Wrapf(ErrPrecisionOverflow, "alphabet of size %d > %d", alphabetSize, maxAlphabetSize)
	}
	return nil
}

func newModel(counts []uint32, adaptive bool) (*Model, error) {
	m := &Model{
		counts:   counts,
		cum:      make([]uint64, len(counts)+1),
		adaptive: adaptive,
		dirty:    true,
	}
	for _, c := range counts {
		m.total += uint64(c)
	}
	if m.total == 0 {
		return nil, errors.Wrap(ErrEmptyAlphabet, "all counts are zero")
	}
	for m.total > maxModelTotal {
		m.rescale()
	}
	return m, nil
}

// rescale halves every count, flooring live symbols at 1 so they never
// drop out of the alphabet.  The rule is applied identically wherever the
// same counts are held, keeping paired sessions in sync.
func (m *Model) rescale() {
	m.total = 0
	for i, c := range m.counts {
		if c > 1 {
			c >>= 1
			m.counts[i] = c
		}
		m.total += uint64(c)
	}
	m.dirty = true
}

// AlphabetSize returns the number of symbols in the alphabet, including
// zero-frequency ones.
func (m *Model) AlphabetSize() int {
	return len(m.counts)
}

// TotalCount returns the sum of all counts.  Always positive.
func (m *Model) TotalCount() uint64 {
	return m.total
}

// Count returns the frequency count for the given symbol.
func (m *Model) Count(sym Symbol) uint32 {
	assert.Assertf(sym >= 0 && int(sym) < len(m.counts), "symbol %d outside alphabet of size %d", sym, len(m.counts))
	return m.counts[sym]
}

// ProbabilityOf returns the given symbol's estimated probability.
func (m *Model) ProbabilityOf(sym Symbol) float64 {
	return float64(m.Count(sym)) / float64(m.total)
}

// CumulativeBefore returns the sum of the counts of all symbols below sym.
// The symbol's own sub-interval is [CumulativeBefore(sym),
// CumulativeBefore(sym)+Count(sym)) out of TotalCount().
func (m *Model) CumulativeBefore(sym Symbol) uint64 {
	assert.Assertf(sym >= 0 && int(sym) < len(m.counts), "symbol %d outside alphabet of size %d", sym, len(m.counts))
	m.refresh()
	return m.cum[sym]
}

// SymbolAtCumulative maps a cumulative frequency value in [0, TotalCount())
// back to the symbol whose sub-interval contains it.  Zero-frequency
// symbols own empty sub-intervals and are never returned.
func (m *Model) SymbolAtCumulative(value uint64) Symbol {
	assert.Assertf(value < m.total, "cumulative value %d >= total %d", value, m.total)
	m.refresh()

	lo, hi := 0, len(m.cum)-1
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if m.cum[mid] <= value {
			lo = mid
		} else {
			hi = mid
		}
	}
	return Symbol(lo)
}

// Observe records one occurrence of sym, updating the model for the next
// coded symbol.  Only adaptive models may be observed.  Updates are
// strictly sequential: each symbol's Observe must complete before the next
// symbol is coded.
func (m *Model) Observe(sym Symbol) {
	assert.Assertf(m.adaptive, "Observe on a static model")
	assert.Assertf(sym >= 0 && int(sym) < len(m.counts), "symbol %d outside alphabet of size %d", sym, len(m.counts))
	m.counts[sym]++
	m.total++
	m.dirty = true
	if m.total > maxModelTotal {
		m.rescale()
	}
}

// Counts returns a copy of the per-symbol counts, suitable for
// serialization and for reconstructing the model with NewModelFromCounts.
func (m *Model) Counts() []uint32 {
	dup := make([]uint32, len(m.counts))
	copy(dup, m.counts)
	return dup
}

func (m *Model) refresh() {
	if !m.dirty {
		return
	}
	var sum uint64
	for i, c := range m.counts {
		m.cum[i] = sum
		sum += uint64(c)
	}
	m.cum[len(m.counts)] = sum
	m.dirty = false
}
