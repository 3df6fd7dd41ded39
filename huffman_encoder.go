package entropy

import (
	"bytes"
	"container/heap"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// HuffmanEncoder assigns canonical Huffman codes to the symbols of a
// frequency model and writes symbol sequences as bitstreams.
type HuffmanEncoder struct {
	codes   []Code
	minSize byte
	maxSize byte
}

// Init builds this encoder's code table from the model's frequency counts.
// Symbols with a zero count receive no code and cannot be encoded.  Ties
// during tree construction break toward the lower symbol index, so the
// resulting code lengths are deterministic for a given set of counts.
//
// A degenerate alphabet with only one or two live symbols receives one-bit
// codes directly; in particular a single live symbol is coded as one bit
// per occurrence, never zero, so that it can be read back.
func (e *HuffmanEncoder) Init(m *Model) error {
	numSymbols := m.AlphabetSize()
	codes := make([]Code, numSymbols)
	nodes := make([]symbolAndFreq, 0, numSymbols)
	for symbol := Symbol(0); symbol < Symbol(numSymbols); symbol++ {
		if freq := m.Count(symbol); freq != 0 {
			nodes = append(nodes, symbolAndFreq{symbol, freq})
		}
	}
	if len(nodes) == 0 {
		return errors.Wrap(ErrEmptyAlphabet, "cannot build a Huffman code")
	}

	var minSize, maxSize byte
	nodeLen := uint32(len(nodes))
	if nodeLen <= 2 {
		minSize, maxSize = 1, 1
		for index := uint32(0); index < nodeLen; index++ {
			node := nodes[index]
			codes[node.symbol] = MakeCode(1, index)
		}
	} else {
		assignSizes(codes, nodes, &minSize, &maxSize)
		if maxSize > maxCodeSize {
			return errors.Wrapf(ErrPrecisionOverflow, "code length %d > %d", maxSize, maxCodeSize)
		}
		assignCanonicalCodes(codes)
	}

	*e = HuffmanEncoder{
		codes:   codes,
		minSize: minSize,
		maxSize: maxSize,
	}
	return nil
}

// CodeOf returns the code assigned to a Symbol.  Symbols with a zero count
// have a zero-Size code.
func (e HuffmanEncoder) CodeOf(symbol Symbol) Code {
	return e.codes[symbol]
}

// MinSize is the bit length of the shortest legal code.
func (e HuffmanEncoder) MinSize() byte {
	return e.minSize
}

// MaxSize is the bit length of the longest legal code.
func (e HuffmanEncoder) MaxSize() byte {
	return e.maxSize
}

// MaxSymbol is the last Symbol in the code's alphabet.
//
// (The first Symbol in the code's alphabet is always 0.)
func (e HuffmanEncoder) MaxSymbol() Symbol {
	return Symbol(len(e.codes)) - 1
}

// SizeBySymbol returns an array containing the bit length for each Symbol
// in the alphabet, 0 meaning absent.  This array is all a HuffmanDecoder
// needs to reconstruct the identical code table on the receiving end.
func (e HuffmanEncoder) SizeBySymbol() []byte {
	numSymbols := Symbol(len(e.codes))
	out := make([]byte, numSymbols)
	for symbol := Symbol(0); symbol < numSymbols; symbol++ {
		out[symbol] = e.codes[symbol].Size
	}
	return out
}

// EncodeTo writes each symbol's code to w in sequence order.  Fails with
// ErrUnknownSymbol if a symbol is outside the alphabet or has no code.
func (e HuffmanEncoder) EncodeTo(w *BitWriter, symbols []Symbol) error {
	for i, symbol := range symbols {
		if symbol < 0 || int(symbol) >= len(e.codes) {
			return errors.Wrapf(ErrUnknownSymbol, "symbol %d at index %d", symbol, i)
		}
		hc := e.codes[symbol]
		if hc.Size == 0 {
			return errors.Wrapf(ErrUnknownSymbol, "symbol %d at index %d has no code", symbol, i)
		}
		w.WriteCode(hc)
	}
	return nil
}

// Dump writes a programmer-readable debugging dump of the encoder's current
// state to the given writer.
func (e HuffmanEncoder) Dump(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("HuffmanEncoder{\n")
	fmt.Fprintf(&buf, "\tMinSize() = %d\n", e.minSize)
	fmt.Fprintf(&buf, "\tMaxSize() = %d\n", e.maxSize)
	numSymbols := Symbol(len(e.codes))
	for symbol := Symbol(0); symbol < numSymbols; symbol++ {
		hc := e.codes[symbol]
		if hc.Size == 0 {
			fmt.Fprintf(&buf, "\tCodeOf(%d) = nil\n", symbol)
		} else {
			fmt.Fprintf(&buf, "\tCodeOf(%d) = %s\n", symbol, hc)
		}
	}
	buf.WriteString("}\n")
	return buf.WriteTo(w)
}

// assignSizes performs the first pass of Huffman code assignment: determine
// and populate codes[Symbol].Size, plus minSize and maxSize while we're
// here.
//
// The tree is never materialized as linked nodes.  Combining two subtrees
// appends one entry to an index-addressed arena of synthetic symbols, and
// the later depth walk runs over arena indices.
func assignSizes(codes []Code, nodes []symbolAndFreq, minSize *byte, maxSize *byte) {
	nodeLen := uint32(len(nodes))
	nodeLog := log2uint32(nodeLen)

	// Step 1: build a minheap over (freq, symbol).

	h := freqHeap{nodes}
	h.Init()

	// Step 2: process the minheap by popping the two lowest-weight
	// symbols, combining them into a new synthetic symbol, and pushing
	// the new symbol back onto the minheap.
	//
	// Synthetic symbols are distinguished from natural symbols by their
	// sign: "natural" symbols are zero- or positive-valued, while
	// "synthetic" symbols are negative-valued.  math.MinInt32 is the 0'th
	// synthetic symbol, and the subsequent ones are assigned as
	// consecutive integers approaching 0 from below.  The heap ordering
	// therefore places synthetic symbols after all naturals of equal
	// weight, which fixes the tie-break rule.

	type syntheticSymbol struct {
		left  Symbol
		right Symbol
	}

	syntheticSymbols := make([]syntheticSymbol, 0, nodeLog)
	nextSyntheticSymbol := Symbol(math.MinInt32)

	for h.Len() > 1 {
		a := heap.Pop(&h).(symbolAndFreq)
		b := heap.Pop(&h).(symbolAndFreq)

		// Compute freqSum using saturating addition
		freqSum := a.freq + b.freq
		if freqSum < a.freq {
			freqSum = math.MaxUint32
		}

		syntheticSymbols = append(syntheticSymbols, syntheticSymbol{a.symbol, b.symbol})
		heap.Push(&h, symbolAndFreq{nextSyntheticSymbol, freqSum})
		nextSyntheticSymbol++
	}

	// root is the root of our tree.  This is not the *actual* Huffman
	// code tree that we'll be using, because it's not necessarily
	// canonical, but it's good enough to tell us the bit length for each
	// natural symbol's canonical code.
	root := heap.Pop(&h).(symbolAndFreq)

	// Step 3: use a stack to walk the tree.
	//
	// The current stack depth is the number of bits in the code word
	// represented by this subtree, which equals the length of the
	// canonical code.  Natural symbols never get pushed onto the stack,
	// only synthetic ones, so the maximum depth is about log2(nodeLen).
	//
	// stackItem.x tracks progress through the subtree:
	//   x=0 → We just arrived at stackItem for the first time
	//   x=1 → We have already processed the left child
	//   x=2 → We have already processed both children

	type stackItem struct {
		s Symbol
		x byte
	}

	stack := make([]stackItem, 0, nodeLog)
	var stackLen uint
	var hasMinMax bool

	stackTop := func() *stackItem {
		return &stack[stackLen-1]
	}

	stackPush := func(symbol Symbol) {
		stack = append(stack, stackItem{s: symbol, x: 0})
		stackLen++
	}

	stackPop := func() {
		stackLen--
		stack[stackLen] = stackItem{}
		stack = stack[:stackLen]
	}

	leftChild := func(item *stackItem) Symbol {
		index := int32(item.s) - math.MinInt32
		return syntheticSymbols[index].left
	}

	rightChild := func(item *stackItem) Symbol {
		index := int32(item.s) - math.MinInt32
		return syntheticSymbols[index].right
	}

	processChild := func(child Symbol) {
		if child < 0 {
			stackPush(child)
			return
		}

		size := byte(stackLen)
		codes[child].Size = size
		if !hasMinMax {
			hasMinMax = true
			*minSize = size
			*maxSize = size
		} else if *minSize > size {
			*minSize = size
		} else if *maxSize < size {
			*maxSize = size
		}
	}

	// And now the tree-walking loop.
	stackPush(root.symbol)
	for stackLen != 0 {
		top := stackTop()
		x := top.x
		top.x++
		switch x {
		case 0:
			processChild(leftChild(top))
		case 1:
			processChild(rightChild(top))
		case 2:
			stackPop()
		}
	}
}

// assignCanonicalCodes performs the second pass of Huffman code assignment:
// transform the (Symbol, codes[Symbol].Size) assignments from the first
// pass into a canonical Huffman code written back to codes[Symbol].Bits.
func assignCanonicalCodes(codes []Code) {
	// Step 1: sort the symbols by (codes[Symbol].Size, Symbol) ascending.

	numSymbols := Symbol(len(codes))
	sorted := make(bySize, 0, numSymbols)
	for symbol := Symbol(0); symbol < numSymbols; symbol++ {
		hc := codes[symbol]
		if hc.Size == 0 {
			continue
		}
		sorted = append(sorted, symbolAndSize{symbol, hc.Size})
	}
	sorted.Sort()

	// Step 2: assign the codes sequentially, per the algorithm detailed at
	// <https://en.wikipedia.org/w/index.php?title=Canonical_Huffman_code&oldid=999983137>.

	lastSize := sorted[0].size
	nextCode := uint32(0)
	for _, item := range sorted {
		if item.size > lastSize {
			nextCode <<= (item.size - lastSize)
			lastSize = item.size
		}
		codes[item.symbol].Bits = nextCode
		nextCode++
	}
}

// type symbolAndFreq + type freqHeap {{{

type symbolAndFreq struct {
	symbol Symbol
	freq   uint32
}

type freqHeap struct {
	list []symbolAndFreq
}

func (h *freqHeap) Init() {
	heap.Init(h)
}

func (h *freqHeap) Len() int {
	return len(h.list)
}

func (h *freqHeap) Swap(i, j int) {
	h.list[i], h.list[j] = h.list[j], h.list[i]
}

func (h *freqHeap) Less(i, j int) bool {
	a, b := h.list[i], h.list[j]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	return uint32(a.symbol) < uint32(b.symbol)
}

func (h *freqHeap) Push(x interface{}) {
	h.list = append(h.list, x.(symbolAndFreq))
}

func (h *freqHeap) Pop() interface{} {
	last := uint(len(h.list)) - 1
	x := h.list[last]
	h.list = h.list[:last]
	return x
}

var _ heap.Interface = (*freqHeap)(nil)

// }}}

// type symbolAndSize + type bySize {{{

type symbolAndSize struct {
	symbol Symbol
	size   byte
}

type bySize []symbolAndSize

func (list bySize) Len() int {
	return len(list)
}

func (list bySize) Swap(i, j int) {
	list[i], list[j] = list[j], list[i]
}

func (list bySize) Less(i, j int) bool {
	a, b := list[i], list[j]
	if a.size != b.size {
		return a.size < b.size
	}
	return a.symbol < b.symbol
}

func (list bySize) Sort() {
	sort.Sort(list)
}

var _ sort.Interface = bySize(nil)

// }}}
