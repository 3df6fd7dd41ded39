// Package entropy implements lossless entropy coders over a shared
// MSB-first bitstream: canonical Huffman codes and a 32-bit range
// (arithmetic) coder, plus a frequency model and a small codec facade
// that ties them together behind Encode/Decode.
//
// All coders are pure in-memory transforms.  Instances are not safe for
// concurrent use, but independent instances may run in parallel.
//
// References:
//
//	<https://www.rfc-editor.org/rfc/rfc1951.html>, Section 3.2.2
//
//	<https://en.wikipedia.org/wiki/Canonical_Huffman_code>
//
//	<https://en.wikipedia.org/wiki/Range_coding>
package entropy
