// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import "math"

const (
	prefixCountBits = 4

	prefixCountMask = (1 << prefixCountBits) - 1
	// prefixChunkBits is the width of the fast-path lookup table: a
	// prefixDecoder resolves any code of this length or shorter in one
	// table lookup keyed by the next prefixChunkBits bits of the stream,
	// falling through to a second-level link table only for wider codes.
	prefixChunkBits = 8
)

// prefixDecoder is a canonical Huffman decoder for alphabets up to 15 bits
// wide (literal/length, distance, and code-length alphabets all fit). It
// is organized as a fast-path table keyed by the next chunkBits bits of
// the stream, bit-reversed because DEFLATE transmits codewords MSB-first;
// codes too long for the fast path fall through a "link" continuation
// table holding the remaining bits.
type prefixDecoder struct {
	chunks    []uint16   // First-level lookup map
	links     [][]uint16 // Second-level lookup map
	chunkMask uint16     // Mask the width of the chunks table
	linkMask  uint16     // Mask the width of the link table
	numSyms   uint16     // Number of symbols
	chunkBits uint8      // Bit-width of the chunks table
	minBits   uint8      // The minimum number of bits to safely make progress
}

// Init initializes prefixDecoder according to the codes provided.
// The symbols provided must be unique and in ascending order.
//
// If assignCodes is true, then generate a canonical prefix tree using the
// prefixCode.len field and assign the generated value to prefixCode.val.
//
// If assignCodes is false, then initialize using the information inside the
// codes themselves. The input codes must form a valid prefix tree.
func (pd *prefixDecoder) Init(codes []prefixCode, assignCodes bool) {
	if pd.initDegenerate(codes) {
		return
	}

	bitCnts, minBits, maxBits := tallyCodeLengths(codes)
	nextCodes := assignCanonicalCodes(bitCnts, minBits, maxBits)
	if !assignCodes && !checkPrefixes(codes) {
		panic(ErrBadHuffman) // Some prefixes overlap with each other
	}

	pd.numSyms = uint16(len(codes))
	pd.minBits = uint8(minBits)
	pd.chunkBits = uint8(maxBits)
	if pd.chunkBits > prefixChunkBits {
		pd.chunkBits = prefixChunkBits
	}
	numChunks := 1 << pd.chunkBits
	pd.chunks = extendUint16s(pd.chunks, numChunks)
	pd.chunkMask = uint16(numChunks - 1)

	pd.initLinkTable(codes, nextCodes, maxBits, assignCodes)
	pd.fillTables(codes, nextCodes, assignCodes)
}

// initDegenerate handles the zero- and one-symbol trees directly, since the
// canonical code-assignment machinery below assumes at least two symbols to
// distinguish by their codeword bits. It reports whether it handled codes,
// leaving pd fully initialized when it did.
func (pd *prefixDecoder) initDegenerate(codes []prefixCode) bool {
	switch len(codes) {
	case 0: // Empty tree (should panic if used later)
		*pd = prefixDecoder{chunks: pd.chunks[:0], links: pd.links[:0], numSyms: 0}
		return true
	case 1: // Single code tree (bit-width of zero)
		*pd = prefixDecoder{
			chunks:  append(pd.chunks[:0], uint16(codes[0].sym)<<prefixCountBits),
			links:   pd.links[:0],
			numSyms: 1,
		}
		return true
	}
	return false
}

// tallyCodeLengths validates that codes is sorted by ascending symbol with
// no zero-length entries, and returns a histogram of how many symbols share
// each bit length along with the shortest and longest lengths present.
func tallyCodeLengths(codes []prefixCode) (bitCnts [maxPrefixBits + 1]uint, minBits, maxBits uint32) {
	minBits, maxBits = math.MaxUint8, 0
	symLast := -1
	for _, c := range codes {
		if c.len == 0 || int(c.sym) < symLast {
			panic(ErrBadHuffman)
		}
		if minBits > c.len {
			minBits = c.len
		}
		if maxBits < c.len {
			maxBits = c.len
		}
		bitCnts[c.len]++     // Histogram of bit counts
		symLast = int(c.sym) // Keep track of last symbol
	}
	return bitCnts, minBits, maxBits
}

// assignCanonicalCodes computes, for each bit length, the codeword value
// the next symbol of that length will receive, per the canonical-code
// construction of RFC 1951 section 3.2.2. It panics ErrBadHuffman if the
// length histogram doesn't exactly fill the code space (the tree is over-
// or under-subscribed).
func assignCanonicalCodes(bitCnts [maxPrefixBits + 1]uint, minBits, maxBits uint32) (nextCodes [maxPrefixBits + 1]uint) {
	var code uint
	for i := minBits; i <= maxBits; i++ {
		code <<= 1
		nextCodes[i] = code
		code += bitCnts[i]
	}
	if code != 1<<maxBits {
		panic(ErrBadHuffman) // Tree is under or over subscribed
	}
	return nextCodes
}

// initLinkTable allocates the second-level link table for any codes wider
// than pd.chunkBits, leaving each link slice zeroed and ready for
// fillTables to populate. It is a no-op when every code fits the fast
// path.
func (pd *prefixDecoder) initLinkTable(codes []prefixCode, nextCodes [maxPrefixBits + 1]uint, maxBits uint32, assignCodes bool) {
	pd.links = pd.links[:0]
	pd.linkMask = 0
	if uint32(pd.chunkBits) >= maxBits {
		return
	}

	numChunks := 1 << pd.chunkBits
	numLinks := 1 << (maxBits - uint32(pd.chunkBits))
	pd.linkMask = uint16(numLinks - 1)

	if assignCodes {
		baseCode := nextCodes[pd.chunkBits+1] >> 1
		pd.links = extendSliceUint16s(pd.links, numChunks-int(baseCode))
		for linkIdx := range pd.links {
			code := reverseBits(uint32(baseCode)+uint32(linkIdx), uint(pd.chunkBits))
			pd.links[linkIdx] = extendUint16s(pd.links[linkIdx], numLinks)
			pd.chunks[uint16(code)] = uint16(linkIdx<<prefixCountBits) | uint16(pd.chunkBits+1)
		}
		return
	}

	for i := range pd.chunks {
		pd.chunks[i] = 0 // Logic below relies on zero value as uninitialized
	}
	for _, c := range codes {
		if c.len <= uint32(pd.chunkBits) {
			continue // Ignore symbols that don't require links
		}
		code := uint16(c.val) & pd.chunkMask
		if pd.chunks[code] > 0 {
			continue // Link table already initialized
		}
		linkIdx := len(pd.links)
		pd.links = extendSliceUint16s(pd.links, len(pd.links)+1)
		pd.links[linkIdx] = extendUint16s(pd.links[linkIdx], numLinks)
		pd.chunks[code] = uint16(linkIdx<<prefixCountBits) | uint16(pd.chunkBits+1)
	}
}

// fillTables assigns each code's (symbol, length) chunk word into every
// chunks/links slot its codeword bits can match, either generating the
// codeword from nextCodes (assignCodes) or trusting the one already on the
// code (!assignCodes).
func (pd *prefixDecoder) fillTables(codes []prefixCode, nextCodes [maxPrefixBits + 1]uint, assignCodes bool) {
	for _, c := range codes {
		chunk := uint16(c.sym)<<prefixCountBits | uint16(c.len)
		val := c.val
		if assignCodes {
			val = reverseBits(uint32(nextCodes[c.len]), uint(c.len))
			nextCodes[c.len]++
		}

		if c.len <= uint32(pd.chunkBits) {
			skip := 1 << uint(c.len)
			for i := int(val); i < len(pd.chunks); i += skip {
				pd.chunks[i] = chunk
			}
		} else {
			linkIdx := pd.chunks[uint16(val)&pd.chunkMask] >> prefixCountBits
			links := pd.links[linkIdx]
			skip := 1 << uint(c.len-uint32(pd.chunkBits))
			for i := int(val >> pd.chunkBits); i < len(links); i += skip {
				links[i] = chunk
			}
		}
	}
}

// checkPrefixes reports whether any codes have overlapping prefixes.
func checkPrefixes(codes []prefixCode) bool {
	for i, c1 := range codes {
		for j, c2 := range codes {
			mask := uint32(1)<<c1.len - 1
			if i != j && c1.len <= c2.len && c1.val&mask == c2.val&mask {
				return false
			}
		}
	}
	return true
}

// extendUint16s returns a slice with length n, reusing s if possible.
func extendUint16s(s []uint16, n int) []uint16 {
	if cap(s) >= n {
		return s[:n]
	}
	return append(s[:cap(s)], make([]uint16, n-cap(s))...)
}

// extendSliceUint16s returns a slice with length n, reusing s if possible.
func extendSliceUint16s(s [][]uint16, n int) [][]uint16 {
	if cap(s) >= n {
		return s[:n]
	}
	return append(s[:cap(s)], make([][]uint16, n-cap(s))...)
}
