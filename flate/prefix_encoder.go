// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

// prefixEncoder is the write-side counterpart of prefixDecoder: given a set
// of per-symbol code lengths, it assigns canonical codes (ascending code
// value for ascending symbol, within a length) and emits them bit-reversed,
// matching DEFLATE's MSB-first Huffman convention.
type prefixEncoder struct {
	codes []uint16 // bit-reversed code per symbol, indexed by symbol
	lens  []uint8  // code length per symbol; 0 means unused
}

// Init builds canonical codes for codes, which must be in ascending symbol
// order but need not be dense;
// every prefixCode.len field must already be set (0 for unused symbols are
// simply omitted from the input slice). The resulting table is indexed
// densely by symbol value, from 0 up to the largest symbol seen.
func (pe *prefixEncoder) Init(codes []prefixCode) {
	maxSym := uint32(0)
	for _, c := range codes {
		if c.sym > maxSym {
			maxSym = c.sym
		}
	}
	pe.codes = allocUint16s(pe.codes, int(maxSym)+1)
	pe.lens = allocUint8s(pe.lens, int(maxSym)+1)
	for i := range pe.codes {
		pe.codes[i] = 0
		pe.lens[i] = 0
	}

	var bitCnts [maxPrefixBits + 1]uint
	for _, c := range codes {
		if c.len == 0 {
			continue
		}
		bitCnts[c.len]++
	}
	var nextCodes [maxPrefixBits + 1]uint
	var code uint
	for i := 1; i <= maxPrefixBits; i++ {
		code <<= 1
		nextCodes[i] = code
		code += bitCnts[i]
	}

	// RFC 1951 canonical assignment requires assigning ascending codes to
	// symbols with the same length in ascending symbol order; since codes
	// is walked in symbol order already (the literal/length and distance
	// alphabets are built that way), a single ascending pass suffices.
	for _, c := range codes {
		if c.len == 0 {
			continue
		}
		val := nextCodes[c.len]
		nextCodes[c.len]++
		pe.codes[c.sym] = uint16(reverseBits(uint32(val), uint(c.len)))
		pe.lens[c.sym] = uint8(c.len)
	}
}

// WriteSymbol emits the canonical code for sym through bw.
func (pe *prefixEncoder) WriteSymbol(bw *bitWriter, sym uint32) {
	bw.WriteBits(uint32(pe.codes[sym]), uint(pe.lens[sym]))
}

// BitLength returns the number of bits WriteSymbol would emit for sym,
// used by the block encoder to cost out candidate blocks before writing.
func (pe *prefixEncoder) BitLength(sym uint32) uint32 {
	return uint32(pe.lens[sym])
}

func allocUint16s(s []uint16, n int) []uint16 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]uint16, n, n*3/2)
}

func allocUint8s(s []uint8, n int) []uint8 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]uint8, n, n*3/2)
}

// buildLengths assigns canonical-ready code lengths to the symbols in
// freqs (indexed by symbol, 0 meaning the symbol is unused), following the
// greedy proportional-capacity construction: each symbol's length is the
// smallest satisfying 2^-len <= freq/total (capped at maxLen), then any
// capacity overrun caused by that cap is removed by lengthening the longest
// codes still below maxLen, and any leftover coding capacity is repaired by
// shortening the longest-tolerated codes until the full 1<<maxLen budget is
// used exactly, as is required for the canonical decoder to accept the
// resulting tree. A lone used symbol is the exception: it gets length 1,
// the single-code tree RFC 1951 allows, which fills half the budget.
//
// This trades a small amount of compression ratio against the classical
// package-merge algorithm in exchange for a much simpler, branch-light
// implementation; see the design notes for why the trade is acceptable
// here.
func buildLengths(freqs []uint32, maxLen uint32) []uint32 {
	lens := make([]uint32, len(freqs))
	var total uint64
	for _, f := range freqs {
		total += uint64(f)
	}
	if total == 0 {
		return lens
	}

	type used struct{ idx int }
	var syms []used
	for i, f := range freqs {
		if f == 0 {
			continue
		}
		l := uint32(1)
		for (uint64(1) << l) < divCeil(total, uint64(f)) {
			l++
		}
		if l > maxLen {
			l = maxLen
		}
		lens[i] = l
		syms = append(syms, used{i})
	}
	if len(syms) == 1 {
		lens[syms[0].idx] = 1
		return lens
	}

	full := uint64(1) << maxLen
	var cap_ uint64
	for _, s := range syms {
		cap_ += full >> lens[s.idx]
	}

	for cap_ > full {
		best := -1
		for k, s := range syms {
			if lens[s.idx] >= maxLen {
				continue
			}
			if best == -1 || lens[s.idx] > lens[syms[best].idx] {
				best = k
			}
		}
		idx := syms[best].idx
		lens[idx]++
		cap_ -= full >> lens[idx]
	}

	for cap_ < full {
		gap := full - cap_
		best := -1
		for k, s := range syms {
			if lens[s.idx] <= 1 {
				continue
			}
			old := full >> lens[s.idx]
			if old > gap {
				continue
			}
			if best == -1 || lens[s.idx] > lens[syms[best].idx] {
				best = k
			}
		}
		if best == -1 {
			panic(ErrBadHuffman) // Pathological distribution; see design notes.
		}
		idx := syms[best].idx
		old := full >> lens[idx]
		lens[idx]--
		cap_ += old
	}
	return lens
}

func divCeil(n, m uint64) uint64 {
	return (n + m - 1) / m
}
