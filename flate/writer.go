// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"io"

	"github.com/Dugy/EzGz/internal/xcrc32"
)

// Writer is the DEFLATE block encoder (C10), backed by the duplication
// finder (C9) and the bit writer (C5). Input bytes accumulate in a retained
// window; once enough lookahead has built up they are tokenized into
// literals and back-references, batched into sections bounded by
// Options.DedupMaxSize, and each section is Huffman-encoded as either a
// fixed or a dynamic block, whichever costs fewer bits.
type Writer struct {
	opts Options
	bw   bitWriter
	mf   matchFinder

	buf []byte // Retained input; buf[pos:] is unprocessed, buf[:pos] awaits trimming.
	pos int

	tokens []token

	useCsum bool
	csum    uint32
	size    int64

	closed bool
	err    error
}

func NewWriter(w io.Writer, opts Options) *Writer {
	fw := new(Writer)
	fw.Reset(w, opts)
	return fw
}

// Checksum returns the running CRC-32 of every byte written so far.
func (fw *Writer) Checksum() uint32 { return fw.csum }

// Size returns the total number of uncompressed bytes written so far.
func (fw *Writer) Size() int64 { return fw.size }

func (fw *Writer) Reset(w io.Writer, opts Options) {
	opts = opts.withDefaults()
	*fw = Writer{opts: opts, buf: fw.buf[:0], useCsum: opts.Checksum == CRC32}
	fw.bw.Init(w)
	fw.mf.Reset()
}

// Write tokenizes as much of p as the retained window allows, flushing
// completed sections as encoded blocks. It never blocks on lookahead: any
// bytes too close to the end of the accumulated buffer to search safely are
// held until the next Write or until Close forces them out.
func (fw *Writer) Write(p []byte) (int, error) {
	if fw.err != nil {
		return 0, fw.err
	}
	if fw.closed {
		return 0, ErrClosed
	}
	n := len(p)
	fw.buf = append(fw.buf, p...)
	fw.drain(false)
	if fw.err != nil {
		return 0, fw.err
	}
	return n, nil
}

func (fw *Writer) drain(final bool) {
	defer errRecover(&fw.err)
	for {
		avail := len(fw.buf) - fw.pos
		if avail <= 0 {
			break
		}
		if !final && avail < maxMatchLen {
			break
		}
		length, dist, ok := fw.mf.FindMatch(fw.buf, fw.pos, avail)
		if ok {
			fw.tokens = append(fw.tokens, matchToken(uint32(length), uint32(dist)))
			fw.pos += length
		} else {
			fw.tokens = append(fw.tokens, literalToken(fw.buf[fw.pos]))
			fw.pos++
		}
		if len(fw.tokens) >= fw.opts.DedupMaxSize {
			fw.writeBlock(fw.tokens, false)
			fw.tokens = fw.tokens[:0]
		}
		// A match's distance can reach back at most fw.pos bytes (matchPos
		// is never negative), so FindMatch must never be called with pos
		// past outWinSize or it could hand back a distance the wire
		// format's 13 extra distance bits can't represent. Re-baseline as
		// soon as pos crosses that line rather than waiting for drain to
		// finish, since a single Write can tokenize far more than one
		// window's worth of bytes before returning; trimming here leaves
		// pos at exactly outWinSize, so every subsequent FindMatch in this
		// loop (and the first one after it) stays within bounds.
		if fw.pos > outWinSize {
			fw.trim(outWinSize)
		}
	}
	if final {
		fw.trim(0)
	} else {
		fw.trim(outWinSize)
	}
}

// trim drops everything in buf beyond the last keep bytes before pos,
// feeding the checksum over the dropped prefix (those bytes are already
// fully tokenized and will never be read again) and sliding the
// duplication finder's stored positions to match.
func (fw *Writer) trim(keep int) {
	if fw.pos <= keep {
		return
	}
	drop := fw.pos - keep
	if fw.useCsum {
		fw.csum = xcrc32.Combine(fw.csum, xcrc32.Checksum(fw.buf[:drop]), int64(drop))
	}
	fw.size += int64(drop)
	copy(fw.buf, fw.buf[drop:])
	fw.buf = fw.buf[:len(fw.buf)-drop]
	fw.pos -= drop
	fw.mf.Slide(drop)
}

// Close tokenizes every remaining buffered byte, emits the final section as
// a BFINAL block, and flushes the bit writer. A Writer must not be used
// again afterward; call Reset to reuse it.
func (fw *Writer) Close() error {
	if fw.err != nil {
		return fw.err
	}
	if fw.closed {
		return nil
	}
	fw.closed = true
	fw.drain(true)
	if fw.err != nil {
		return fw.err
	}
	func() {
		defer errRecover(&fw.err)
		fw.writeBlock(fw.tokens, true)
		fw.tokens = fw.tokens[:0]
		fw.bw.Flush()
	}()
	return fw.err
}

// writeBlock encodes one section of tokens as a single DEFLATE block,
// choosing between a fixed-Huffman and a dynamic-Huffman body per §4.10.
func (fw *Writer) writeBlock(toks []token, final bool) {
	var litFreq [maxNumLitSyms]uint32
	var distFreq [maxNumDistSyms]uint32
	litFreq[endBlockSym] = 1

	staticBits := uint64(litCode.BitLength(endBlockSym))
	for _, t := range toks {
		switch t.kind {
		case tokLiteral:
			litFreq[t.lit]++
			staticBits += uint64(litCode.BitLength(uint32(t.lit)))
		case tokMatch:
			lsym, _, lbits := lenSym(int(t.length))
			dsym, _, dbits := distSym(int(t.dist))
			litFreq[lsym]++
			distFreq[dsym]++
			staticBits += uint64(litCode.BitLength(lsym)) + uint64(lbits)
			staticBits += uint64(distCode.BitLength(dsym)) + uint64(dbits)
		}
	}

	numLit := len(litFreq)
	for numLit > 257 && litFreq[numLit-1] == 0 {
		numLit--
	}
	numDist := len(distFreq)
	for numDist > 1 && distFreq[numDist-1] == 0 {
		numDist--
	}

	litLens := buildLengths(litFreq[:numLit], maxPrefixBits)
	distLens := buildLengths(distFreq[:numDist], maxPrefixBits)

	var dynLit, dynDist prefixEncoder
	dynLit.Init(codesFromLengths(litLens))
	distCodes := codesFromLengths(distLens)
	if len(distCodes) == 0 {
		distCodes = []prefixCode{{sym: 0, len: 1}}
		distLens[0] = 1
	}
	dynDist.Init(distCodes)

	combined := append(append([]uint32{}, litLens...), distLens...)
	clSeq, clFreqArr := buildCLSeq(combined)
	clLens := buildLengths(clFreqArr[:], 7)
	var clEnc prefixEncoder
	clEnc.Init(codesFromLengths(clLens))

	numCLen := 4
	for i := maxNumCLenSyms - 1; i >= 4; i-- {
		if clLens[clenLens[i]] != 0 {
			numCLen = i + 1
			break
		}
	}

	dynBits := uint64(14 + 3*numCLen)
	for _, c := range clSeq {
		dynBits += uint64(clEnc.BitLength(c.sym)) + uint64(c.extraBits)
	}
	for _, t := range toks {
		switch t.kind {
		case tokLiteral:
			dynBits += uint64(dynLit.BitLength(uint32(t.lit)))
		case tokMatch:
			lsym, _, lbits := lenSym(int(t.length))
			dsym, _, dbits := distSym(int(t.dist))
			dynBits += uint64(dynLit.BitLength(lsym)) + uint64(lbits)
			dynBits += uint64(dynDist.BitLength(dsym)) + uint64(dbits)
		}
	}
	dynBits += uint64(dynLit.BitLength(endBlockSym))

	fw.bw.WriteBits(b2u(final), 1)
	if dynBits < staticBits {
		fw.writeDynamicBody(toks, &dynLit, &dynDist, &clEnc, clSeq, clLens, numLit, numDist, numCLen)
	} else {
		fw.writeStaticBody(toks)
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// codesFromLengths packs a dense length-per-symbol slice into the sparse
// (symbol, length) form prefixEncoder.Init expects, in ascending symbol
// order, skipping unused symbols.
func codesFromLengths(lens []uint32) []prefixCode {
	var codes []prefixCode
	for sym, l := range lens {
		if l > 0 {
			codes = append(codes, prefixCode{sym: uint32(sym), len: l})
		}
	}
	return codes
}

func (fw *Writer) writeStaticBody(toks []token) {
	fw.bw.WriteBits(1, 2)
	fw.emitTokens(toks, &litCode, &distCode)
	litCode.WriteSymbol(&fw.bw, endBlockSym)
}

func (fw *Writer) writeDynamicBody(toks []token, dynLit, dynDist, clEnc *prefixEncoder, clSeq []clToken, clLens []uint32, numLit, numDist, numCLen int) {
	fw.bw.WriteBits(2, 2)
	fw.bw.WriteBits(uint32(numLit-257), 5)
	fw.bw.WriteBits(uint32(numDist-1), 5)
	fw.bw.WriteBits(uint32(numCLen-4), 4)
	for i := 0; i < numCLen; i++ {
		fw.bw.WriteBits(clLens[clenLens[i]], 3)
	}
	for _, c := range clSeq {
		clEnc.WriteSymbol(&fw.bw, c.sym)
		fw.bw.WriteExtra(c.extra, c.extraBits)
	}
	fw.emitTokens(toks, dynLit, dynDist)
	dynLit.WriteSymbol(&fw.bw, endBlockSym)
}

func (fw *Writer) emitTokens(toks []token, litEnc, distEnc *prefixEncoder) {
	for _, t := range toks {
		switch t.kind {
		case tokLiteral:
			litEnc.WriteSymbol(&fw.bw, uint32(t.lit))
		case tokMatch:
			lsym, lextra, lbits := lenSym(int(t.length))
			dsym, dextra, dbits := distSym(int(t.dist))
			litEnc.WriteSymbol(&fw.bw, lsym)
			fw.bw.WriteExtra(lextra, lbits)
			distEnc.WriteSymbol(&fw.bw, dsym)
			fw.bw.WriteExtra(dextra, dbits)
		}
	}
}

// clToken is one entry of the run-length-encoded code-length sequence used
// to transmit the literal/length and distance alphabets' lengths together,
// per RFC 1951 section 3.2.7.
type clToken struct {
	sym       uint32
	extra     uint32
	extraBits uint32
}

// buildCLSeq run-length encodes lens (a concatenation of the literal/length
// and distance length vectors) into the 19-symbol code-length alphabet:
// 0..15 literal lengths, 16 repeats the previous length 3..6 times, 17 is a
// zero run of 3..10, 18 is a zero run of 11..138.
func buildCLSeq(lens []uint32) ([]clToken, [maxNumCLenSyms]uint32) {
	var seq []clToken
	var freq [maxNumCLenSyms]uint32
	n := len(lens)
	i := 0
	for i < n {
		cur := lens[i]
		cnt := 1
		for i+cnt < n && lens[i+cnt] == cur {
			cnt++
		}
		if cur == 0 {
			rem := cnt
			for rem > 0 {
				if rem < 3 {
					seq = append(seq, clToken{sym: 0})
					freq[0]++
					rem--
					continue
				}
				if rem <= 10 {
					seq = append(seq, clToken{sym: 17, extra: uint32(rem - 3), extraBits: 3})
					freq[17]++
					rem = 0
				} else {
					r := rem
					if r > 138 {
						r = 138
					}
					seq = append(seq, clToken{sym: 18, extra: uint32(r - 11), extraBits: 7})
					freq[18]++
					rem -= r
				}
			}
		} else {
			seq = append(seq, clToken{sym: cur})
			freq[cur]++
			rem := cnt - 1
			for rem > 0 {
				if rem < 3 {
					seq = append(seq, clToken{sym: cur})
					freq[cur]++
					rem--
					continue
				}
				r := rem
				if r > 6 {
					r = 6
				}
				seq = append(seq, clToken{sym: 16, extra: uint32(r - 3), extraBits: 2})
				freq[16]++
				rem -= r
			}
		}
		i += cnt
	}
	return seq, freq
}
