// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import "io"
import "bufio"

// bitReader never consumes more bytes than the bit stream actually needs,
// but paying for that one byte at a time via ReadByte is slow, and
// ReadSymbol's variable-length codes often need several feeds before the
// decoder even knows how wide the code was. So when the source underneath
// it is a *bufio.Reader, bitReader bypasses ReadByte entirely and drives
// the buffer's own Peek/Discard pair (refillFromPeeker) to load as many
// bits as will fit in one shot; TryReadBits and TryReadSymbol then usually
// succeed against whatever refillFromPeeker last loaded, with no further
// calls into the source at all. Plain io.Reader sources fall back to
// refillFromByteReader, one byte at a time.

type byteSource interface {
	io.Reader
	io.ByteReader
}

type bitReader struct {
	src   byteSource
	bits  uint64 // Buffer to hold some bits
	nbits uint   // Number of valid bits in bits
	off   int64  // Number of bytes read from the underlying io.Reader

	// These fields are only used if src is a bufio.Reader.
	peeker         *bufio.Reader
	peeked         []byte // Buffer for the Peek data
	pendingDiscard int    // Number of bits to discard from peeker
	lastFed        uint   // Number of bits fed in last call to FeedBits

	// Local copy of decoder to reduce memory allocations.
	clenTree prefixDecoder
}

// minBitReaderBufSize is the smallest bufio.Reader capacity Init will
// accept for bufSize; a refillFromPeeker call tops out loading 64 bits at a
// time, and a smaller buffer would just thrash Read calls on the underlying
// io.Reader.
const minBitReaderBufSize = 64

// Init prepares br to decode from r. bufSize sizes the internal bufio.Reader
// used for the refillFromPeeker fast path when r does not already implement
// byteSource; it is the chunked-input knob from Options.InputMaxSize (C2),
// clamped to a usable minimum.
func (br *bitReader) Init(r io.Reader, bufSize int) {
	*br = bitReader{clenTree: br.clenTree}
	if rr, ok := r.(byteSource); ok {
		br.src = rr
	} else {
		if bufSize < minBitReaderBufSize {
			bufSize = minBitReaderBufSize
		}
		br.src = bufio.NewReaderSize(r, bufSize)
	}
	if p, ok := br.src.(*bufio.Reader); ok {
		br.peeker = p
	}
}

// FlushOffset updates the read offset of the underlying byteSource. If the
// byteSource is a bufio.Reader, then this calls Discard to update the read
// offset.
func (br *bitReader) FlushOffset() int64 {
	if br.peeker == nil {
		return br.off
	}

	// Update the number of total bits to discard.
	br.pendingDiscard += int(br.lastFed - br.nbits)
	br.lastFed = br.nbits

	// Discard some bytes to update read offset.
	nd := (br.pendingDiscard + 7) / 8 // Round up to nearest byte
	nd, _ = br.peeker.Discard(nd)
	br.pendingDiscard -= nd * 8 // -7..0
	br.off += int64(nd)

	// These are invalid after Discard.
	br.peeked = nil
	return br.off
}

// FeedBits ensures that at least nb bits exist in the bit buffer, refilling
// from whichever source bitReader was initialized with.
func (br *bitReader) FeedBits(nb uint) {
	if br.peeker != nil {
		br.refillFromPeeker(nb)
	} else {
		br.refillFromByteReader(nb)
	}
}

// refillFromPeeker fills the bit buffer with as many bits as will fit,
// relying on peeker's Peek and Discard to advance the read offset lazily.
// Used whenever the underlying byteSource is a *bufio.Reader.
func (br *bitReader) refillFromPeeker(nb uint) {
	br.pendingDiscard += int(br.lastFed - br.nbits)
	for {
		if len(br.peeked) == 0 {
			br.lastFed = br.nbits // Don't discard bits just added
			br.FlushOffset()

			var err error
			cntPeek := 8 // Minimum Peek amount to make progress
			if br.peeker.Buffered() > cntPeek {
				cntPeek = br.peeker.Buffered()
			}
			br.peeked, err = br.peeker.Peek(cntPeek)
			br.peeked = br.peeked[int(br.nbits/8):] // Skip buffered bits
			if len(br.peeked) == 0 {
				if br.nbits >= nb {
					break
				}
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				panic(err)
			}
		}
		cnt := int(64-br.nbits) / 8
		if cnt > len(br.peeked) {
			cnt = len(br.peeked)
		}
		for _, c := range br.peeked[:cnt] {
			br.bits |= uint64(c) << br.nbits
			br.nbits += 8
		}
		br.peeked = br.peeked[cnt:]
		if br.nbits > 56 {
			break
		}
	}
	br.lastFed = br.nbits
}

// refillFromByteReader fills the bit buffer one byte at a time via
// ReadByte, pulling exactly as many bytes as nb needs and no more. Used
// whenever the underlying byteSource is not a *bufio.Reader.
func (br *bitReader) refillFromByteReader(nb uint) {
	for br.nbits < nb {
		c, err := br.src.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			panic(err)
		}
		br.bits |= uint64(c) << br.nbits
		br.nbits += 8
		br.off++
	}
}

// Read reads up to len(buf) bytes into buf.
func (br *bitReader) Read(buf []byte) (cnt int, err error) {
	if br.nbits%8 != 0 {
		return 0, Error("non-aligned bit buffer")
	}
	if br.nbits > 0 {
		for cnt = 0; len(buf) > cnt && br.nbits > 0; cnt++ {
			buf[cnt] = byte(br.bits)
			br.bits >>= 8
			br.nbits -= 8
		}
	} else {
		br.FlushOffset()
		cnt, err = br.src.Read(buf)
		br.off += int64(cnt)
	}
	return cnt, err
}

// TryReadBits attempts to read nb bits using the contents of the bit buffer
// alone. It returns the value and whether it succeeded.
//
// This method is designed to be inlined for performance reasons.
func (br *bitReader) TryReadBits(nb uint) (uint, bool) {
	if br.nbits < nb {
		return 0, false
	}
	val := uint(br.bits & uint64(1<<nb-1))
	br.bits >>= nb
	br.nbits -= nb
	return val, true
}

// ReadBits reads nb bits in LSB order from the underlying reader.
func (br *bitReader) ReadBits(nb uint) uint {
	br.FeedBits(nb)
	val := uint(br.bits & uint64(1<<nb-1))
	br.bits >>= nb
	br.nbits -= nb
	return val
}

// ReadPads reads 0-7 bits from the bit buffer to achieve byte-alignment.
func (br *bitReader) ReadPads() uint {
	nb := br.nbits % 8
	val := uint(br.bits & uint64(1<<nb-1))
	br.bits >>= nb
	br.nbits -= nb
	return val
}

// TryReadSymbol attempts to decode the next symbol using the contents of the
// bit buffer alone. It returns the decoded symbol and whether it succeeded.
//
// This method is designed to be inlined for performance reasons.
func (br *bitReader) TryReadSymbol(pd *prefixDecoder) (uint, bool) {
	if br.nbits < uint(pd.minBits) || len(pd.chunks) == 0 {
		return 0, false
	}
	chunk := pd.chunks[uint32(br.bits)&uint32(pd.chunkMask)]
	nb := uint(chunk & prefixCountMask)
	if nb > br.nbits || nb > uint(pd.chunkBits) {
		return 0, false
	}
	br.bits >>= nb
	br.nbits -= nb
	return uint(chunk >> prefixCountBits), true
}

// ReadSymbol reads the next prefix symbol using the provided prefixDecoder.
func (br *bitReader) ReadSymbol(pd *prefixDecoder) uint {
	if len(pd.chunks) == 0 {
		panic(ErrCorrupt) // Decode with empty tree
	}

	nb := uint(pd.minBits)
	for {
		br.FeedBits(nb)
		chunk := pd.chunks[uint32(br.bits)&uint32(pd.chunkMask)]
		nb = uint(chunk & prefixCountMask)
		if nb > uint(pd.chunkBits) {
			linkIdx := chunk >> prefixCountBits
			chunk = pd.links[linkIdx][uint32(br.bits>>pd.chunkBits)&uint32(pd.linkMask)]
			nb = uint(chunk & prefixCountMask)
		}
		if nb <= br.nbits {
			br.bits >>= nb
			br.nbits -= nb
			return uint(chunk >> prefixCountBits)
		}
	}
}

// ReadOffset reads an offset value using the provided rangeCodes indexed by
// the given symbol.
func (br *bitReader) ReadOffset(sym uint, rcs []rangeCode) uint {
	rc := rcs[sym]
	return uint(rc.base) + br.ReadBits(uint(rc.bits))
}

// ReadPrefixCodes reads the literal and distance prefix codes according to
// RFC section 3.2.7.
func (br *bitReader) ReadPrefixCodes(hl, hd *prefixDecoder) {
	nLit := br.ReadBits(5) + 257
	nDist := br.ReadBits(5) + 1
	nCLen := br.ReadBits(4) + 4
	if nLit > maxNumLitSyms || nDist > maxNumDistSyms {
		panic(ErrCorrupt)
	}

	// Read the code-lengths prefix table.
	var clenArr [maxNumCLenSyms]prefixCode // Sorted, but may have holes
	for _, sym := range clenLens[:nCLen] {
		clen := br.ReadBits(3)
		if clen > 0 {
			clenArr[sym] = prefixCode{sym: uint32(sym), len: uint32(clen)}
		}
	}
	clenCodes := clenArr[:0] // Compact the array to have no holes
	for _, c := range clenArr {
		if c.len > 0 {
			clenCodes = append(clenCodes, c)
		}
	}
	clenCodes = fillDegenerateSingleCode(clenCodes, maxNumCLenSyms)
	br.clenTree.Init(clenCodes, true)

	// Use the code-lengths table to decode the literal/length and distance
	// prefix tables.
	var symCodes [maxNumLitSyms + maxNumDistSyms]prefixCode
	var lastLen uint
	litCodes := symCodes[:0]
	distCodes := symCodes[maxNumLitSyms:maxNumLitSyms]
	record := func(sym, clen uint) {
		if sym < nLit {
			litCodes = append(litCodes, prefixCode{sym: uint32(sym), len: uint32(clen)})
		} else {
			distCodes = append(distCodes, prefixCode{sym: uint32(sym - nLit), len: uint32(clen)})
		}
	}
	for sym, maxSyms := uint(0), nLit+nDist; sym < maxSyms; {
		clen := br.ReadSymbol(&br.clenTree)
		if clen < 16 {
			// Literal bit-length symbol used.
			if clen > 0 {
				record(sym, clen)
			}
			lastLen = clen
			sym++
		} else {
			// Repeater symbol used.
			var repCnt uint
			switch repSym := clen; repSym {
			case 16:
				if sym == 0 {
					panic(ErrCorrupt)
				}
				clen = lastLen
				repCnt = 3 + br.ReadBits(2)
			case 17:
				clen = 0
				repCnt = 3 + br.ReadBits(3)
			case 18:
				clen = 0
				repCnt = 11 + br.ReadBits(7)
			default:
				panic(ErrCorrupt)
			}

			if clen > 0 {
				for symEnd := sym + repCnt; sym < symEnd; sym++ {
					record(sym, clen)
				}
			} else {
				sym += repCnt
			}
			if sym > maxSyms {
				panic(ErrCorrupt)
			}
		}
	}

	litCodes = fillDegenerateSingleCode(litCodes, maxNumLitSyms)
	hl.Init(litCodes, true)
	distCodes = fillDegenerateSingleCode(distCodes, maxNumDistSyms)
	hd.Init(distCodes, true)

	// As an optimization, seed minBits for the literal/length tree with the
	// bit length of the end-of-block marker, since every block must
	// terminate with one: ReadSymbol will then never feed fewer bits than
	// it actually needs for the first symbol of a fresh block, preserving
	// the property that the reader never consumes bytes past the end of
	// the stream. This only pays off when refillFromByteReader is in play;
	// refillFromPeeker always tries to fill the buffer regardless of
	// minBits, so there's nothing to seed there.
	if br.peeker == nil {
		for i := len(litCodes) - 1; i >= 0; i-- {
			if litCodes[i].sym == 256 && litCodes[i].len > 0 {
				hl.minBits = uint8(litCodes[i].len)
				break
			}
		}
	}
}

// RFC section 3.2.7 allows degenerate prefix trees with only one node, but
// requires a single bit for that node. This causes an unbalanced tree where
// the "1" code is unused. The canonical prefix code generation algorithm
// breaks with this.
//
// To handle this case, fillDegenerateSingleCode artificially inserts another
// node for the "1" code that uses a symbol larger than the alphabet, forcing
// an error later if the code ends up getting used.
func fillDegenerateSingleCode(codes []prefixCode, maxSyms uint) []prefixCode {
	if len(codes) != 1 {
		return codes
	}
	return append(codes, prefixCode{sym: uint32(maxSyms), len: 1})
}
