// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"io"

	"github.com/Dugy/EzGz/internal/xcrc32"
)

type Reader struct {
	InputOffset  int64 // Total bytes consumed from the underlying io.Reader
	OutputOffset int64 // Total bytes emitted from Read

	rd     bitReader // Input source
	toRead []byte    // Decoded data waiting to be copied out by Read
	dist   int       // Distance of the back-reference in progress
	blkLen int       // Uncompressed bytes left in a stored block
	cpyLen int       // Bytes left to copy for the back-reference in progress
	last   bool      // BFINAL seen on the most recently read block header
	err    error     // Persistent error; once set, every call fails with it

	step func(*Reader) // Next unit of decompression work; can panic

	dict     dictDecoder   // Sliding output window (C4)
	litTree  prefixDecoder // Literal/length alphabet for the current block
	distTree prefixDecoder // Distance alphabet for the current block

	useCsum bool
	csum    uint32 // Running CRC-32 of bytes emitted so far (C1, fed from C4)
	size    int64  // Total uncompressed bytes emitted so far
}

func NewReader(r io.Reader, opts Options) *Reader {
	fr := new(Reader)
	fr.Reset(r, opts)
	return fr
}

// Checksum returns the running CRC-32 of every byte emitted from Read so
// far; meaningful only when the Reader was constructed with Checksum: CRC32.
func (fr *Reader) Checksum() uint32 { return fr.csum }

// Size returns the total number of uncompressed bytes emitted from Read so far.
func (fr *Reader) Size() int64 { return fr.size }

// setToRead stages p for emission from Read and, if a checksum was
// requested, folds its own checksum onto the running total in the same
// order callers will observe it through Read.
func (fr *Reader) setToRead(p []byte) {
	fr.toRead = p
	if fr.useCsum {
		fr.csum = xcrc32.Combine(fr.csum, xcrc32.Checksum(p), int64(len(p)))
	}
	fr.size += int64(len(p))
}

func (fr *Reader) Read(buf []byte) (int, error) {
	for {
		if len(fr.toRead) > 0 {
			cnt := copy(buf, fr.toRead)
			fr.toRead = fr.toRead[cnt:]
			fr.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if fr.err != nil {
			return 0, fr.err
		}

		fr.rd.off = fr.InputOffset
		func() {
			defer errRecover(&fr.err)
			fr.step(fr)
		}()
		fr.InputOffset = fr.rd.FlushOffset()
		if fr.err != nil {
			fr.setToRead(fr.dict.ReadFlush()) // Surface whatever was already decoded before failing
		}
	}
}

func (fr *Reader) Close() error {
	if fr.err == io.EOF || fr.err == io.ErrClosedPipe {
		fr.toRead = nil // Make sure future reads fail
		fr.err = io.ErrClosedPipe
		return nil
	}
	return fr.err
}

func (fr *Reader) Reset(r io.Reader, opts Options) error {
	opts = opts.withDefaults()
	*fr = Reader{
		rd:      fr.rd,
		step:    (*Reader).readBlockHeader,
		dict:    fr.dict,
		useCsum: opts.Checksum == CRC32,
	}
	fr.rd.Init(r, opts.InputMaxSize)
	fr.dict.Init(outCapSize)
	return nil
}

// readBlockHeader reads a 3-bit block header per RFC 1951 section 3.2.3
// and dispatches to the matching body reader.
func (fr *Reader) readBlockHeader() {
	if fr.last {
		fr.rd.ReadPads()
		panic(io.EOF)
	}

	fr.last = fr.rd.ReadBits(1) == 1
	switch fr.rd.ReadBits(2) {
	case 0:
		fr.rd.ReadPads()
		n := uint16(fr.rd.ReadBits(16))
		nn := uint16(fr.rd.ReadBits(16))
		if n^nn != 0xffff {
			panic(ErrBadStored)
		}
		fr.blkLen = int(n)
		if fr.blkLen == 0 {
			// An empty stored block is the conventional way to force a flush.
			fr.setToRead(fr.dict.ReadFlush())
			fr.step = (*Reader).readBlockHeader
			return
		}
		fr.step = (*Reader).readStoredBlock
	case 1:
		fr.litTree, fr.distTree = litTree, distTree
		fr.step = (*Reader).readTokens
	case 2:
		fr.rd.ReadPrefixCodes(&fr.litTree, &fr.distTree)
		fr.step = (*Reader).readTokens
	default:
		panic(ErrBadBlock) // BTYPE 3 is reserved
	}
}

// readStoredBlock copies an uncompressed block's bytes straight from the
// bit reader into the output window (RFC 1951 section 3.2.4), resuming
// itself across ReadFlush boundaries until blkLen reaches zero.
func (fr *Reader) readStoredBlock() {
	dst := fr.dict.WriteSlice()
	if len(dst) > fr.blkLen {
		dst = dst[:fr.blkLen]
	}

	cnt, err := fr.rd.Read(dst)
	fr.blkLen -= cnt
	fr.dict.WriteMark(cnt)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		panic(err)
	}

	if fr.blkLen > 0 {
		fr.setToRead(fr.dict.ReadFlush())
		fr.step = (*Reader).readStoredBlock
		return
	}
	fr.step = (*Reader).readBlockHeader
}

// readTokens decodes a compressed block's literal/length-and-distance
// token stream per RFC 1951 section 3.2.3. It loops over literals and
// completed back-reference copies directly; the moment a copy can't
// finish before the output window needs flushing, it hands off to
// resumeCopy instead of looping further, since a token can straddle a
// ReadFlush boundary but the RFC gives no way to resume mid-symbol.
func (fr *Reader) readTokens() {
	for {
		if fr.dict.AvailSize() == 0 {
			fr.setToRead(fr.dict.ReadFlush())
			fr.step = (*Reader).readTokens
			return
		}

		litSym, ok := fr.rd.TryReadSymbol(&fr.litTree)
		if !ok {
			litSym = fr.rd.ReadSymbol(&fr.litTree)
		}
		switch {
		case litSym < endBlockSym:
			fr.dict.PutByte(byte(litSym))
			continue
		case litSym == endBlockSym:
			fr.step = (*Reader).readBlockHeader
			return
		case litSym < maxNumLitSyms:
			fr.decodeMatch(litSym)
			if !fr.runCopy() {
				return
			}
			continue
		default:
			panic(ErrBadCode)
		}
	}
}

// decodeMatch reads the length and distance extra-bits fields that follow
// a length symbol in [257, maxNumLitSyms), populating cpyLen and dist for
// runCopy to act on.
func (fr *Reader) decodeMatch(lenSym uint) {
	rec := lenLUT[lenSym-257]
	extra, ok := fr.rd.TryReadBits(uint(rec.bits))
	if !ok {
		extra = fr.rd.ReadBits(uint(rec.bits))
	}
	fr.cpyLen = int(rec.base) + int(extra)

	distSym, ok := fr.rd.TryReadSymbol(&fr.distTree)
	if !ok {
		distSym = fr.rd.ReadSymbol(&fr.distTree)
	}
	if distSym >= maxNumDistSyms {
		panic(ErrBadCode)
	}
	rec = distLUT[distSym]
	extra, ok = fr.rd.TryReadBits(uint(rec.bits))
	if !ok {
		extra = fr.rd.ReadBits(uint(rec.bits))
	}
	fr.dist = int(rec.base) + int(extra)
}

// runCopy performs (the resumable remainder of) the back-reference copy
// described by fr.dist/fr.cpyLen, trying the no-wraparound fast path
// first. It reports whether the copy finished within the current window
// budget; when it didn't, fr.step is already set to resumeCopy and the
// caller (readTokens) must return immediately.
func (fr *Reader) runCopy() bool {
	cnt := fr.dict.TryWriteCopy(fr.dist, fr.cpyLen)
	if cnt == 0 {
		cnt = fr.dict.WriteCopy(fr.dist, fr.cpyLen)
	}
	fr.cpyLen -= cnt
	if fr.cpyLen > 0 {
		fr.setToRead(fr.dict.ReadFlush())
		fr.step = (*Reader).resumeCopy
		return false
	}
	return true
}

// resumeCopy continues a back-reference copy that didn't fit before the
// last ReadFlush, then falls back into the ordinary token loop.
func (fr *Reader) resumeCopy() {
	if !fr.runCopy() {
		return
	}
	fr.readTokens()
}
