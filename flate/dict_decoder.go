// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

// dictDecoder is the sliding output window a Reader decodes into (C4): a
// byte slice sized outCapSize (outWinSize + 258 + outWinSize) so that a
// single back-reference copy or literal run never straddles a wrap. It is
// not a true ring buffer during steady-state decoding — writePos only
// wraps back to zero once the slice fills to capacity, at which point
// wrapped latches so later distance checks treat the whole slice as valid
// history, and WriteCopy's own wraparound handling in copyWrapped is what
// lets a back-reference straddle that one reset point.
type dictDecoder struct {
	window []byte

	// Invariant: 0 <= readPos <= writePos <= len(window)
	writePos int  // Next unwritten offset in window
	readPos  int  // window[:readPos] has already been handed to ReadFlush
	wrapped  bool // Has window filled to capacity at least once?

	written int64 // Total uncompressed bytes written, across all wraps
}

// Init resizes and resets the window to hold size bytes of retained
// history.
func (dd *dictDecoder) Init(size int) {
	*dd = dictDecoder{window: dd.window}
	if cap(dd.window) < size {
		dd.window = make([]byte, size)
	}
	dd.window = dd.window[:size]
}

// HistSize reports how many bytes of valid back-reference history are
// currently retained — the bound a WriteCopy distance must stay within.
func (dd *dictDecoder) HistSize() int {
	if dd.wrapped {
		return len(dd.window)
	}
	return dd.writePos
}

// AvailSize reports how many more bytes can be written before a ReadFlush
// is required to make room.
func (dd *dictDecoder) AvailSize() int {
	return len(dd.window) - dd.writePos
}

// WriteSlice returns the unwritten tail of window, for a stored block to
// Read directly into.
func (dd *dictDecoder) WriteSlice() []byte {
	return dd.window[dd.writePos:]
}

// WriteMark advances the write cursor by cnt bytes already placed via
// WriteSlice.
func (dd *dictDecoder) WriteMark(cnt int) {
	dd.writePos += cnt
	dd.written += int64(cnt)
}

// PutByte appends a single literal byte.
func (dd *dictDecoder) PutByte(c byte) {
	dd.window[dd.writePos] = c
	dd.writePos++
	dd.written++
}

// WriteCopy performs (part of) a back-reference copy of length bytes from
// dist bytes behind the write cursor, clamping to however much space
// remains before the next ReadFlush and returning the number of bytes
// actually written; the caller resumes with the remainder after flushing.
// A dist beyond the retained history panics ErrBackRef rather than
// silently copying garbage.
func (dd *dictDecoder) WriteCopy(dist, length int) int {
	if dist > dd.HistSize() {
		panic(ErrBackRef)
	}

	start := dd.writePos
	end := start + length
	if end > len(dd.window) {
		end = len(dd.window)
	}

	dst, src := start, start-dist
	if src < 0 {
		dst = dd.copyWrapped(dst, src+len(dd.window), end)
		src = 0
	}
	for dst < end {
		dst += copy(dd.window[dst:end], dd.window[src:dst])
	}

	dd.writePos = dst
	n := dst - start
	dd.written += int64(n)
	return n
}

// copyWrapped handles the one case WriteCopy can see where the source
// offset fell below zero: the reference reaches back across the single
// wraparound point ReadFlush introduces when the window fills to
// capacity. It copies from the pre-wrap tail of window and returns the
// write cursor position to resume the forward copy from.
func (dd *dictDecoder) copyWrapped(dst, wrappedSrc, end int) int {
	return dst + copy(dd.window[dst:end], dd.window[wrappedSrc:])
}

// TryWriteCopy performs dist,length in one shot only if it fits entirely
// within the space already available before the next ReadFlush —
// avoiding WriteCopy's wraparound and clamping checks on the common case
// where a match doesn't straddle a flush boundary — returning 0 without
// writing anything if it doesn't fit.
func (dd *dictDecoder) TryWriteCopy(dist, length int) int {
	dst := dd.writePos
	end := dst + length
	if dst < dist || end > len(dd.window) {
		return 0
	}
	start, src := dst, dst-dist
	for dst < end {
		dst += copy(dd.window[dst:end], dd.window[src:dst])
	}
	dd.writePos = dst
	n := dst - start
	dd.written += int64(n)
	return n
}

// ReadFlush returns the bytes written but not yet handed to a caller, and
// advances the read cursor to match. Once the window has filled to
// capacity, both cursors wrap back to the start and wrapped latches so
// later distance checks see the entire window as valid history.
func (dd *dictDecoder) ReadFlush() []byte {
	toRead := dd.window[dd.readPos:dd.writePos]
	dd.readPos = dd.writePos
	if dd.writePos == len(dd.window) {
		dd.writePos, dd.readPos = 0, 0
		dd.wrapped = true
	}
	return toRead
}
