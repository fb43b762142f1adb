// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import "io"

type byteWriter interface {
	io.Writer
	io.ByteWriter
}

// bitWriter is the write-side mirror of bitReader: bits accumulate LSB-first
// in a 64-bit buffer, and once more than 48 bits are pending every whole
// byte is flushed to the underlying writer.
type bitWriter struct {
	wr      io.Writer
	bufBits uint64 // Buffer holding bits not yet flushed
	numBits uint   // Number of valid bits in bufBits
	offset  int64  // Number of bytes written to the underlying io.Writer
	scratch [8]byte
}

func (bw *bitWriter) Init(w io.Writer) {
	*bw = bitWriter{wr: w}
}

// WriteBits appends the low nb bits of val, LSB order, to the stream.
func (bw *bitWriter) WriteBits(val uint32, nb uint) {
	bw.bufBits |= uint64(val) << bw.numBits
	bw.numBits += nb
	if bw.numBits > 48 {
		bw.flushBits()
	}
}

// WriteExtra writes the nb-bit extra-bits field that follows a
// length/distance symbol (RFC 1951 section 3.2.5), writing nothing when nb
// is zero.
func (bw *bitWriter) WriteExtra(val uint32, nb uint32) {
	if nb > 0 {
		bw.WriteBits(val, uint(nb))
	}
}

// flushBits drains whole bytes out of the bit buffer to the underlying
// writer, keeping any partial trailing byte buffered.
func (bw *bitWriter) flushBits() {
	n := 0
	for bw.numBits >= 8 {
		bw.scratch[n] = byte(bw.bufBits)
		bw.bufBits >>= 8
		bw.numBits -= 8
		n++
		if n == len(bw.scratch) {
			break
		}
	}
	if n > 0 {
		if _, err := bw.wr.Write(bw.scratch[:n]); err != nil {
			panic(err)
		}
		bw.offset += int64(n)
	}
	if bw.numBits >= 8 {
		bw.flushBits() // More than a scratch buffer's worth was queued.
	}
}

// WritePads writes the low bits of val as the 0-7 padding bits needed to
// reach byte alignment.
func (bw *bitWriter) WritePads(val uint32) {
	nb := (8 - bw.numBits%8) % 8
	if nb > 0 {
		bw.WriteBits(val&(1<<nb-1), nb)
	}
}

// WriteRaw writes buf directly to the underlying writer. The bit buffer
// must be byte-aligned; callers use this only between blocks, never mid
// codeword.
func (bw *bitWriter) WriteRaw(buf []byte) {
	if bw.numBits%8 != 0 {
		panic(Error("non-aligned bit buffer"))
	}
	for bw.numBits > 0 {
		bw.scratch[0] = byte(bw.bufBits)
		if _, err := bw.wr.Write(bw.scratch[:1]); err != nil {
			panic(err)
		}
		bw.bufBits >>= 8
		bw.numBits -= 8
		bw.offset++
	}
	n, err := bw.wr.Write(buf)
	bw.offset += int64(n)
	if err != nil {
		panic(err)
	}
}

// Flush pushes every remaining buffered bit out, zero-padding the final
// byte, and reports the total byte offset written so far.
func (bw *bitWriter) Flush() int64 {
	bw.WritePads(0)
	bw.flushBits()
	return bw.offset
}
