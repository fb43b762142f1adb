// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package flate implements the DEFLATE compressed data format, described in
// RFC 1951. It decodes and encodes the bit-level stream directly: Huffman
// tables, the sliding window, and the stored/fixed/dynamic block types are
// all handled without delegating to the standard library codec.
package flate

import (
	"runtime"
)

const (
	// outWinSize is the number of trailing bytes a back-reference may reach
	// into. RFC 1951 caps it at 32768.
	outWinSize = 1 << 15

	// outCapSize is the capacity of the sliding output buffer. It must be
	// large enough to hold a full window plus one maximal match
	// (32768 + 258) plus another full window of slack so that a consume
	// step never has to run mid-copy: 32768 + 258 + 32768.
	outCapSize = outWinSize + 258 + outWinSize

	endBlockSym = 256
)

// Error is the wrapper type for errors specific to this library.
type Error string

func (e Error) Error() string { return "flate: " + string(e) }

// Error values, named after the fault they report. See SPEC_FULL.md §7 for
// the full taxonomy these map onto.
var (
	ErrCorrupt      error = Error("stream is corrupted")
	ErrBadHuffman   error = Error("huffman code lengths are invalid")
	ErrBadCode      error = Error("decoded prefix has no matching code")
	ErrBadBlock     error = Error("reserved block type")
	ErrBadStored    error = Error("stored block length check failed")
	ErrBackRef      error = Error("back-reference distance exceeds retained window")
	ErrOverflow     error = Error("write would exceed output buffer capacity")
	ErrClosed       error = Error("codec instance is no longer usable")
)

// Checksum selects the integrity check computed over the uncompressed
// bytes: those a Reader emits, or those a Writer accepts.
type Checksum int

const (
	// NoChecksum disables checksum computation entirely.
	NoChecksum Checksum = iota
	// CRC32 computes the standard gzip/DEFLATE CRC-32 (polynomial 0xEDB88320).
	CRC32
)

// Options is the static configuration bundle shared by Reader and Writer.
// The zero value selects sensible defaults for every field.
//
// InputMaxSize sizes bitReader's internal bufio.Reader (the chunked-input
// buffer backing C2's Peek/Discard fast path); InputMinSize and
// InputLookAheadSize are accepted for parity with the distilled
// specification's option bundle but do not change buffer sizing, since
// bitReader's FeedBits already derives its own refill granularity from
// however much bufio has buffered. OutputMaxSize and OutputMinSize are
// likewise accepted but unused: dictDecoder's window is fixed at
// outCapSize (the spec-mandated minimum), since any larger size would
// only waste memory and any smaller size would violate the back-reference
// distance invariant. Unused fields are kept so a caller migrating
// configuration from the distilled specification's option bundle has a
// field to set without a compile error, and so withDefaults has a single
// place to enforce the spec's stated minimums if that changes.
type Options struct {
	InputMaxSize       int
	InputMinSize       int
	InputLookAheadSize int

	OutputMaxSize int
	OutputMinSize int

	// DedupMaxSize bounds the token-stream batch size passed from the
	// duplication finder to the block encoder before a block is flushed.
	// DedupMinSize is defaulted but otherwise unused: Close always flushes
	// every remaining token regardless of batch size.
	DedupMaxSize int
	DedupMinSize int

	// Checksum selects the checksum algorithm fed from the uncompressed stream.
	Checksum Checksum
	// VerifyChecksum, if set, compares a computed checksum against a
	// stored one and fails with a mismatch error instead of ignoring it.
	VerifyChecksum bool
}

// withDefaults returns a copy of o with zero fields replaced by defaults.
func (o Options) withDefaults() Options {
	if o.InputMaxSize <= 0 {
		o.InputMaxSize = 1 << 16
	}
	if o.InputMinSize <= 0 {
		o.InputMinSize = o.InputMaxSize / 2
	}
	if o.InputLookAheadSize < 4 {
		o.InputLookAheadSize = 8
	}
	if o.OutputMaxSize < outCapSize {
		o.OutputMaxSize = outCapSize
	}
	if o.OutputMinSize < outWinSize {
		o.OutputMinSize = outWinSize
	}
	if o.DedupMaxSize <= 0 {
		o.DedupMaxSize = 1 << 15
	}
	if o.DedupMinSize <= 0 {
		o.DedupMinSize = o.DedupMaxSize / 4
	}
	return o
}

func errRecover(err *error) {
	switch ex := recover().(type) {
	case nil:
		// Do nothing.
	case runtime.Error:
		panic(ex)
	case error:
		*err = ex
	default:
		panic(ex)
	}
}

var (
	reverseLUT [256]uint8
)

func init() {
	initLUTs()
}

func initLUTs() {
	initCommonLUTs()
	initPrefixLUTs()
}

func initCommonLUTs() {
	for i := range reverseLUT {
		b := uint8(i)
		b = (b&0xaa)>>1 | (b&0x55)<<1
		b = (b&0xcc)>>2 | (b&0x33)<<2
		b = (b&0xf0)>>4 | (b&0x0f)<<4
		reverseLUT[i] = b
	}
}

// reverseUint32 reverses all bits of v.
func reverseUint32(v uint32) (x uint32) {
	x |= uint32(reverseLUT[byte(v>>0)]) << 24
	x |= uint32(reverseLUT[byte(v>>8)]) << 16
	x |= uint32(reverseLUT[byte(v>>16)]) << 8
	x |= uint32(reverseLUT[byte(v>>24)]) << 0
	return x
}

// reverseBits reverses the lower n bits of v.
func reverseBits(v uint32, n uint) uint32 {
	return reverseUint32(v << (32 - n))
}

