// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package xcrc32 implements the CRC-32 variant used by gzip and DEFLATE
// (the reflected IEEE polynomial), with both a scalar byte-at-a-time path
// and a slicing-by-16 fast path.
package xcrc32

import "github.com/dsnet/golib/hashmerge"

// IEEE is the reflected polynomial used by gzip, zip, and PNG.
const IEEE = 0xedb88320

const sliceWidth = 16

var (
	scalarTable [256]uint32
	sliceTables [sliceWidth][256]uint32
)

func init() {
	for i := range scalarTable {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = IEEE ^ (crc >> 1)
			} else {
				crc >>= 1
			}
		}
		scalarTable[i] = crc
	}

	// The remaining 15 tables extend the first: slicing-by-16 maps a
	// 16-byte chunk to 16 independent single-byte lookups whose results
	// are XORed together, one table per input byte position.
	sliceTables[0] = scalarTable
	for i := range scalarTable {
		crc := scalarTable[i]
		for k := 1; k < sliceWidth; k++ {
			crc = scalarTable[byte(crc)] ^ (crc >> 8)
			sliceTables[k][i] = crc
		}
	}
}

// Update feeds p through the running checksum crc and returns the result.
// The zero value of crc is the correct starting state for a fresh stream
// (the all-ones initial state and final complement are handled internally).
func Update(crc uint32, p []byte) uint32 {
	crc = ^crc
	crc = updateSlicing(crc, p)
	return ^crc
}

// updateSlicing advances the raw (non-complemented) state across p, using
// the 16-byte slicing fast path for as much of p as divides evenly and the
// scalar path for the remainder.
func updateSlicing(crc uint32, p []byte) uint32 {
	for len(p) >= sliceWidth {
		var buf [sliceWidth]byte
		copy(buf[:], p[:sliceWidth])
		buf[0] ^= byte(crc)
		buf[1] ^= byte(crc >> 8)
		buf[2] ^= byte(crc >> 16)
		buf[3] ^= byte(crc >> 24)

		crc = 0
		for k := 0; k < sliceWidth; k++ {
			crc ^= sliceTables[sliceWidth-1-k][buf[k]]
		}
		p = p[sliceWidth:]
	}
	for _, b := range p {
		crc = scalarTable[byte(crc)^b] ^ (crc >> 8)
	}
	return crc
}

// Checksum returns the CRC-32 of p alone, equivalent to Update(0, p).
func Checksum(p []byte) uint32 {
	return Update(0, p)
}

// Combine folds the checksum of a second region, crc2, computed over len2
// bytes, onto the checksum of a first region, crc1, producing the checksum
// of the concatenation without re-reading either region. This is what lets
// a chunked input or output buffer feed its checksum incrementally and
// still match the checksum of a whole-buffer computation.
func Combine(crc1, crc2 uint32, len2 int64) uint32 {
	return hashmerge.CombineCRC32(IEEE, crc1, crc2, len2)
}
