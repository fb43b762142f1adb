// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"io"
	"testing"
)

// TestDistSymRejectsOutOfRangeDistance checks that distSym refuses a
// distance past outWinSize instead of silently returning an extra-bits
// value too large for the symbol's field width.
func TestDistSymRejectsOutOfRangeDistance(t *testing.T) {
	if _, _, _, err := func() (sym, extra, extraBits uint32, err error) {
		defer errRecover(&err)
		sym, extra, extraBits = distSym(outWinSize)
		return
	}(); err != nil {
		t.Fatalf("distSym(outWinSize): %v", err)
	}

	_, _, _, err := func() (sym, extra, extraBits uint32, err error) {
		defer errRecover(&err)
		sym, extra, extraBits = distSym(outWinSize + 1)
		return
	}()
	if err != ErrBackRef {
		t.Fatalf("distSym(outWinSize+1) err = %v, want %v", err, ErrBackRef)
	}
}

// TestPrefixCanonicity exercises invariant 3: for a fixed length vector, the
// code prefixEncoder assigns to each symbol must be decodable by a
// prefixDecoder built the same way, and every symbol must round-trip.
func TestPrefixCanonicity(t *testing.T) {
	lens := []uint32{3, 3, 3, 3, 3, 2, 4, 4}

	var enc prefixEncoder
	enc.Init(codesFromLengths(lens))

	var dec prefixDecoder
	dec.Init(codesFromLengths(lens), true)

	for sym, l := range lens {
		if got := enc.BitLength(uint32(sym)); got != l {
			t.Errorf("sym %d: BitLength = %d, want %d", sym, got, l)
		}

		var bw bitWriter
		var buf fakeByteBuf
		bw.Init(&buf)
		enc.WriteSymbol(&bw, uint32(sym))
		bw.Flush()

		var br bitReader
		br.Init(&buf, 0)
		got := br.ReadSymbol(&dec)
		if got != uint(sym) {
			t.Errorf("sym %d: round trip through canonical code got %d", sym, got)
		}
	}
}

// TestBuildLengthsSatisfiesKraft checks that buildLengths produces a length
// vector whose Kraft sum exactly fills capacity whenever two or more symbols
// are used, which is what lets the repair loop feed a valid canonical tree
// to prefixEncoder/prefixDecoder. A lone used symbol must get length 1, the
// degenerate single-code tree, whose Kraft sum is half the capacity.
func TestBuildLengthsSatisfiesKraft(t *testing.T) {
	vectors := [][]uint32{
		{5},
		{1, 1},
		{10, 1, 1, 1, 1},
		{100, 50, 25, 25, 12, 12, 6, 6, 6, 6, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 1, 1, 1, 1},
	}
	for _, freqs := range vectors {
		lens := buildLengths(freqs, maxPrefixBits)
		var sum uint64
		var used int
		full := uint64(1) << maxPrefixBits
		for i, f := range freqs {
			if f == 0 {
				continue
			}
			if lens[i] == 0 {
				t.Fatalf("freqs %v: used symbol %d got length 0", freqs, i)
			}
			used++
			sum += full >> lens[i]
		}
		want := full
		if used == 1 {
			want = full >> 1
		}
		if sum != want {
			t.Errorf("freqs %v: Kraft sum = %d, want %d", freqs, sum, want)
		}
	}
}

// fakeByteBuf is a minimal io.Writer/io.Reader/io.ByteReader over an
// in-memory slice, used to round-trip single codewords without pulling in
// bytes.Buffer's allocation behavior into the assertions above.
type fakeByteBuf struct {
	data []byte
	pos  int
}

func (b *fakeByteBuf) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *fakeByteBuf) Read(p []byte) (int, error) {
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

func (b *fakeByteBuf) ReadByte() (byte, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	c := b.data[b.pos]
	b.pos++
	return c, nil
}
