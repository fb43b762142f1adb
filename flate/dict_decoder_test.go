// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import "testing"

// TestSelfOverlappingCopy exercises invariant 5: for every distance in
// [1, length], a back-reference copy must produce the periodic tiling of
// the last distance bytes, not a plain non-overlapping memory move.
func TestSelfOverlappingCopy(t *testing.T) {
	var dd dictDecoder
	for _, seed := range [][]byte{
		[]byte("x"),
		[]byte("ab"),
		[]byte("abcdefgh"),
	} {
		for dist := 1; dist <= len(seed); dist++ {
			for _, length := range []int{1, 2, 3, 7, 20, 200} {
				dd.Init(outCapSize)
				for _, c := range seed {
					dd.PutByte(c)
				}

				written := dd.WriteCopy(dist, length)
				if written != length {
					t.Fatalf("seed %q dist %d length %d: WriteCopy returned %d, want %d", seed, dist, length, written, length)
				}

				got := dd.window[len(seed) : len(seed)+length]
				want := make([]byte, length)
				src := seed[len(seed)-dist:]
				for i := range want {
					want[i] = src[i%dist]
				}
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("seed %q dist %d length %d: byte %d = %d, want %d", seed, dist, length, i, got[i], want[i])
					}
				}
			}
		}
	}
}

func TestWriteCopyRejectsOversizedDistance(t *testing.T) {
	var dd dictDecoder
	dd.Init(outCapSize)
	dd.PutByte('a')

	defer func() {
		r := recover()
		if r != ErrBackRef {
			t.Fatalf("recovered %v, want %v", r, ErrBackRef)
		}
	}()
	dd.WriteCopy(2, 1)
}
