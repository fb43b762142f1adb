// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import "testing"

func TestFindMatchFindsRepeat(t *testing.T) {
	var mf matchFinder
	mf.Reset()

	buf := []byte("the quick brown fox... the quick brown fox jumps")
	pos := 0
	for pos < len(buf) {
		avail := len(buf) - pos
		length, dist, ok := mf.FindMatch(buf, pos, avail)
		if !ok {
			pos++
			continue
		}
		if length < minMatchLen {
			t.Fatalf("pos %d: match shorter than minMatchLen: %d", pos, length)
		}
		if dist <= 0 || dist > pos {
			t.Fatalf("pos %d: invalid distance %d", pos, dist)
		}
		for i := 0; i < length; i++ {
			if buf[pos+i] != buf[pos-dist+i] {
				t.Fatalf("pos %d: match body disagrees with source at offset %d", pos, i)
			}
		}
		pos += length
	}
}

func TestFindMatchRejectsShortLookahead(t *testing.T) {
	var mf matchFinder
	mf.Reset()
	buf := []byte("ab")
	if _, _, ok := mf.FindMatch(buf, 0, len(buf)); ok {
		t.Fatalf("FindMatch should refuse a match shorter than minMatchLen")
	}
}
