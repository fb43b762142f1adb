// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

const (
	minMatchLen = 3
	maxMatchLen = 258

	numHashTables = 6 // K in the duplication index; table k keys on k+3 bytes.
	hashTableBits = 15
	hashTableSize = 1 << hashTableBits
)

// matchFinder is the duplication finder (C9): K parallel hash tables, table
// k keyed by a hash of the first k+3 bytes at a position, each storing only
// the single most recent occurrence of that key. It is deliberately
// lazy-match-free: it never compares "emit a literal now" against "wait one
// byte for a longer match," trading a little compression ratio for a much
// simpler, branch-light search.
type matchFinder struct {
	tables [numHashTables][hashTableSize]int32 // 1-based local position; 0 means empty.
}

func (mf *matchFinder) Reset() {
	for k := range mf.tables {
		for i := range mf.tables[k] {
			mf.tables[k][i] = 0
		}
	}
}

// Slide shifts every stored position back by delta, one-based positions
// that underflow below 1 become stale (cleared). Called whenever the
// caller's input window has moved forward by delta bytes since the last
// search, so that stored offsets stay relative to the current buffer.
func (mf *matchFinder) Slide(delta int) {
	if delta <= 0 {
		return
	}
	for k := range mf.tables {
		t := &mf.tables[k]
		for i, p := range t {
			if p == 0 {
				continue
			}
			np := p - int32(delta)
			if np <= 0 {
				t[i] = 0
			} else {
				t[i] = np
			}
		}
	}
}

// hashPrefix hashes the first n bytes of b (n in [3,8]) with a simple
// multiplicative rolling hash (FNV-1a), which is plenty for spreading
// short byte strings across a 15-bit table.
func hashPrefix(b []byte, n int) uint32 {
	h := uint32(2166136261)
	for i := 0; i < n; i++ {
		h = (h ^ uint32(b[i])) * 16777619
	}
	return h
}

// FindMatch searches for a back-reference to buf[pos:pos+avail] among
// previously indexed positions in the same buf, then updates every hash
// table entry that did not already hold a match so that future probes keep
// improving. avail is the number of valid forward bytes at pos (the
// lookahead); it must be at least 8 for every table to participate, but
// degrades gracefully near the end of the buffer.
func (mf *matchFinder) FindMatch(buf []byte, pos, avail int) (length, dist int, ok bool) {
	if avail < minMatchLen {
		return 0, 0, false
	}
	limit := avail
	if limit > maxMatchLen {
		limit = maxMatchLen
	}

	var matched [numHashTables]bool
	var hashes [numHashTables]uint32
	bestLen, bestDist := 0, 0

	for k := numHashTables - 1; k >= 0; k-- {
		n := k + 3
		if avail < n {
			continue
		}
		h := hashPrefix(buf[pos:], n) & (hashTableSize - 1)
		hashes[k] = h
		p := mf.tables[k][h]
		if p == 0 {
			continue
		}
		matchPos := int(p) - 1
		if matchPos >= pos {
			continue
		}
		l := matchLen(buf, matchPos, pos, limit)
		if l < minMatchLen {
			continue
		}
		matched[k] = true
		if l > bestLen {
			bestLen = l
			bestDist = pos - matchPos
		}
	}

	for k := numHashTables - 1; k >= 0; k-- {
		n := k + 3
		if avail < n || matched[k] {
			continue
		}
		mf.tables[k][hashes[k]] = int32(pos) + 1
	}

	if bestLen >= minMatchLen {
		return bestLen, bestDist, true
	}
	return 0, 0, false
}

func matchLen(buf []byte, a, b, limit int) int {
	n := 0
	for n < limit && buf[a+n] == buf[b+n] {
		n++
	}
	return n
}
