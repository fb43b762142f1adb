// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

// tokenKind distinguishes the two token-stream variants the duplication
// finder hands to the block encoder: a literal byte or a back-reference
// match. The end-of-block marker isn't a token in its own right — it closes
// a section rather than describing a byte of it, so the block encoder emits
// it directly as a symbol once a section's token stream runs out.
//
// The original packs a match into four 16-bit words (length symbol, length
// extra bits, negated distance symbol, distance extra bits) to keep the
// stream itself compact; here the block encoder derives those fields on
// demand from the raw (length, distance) pair via lenSym/distSym, which is
// the more natural shape for a Go struct and costs nothing since the token
// stream never leaves the process.
type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokMatch
)

type token struct {
	kind   tokenKind
	lit    byte
	length uint32 // Valid when kind == tokMatch; in [minMatchLen, maxMatchLen].
	dist   uint32 // Valid when kind == tokMatch; in [1, outWinSize].
}

func literalToken(b byte) token { return token{kind: tokLiteral, lit: b} }
func matchToken(length, dist uint32) token {
	return token{kind: tokMatch, length: length, dist: dist}
}
