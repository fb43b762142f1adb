// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package gzip implements the gzip file format described in RFC 1952: a
// header carrying optional metadata, a DEFLATE-compressed body, and a
// trailer carrying a CRC-32 and the uncompressed size. The body codec
// itself lives in the sibling flate package; this package only handles
// framing.
package gzip

import (
	"time"

	"github.com/Dugy/EzGz/flate"
)

// Options configures both the gzip framing and the underlying DEFLATE
// codec; it is the same bundle flate.Reader/Writer accept, reused here so
// callers tune buffer sizes in one place.
type Options = flate.Options

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "gzip: " + string(e) }

var (
	ErrBadMagic           error = Error("not a gzip stream")
	ErrBadMethod          error = Error("unsupported compression method")
	ErrHeaderCrcMismatch  error = Error("header CRC-16 does not match")
	ErrBodyCrcMismatch    error = Error("body CRC-32 does not match")
	ErrSizeMismatch       error = Error("uncompressed size does not match")
)

// OS identifies the filesystem/OS a gzip member claims to have been
// created on; it is the raw RFC 1952 OS byte, so unrecognized values round
// trip unchanged instead of collapsing to OSOther.
type OS byte

const (
	OSWindows OS = 0
	OSUnix    OS = 3
	OSOther   OS = 255
)

// CompressionHint mirrors the XFL byte: a hint about the effort the writer
// spent, not a guarantee about the body's actual contents.
type CompressionHint byte

const (
	HintNone    CompressionHint = 0
	HintDensest CompressionHint = 4
	HintFastest CompressionHint = 8
)

// Header carries every piece of gzip member metadata besides the
// compressed body itself. S is the string type used for Name and Comment,
// letting callers opt into, say, a validated or interned string type
// instead of plain string.
type Header[S ~string] struct {
	ModTime time.Time
	OS      OS
	Hint    CompressionHint
	Text    bool
	Name    S
	Comment S
	Extra   []byte
}

func appendU16LE(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

func appendU32LE(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func u16le(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func u32le(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
