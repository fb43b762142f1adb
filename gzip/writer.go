// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"io"
	"time"

	"github.com/Dugy/EzGz/flate"
	"github.com/Dugy/EzGz/internal/xcrc32"
)

// Writer emits a single gzip member: a header built from the Header value
// passed to NewWriter, a DEFLATE body (encoded by flate.Writer), and a
// trailer written on Close.
type Writer[S ~string] struct {
	dst io.Writer
	fw  *flate.Writer
	err error
}

// NewWriter writes the gzip header for hdr immediately and returns a
// Writer ready to accept the uncompressed body via Write.
func NewWriter[S ~string](w io.Writer, hdr Header[S], opts Options) (*Writer[S], error) {
	gw := &Writer[S]{dst: w}
	if err := gw.writeHeader(hdr); err != nil {
		return nil, err
	}
	bodyOpts := opts
	bodyOpts.Checksum = flate.CRC32
	gw.fw = flate.NewWriter(w, bodyOpts)
	return gw, nil
}

// writeHeader emits the fixed and optional gzip header fields per RFC 1952
// section 2.3. FHCRC is always emitted, independent of opts.VerifyChecksum,
// which only governs whether a reader checks it.
func (gw *Writer[S]) writeHeader(hdr Header[S]) error {
	var buf []byte
	buf = append(buf, 0x1f, 0x8b, 8)

	var flags byte
	if hdr.Text {
		flags |= 0x01
	}
	flags |= 0x02 // FHCRC
	if len(hdr.Extra) > 0 {
		flags |= 0x04
	}
	if len(hdr.Name) > 0 {
		flags |= 0x08
	}
	if len(hdr.Comment) > 0 {
		flags |= 0x10
	}
	buf = append(buf, flags)

	mtime := hdr.ModTime
	if mtime.IsZero() {
		mtime = time.Now()
	}
	buf = appendU32LE(buf, uint32(mtime.Unix()))
	buf = append(buf, byte(hdr.Hint), byte(hdr.OS))

	if len(hdr.Extra) > 0 {
		buf = appendU16LE(buf, uint16(len(hdr.Extra)))
		buf = append(buf, hdr.Extra...)
	}
	if len(hdr.Name) > 0 {
		buf = append(buf, []byte(string(hdr.Name))...)
		buf = append(buf, 0)
	}
	if len(hdr.Comment) > 0 {
		buf = append(buf, []byte(string(hdr.Comment))...)
		buf = append(buf, 0)
	}
	buf = appendU16LE(buf, uint16(xcrc32.Checksum(buf)))

	_, err := gw.dst.Write(buf)
	return err
}

func (gw *Writer[S]) Write(p []byte) (int, error) {
	if gw.err != nil {
		return 0, gw.err
	}
	n, err := gw.fw.Write(p)
	if err != nil {
		gw.err = err
	}
	return n, err
}

// Close finishes the DEFLATE body and writes the CRC-32/ISIZE trailer. It
// does not close the underlying io.Writer.
func (gw *Writer[S]) Close() error {
	if gw.err != nil {
		return gw.err
	}
	if err := gw.fw.Close(); err != nil {
		gw.err = err
		return err
	}
	var trailer []byte
	trailer = appendU32LE(trailer, gw.fw.Checksum())
	trailer = appendU32LE(trailer, uint32(gw.fw.Size()))
	if _, err := gw.dst.Write(trailer); err != nil {
		gw.err = err
		return err
	}
	return nil
}
