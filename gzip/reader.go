// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"bufio"
	"io"
	"time"

	"github.com/Dugy/EzGz/flate"
	"github.com/Dugy/EzGz/internal/xcrc32"
)

// Reader parses a single gzip member: a header, a DEFLATE body (decoded by
// flate.Reader), and a trailer. Multi-member concatenated streams are out
// of scope. When the underlying io.Reader implements io.ByteReader, a second
// member's bytes are left unread on it; otherwise NewReader reads through a
// bufio.Reader, which may buffer bytes past the end of the member.
type Reader[S ~string] struct {
	Header Header[S]

	src    io.Reader
	fr     *flate.Reader
	opts   Options
	verify bool
	err    error
}

// NewReader parses the gzip header from r and returns a Reader ready to
// decompress the body. The header is available immediately as gr.Header.
func NewReader[S ~string](r io.Reader, opts Options) (*Reader[S], error) {
	// flate.Reader buffers any source that is not an io.ByteReader, so the
	// header, body and trailer must all be read through the same buffer.
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	gr := &Reader[S]{src: r, opts: opts, verify: opts.VerifyChecksum}
	if err := gr.readHeader(); err != nil {
		return nil, err
	}
	bodyOpts := gr.opts
	bodyOpts.Checksum = flate.CRC32
	gr.fr = flate.NewReader(gr.src, bodyOpts)
	return gr, nil
}

func (gr *Reader[S]) Read(p []byte) (int, error) {
	if gr.err != nil {
		return 0, gr.err
	}
	n, err := gr.fr.Read(p)
	if err == io.EOF {
		if terr := gr.readTrailer(); terr != nil {
			gr.err = terr
			return n, terr
		}
		gr.err = io.EOF
	} else if err != nil {
		gr.err = err
	}
	return n, err
}

func (gr *Reader[S]) Close() error {
	return gr.fr.Close()
}

func (gr *Reader[S]) readU(n int) ([]byte, []byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(gr.src, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil, io.ErrUnexpectedEOF
		}
		return nil, nil, err
	}
	return buf, buf, nil
}

// readHeader parses the fixed and optional gzip header fields per RFC 1952
// section 2.3, accumulating every byte read so FHCRC can be checked
// against the header's own CRC-16.
func (gr *Reader[S]) readHeader() error {
	var hdrBytes []byte
	read := func(n int) ([]byte, error) {
		b, _, err := gr.readU(n)
		if err != nil {
			return nil, err
		}
		hdrBytes = append(hdrBytes, b...)
		return b, nil
	}

	magic, err := read(2)
	if err != nil {
		return err
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return ErrBadMagic
	}
	method, err := read(1)
	if err != nil {
		return err
	}
	if method[0] != 8 {
		return ErrBadMethod
	}
	flagsB, err := read(1)
	if err != nil {
		return err
	}
	flags := flagsB[0]

	mtimeB, err := read(4)
	if err != nil {
		return err
	}
	xflB, err := read(1)
	if err != nil {
		return err
	}
	osB, err := read(1)
	if err != nil {
		return err
	}

	gr.Header = Header[S]{
		ModTime: time.Unix(int64(u32le(mtimeB)), 0),
		OS:      OS(osB[0]),
		Hint:    CompressionHint(xflB[0]),
		Text:    flags&0x01 != 0,
	}

	if flags&0x04 != 0 { // FEXTRA
		lenB, err := read(2)
		if err != nil {
			return err
		}
		extra, err := read(int(u16le(lenB)))
		if err != nil {
			return err
		}
		gr.Header.Extra = extra
	}
	if flags&0x08 != 0 { // FNAME
		name, err := readCString(read)
		if err != nil {
			return err
		}
		gr.Header.Name = S(name)
	}
	if flags&0x10 != 0 { // FCOMMENT
		comment, err := readCString(read)
		if err != nil {
			return err
		}
		gr.Header.Comment = S(comment)
	}
	if flags&0x02 != 0 { // FHCRC
		want, err := read(2)
		if err != nil {
			return err
		}
		if gr.verify {
			got := uint16(xcrc32.Checksum(hdrBytes[:len(hdrBytes)-2]))
			if got != u16le(want) {
				return ErrHeaderCrcMismatch
			}
		}
	}
	return nil
}

func readCString(read func(int) ([]byte, error)) (string, error) {
	var sb []byte
	for {
		b, err := read(1)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			break
		}
		sb = append(sb, b[0])
	}
	return string(sb), nil
}

func (gr *Reader[S]) readTrailer() error {
	crcB, _, err := gr.readU(4)
	if err != nil {
		return err
	}
	sizeB, _, err := gr.readU(4)
	if err != nil {
		return err
	}
	if gr.verify {
		if u32le(crcB) != gr.fr.Checksum() {
			return ErrBodyCrcMismatch
		}
		if u32le(sizeB) != uint32(gr.fr.Size()) {
			return ErrSizeMismatch
		}
	}
	return nil
}
