// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"bytes"
	"encoding/hex"
	"io"
	"strings"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex literal: %v", err)
	}
	return b
}

// Seed scenario 4: a literal 53-byte gzip member whose header names a
// filename and whose body is the fixed-Huffman block from seed scenario 2.
func TestSeedScenarioMember(t *testing.T) {
	raw := mustHex(t, "1F 8B 08 08 82 52 C7 62 00 03 "+
		"68 65 6C 6C 6F 20 68 65 6C 6C 6F 20 68 65 6C 6C 6F 20 68 65 6C 6C 6F 00 "+
		"CB 48 CD C9 C9 57 C8 40 27 B9 00 "+
		"00 88 59 0B 18 00 00 00")
	if len(raw) != 53 {
		t.Fatalf("test vector is %d bytes, want 53", len(raw))
	}

	gr, err := NewReader[string](bytes.NewReader(raw), Options{VerifyChecksum: true})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if gr.Header.Name != "hello hello hello hello" {
		t.Errorf("Name = %q, want %q", gr.Header.Name, "hello hello hello hello")
	}
	if gr.Header.OS != OSUnix {
		t.Errorf("OS = %v, want %v", gr.Header.OS, OSUnix)
	}
	if gr.Header.Hint == HintFastest || gr.Header.Hint == HintDensest {
		t.Errorf("Hint = %v, want neither fastest nor densest", gr.Header.Hint)
	}

	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(body) != "hello hello hello hello\n" {
		t.Errorf("body = %q, want %q", body, "hello hello hello hello\n")
	}
}

// TestRoundTrip writes a member with metadata, reads it back, and checks
// both the header fields and the body survive along with the trailer's
// CRC/size check.
func TestRoundTrip(t *testing.T) {
	hdr := Header[string]{
		OS:      OSUnix,
		Hint:    HintDensest,
		Name:    "greeting.txt",
		Comment: "generated for a test",
	}
	body := []byte("hello from the round trip test\n")

	var buf bytes.Buffer
	gw, err := NewWriter[string](&buf, hdr, Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := gw.Write(body); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	gr, err := NewReader[string](bytes.NewReader(buf.Bytes()), Options{VerifyChecksum: true})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if gr.Header.Name != hdr.Name {
		t.Errorf("Name = %q, want %q", gr.Header.Name, hdr.Name)
	}
	if gr.Header.Comment != hdr.Comment {
		t.Errorf("Comment = %q, want %q", gr.Header.Comment, hdr.Comment)
	}
	if gr.Header.OS != hdr.OS {
		t.Errorf("OS = %v, want %v", gr.Header.OS, hdr.OS)
	}

	got, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body = %q, want %q", got, body)
	}
}

func TestBadMagicRejected(t *testing.T) {
	_, err := NewReader[string](bytes.NewReader([]byte{0, 0, 0, 0}), Options{})
	if err != ErrBadMagic {
		t.Fatalf("err = %v, want %v", err, ErrBadMagic)
	}
}

func TestHeaderCrcMismatchDetected(t *testing.T) {
	var buf bytes.Buffer
	gw, err := NewWriter[string](&buf, Header[string]{Name: "x"}, Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	gw.Write([]byte("data"))
	gw.Close()

	// Header layout: magic(2) method(1) flags(1) mtime(4) xfl(1) os(1)
	// name("x\x00", 2 bytes) FHCRC(2 bytes) — flip the first FHCRC byte.
	corrupted := append([]byte{}, buf.Bytes()...)
	corrupted[12] ^= 0xff
	if _, err := NewReader[string](bytes.NewReader(corrupted), Options{VerifyChecksum: true}); err != ErrHeaderCrcMismatch {
		t.Fatalf("err = %v, want %v", err, ErrHeaderCrcMismatch)
	}
}

// TestBodyCrcMismatchDetected confirms that a wrong trailer CRC surfaces as
// ErrBodyCrcMismatch when VerifyChecksum is set, never silently ignored.
func TestBodyCrcMismatchDetected(t *testing.T) {
	var buf bytes.Buffer
	gw, err := NewWriter[string](&buf, Header[string]{}, Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	gw.Write([]byte("data"))
	gw.Close()

	corrupted := append([]byte{}, buf.Bytes()...)
	corrupted[len(corrupted)-8] ^= 0xff // flip a byte inside the trailer CRC-32 field

	gr, err := NewReader[string](bytes.NewReader(corrupted), Options{VerifyChecksum: true})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = io.ReadAll(gr)
	if err != ErrBodyCrcMismatch {
		t.Fatalf("err = %v, want %v", err, ErrBodyCrcMismatch)
	}
}

