// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	// Used only as an independent reference decoder in
	// TestRoundTripIndependentDecoder, never by the package itself.
	stdflate "compress/flate"

	"github.com/google/go-cmp/cmp"
)

func stdflateNewReader(compressed []byte) io.ReadCloser {
	return stdflate.NewReader(bytes.NewReader(compressed))
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(stripSpace(s))
	if err != nil {
		t.Fatalf("bad hex literal %q: %v", s, err)
	}
	return b
}

func stripSpace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func decodeAll(t *testing.T, raw []byte) []byte {
	t.Helper()
	fr := NewReader(bytes.NewReader(raw), Options{})
	out, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return out
}

// Seed scenarios 1-3 from the specification's literal test vectors: one
// block of each BTYPE, each decoded directly by our Reader.
func TestSeedScenarios(t *testing.T) {
	vectors := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "stored",
			in:   "01 12 00 ED FF C4 8D C3 B3 C5 A1 C3 A9 C5 88 C3 A1 C4 8F C3 B4 C5 BE",
			want: "čóšéňáďôž",
		},
		{
			name: "fixed",
			in:   "CB 48 CD C9 C9 57 C8 40 27 B9 00",
			want: "hello hello hello hello\n",
		},
		{
			name: "dynamic",
			in:   "1D C6 49 01 00 00 10 40 C0 AC A3 7F 88 3D 3C 20 2A 97 9D 37 5E 1D 0C",
			want: "abaabbbabaababbaababaaaabaaabbbbbaa",
		},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			got := decodeAll(t, mustHex(t, v.in))
			if string(got) != v.want {
				t.Errorf("decoded %q, want %q", got, v.want)
			}
		})
	}
}

// TestRoundTrip compresses each vector with our own Writer and decompresses
// it with our own Reader, checking both the recovered bytes and the running
// checksum/size counters each side maintains independently.
func TestRoundTrip(t *testing.T) {
	vectors := [][]byte{
		nil,
		[]byte("a"),
		[]byte("hello hello hello hello\n"),
		[]byte("abaabbbabaababbaababaaaabaaabbbbbaa"),
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 500),
		bytes.Repeat([]byte{0}, 1<<17),
	}

	for i, in := range vectors {
		var buf bytes.Buffer
		fw := NewWriter(&buf, Options{Checksum: CRC32})
		if _, err := fw.Write(in); err != nil {
			t.Fatalf("vector %d: Write: %v", i, err)
		}
		if err := fw.Close(); err != nil {
			t.Fatalf("vector %d: Close: %v", i, err)
		}

		fr := NewReader(bytes.NewReader(buf.Bytes()), Options{Checksum: CRC32})
		out, err := io.ReadAll(fr)
		if err != nil {
			t.Fatalf("vector %d: Read: %v", i, err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("vector %d: round trip mismatch (-want +got):\n%s", i, diff)
		}
		if fw.Checksum() != fr.Checksum() {
			t.Errorf("vector %d: writer csum %d != reader csum %d", i, fw.Checksum(), fr.Checksum())
		}
		if fw.Size() != fr.Size() {
			t.Errorf("vector %d: writer size %d != reader size %d", i, fw.Size(), fr.Size())
		}
	}
}

// TestWriteSpanningMultipleWindowsRoundTrips drives a single Write call
// across several multiples of outWinSize worth of input in one call,
// rather than one Write per window's worth. A Writer that only slides its
// retained window once per Write (instead of as pos advances within the
// call) can tokenize a match whose distance exceeds outWinSize before ever
// getting a chance to trim, which corrupts the bitstream without a caller
// ever seeing an error.
func TestWriteSpanningMultipleWindowsRoundTrips(t *testing.T) {
	in := bytes.Repeat([]byte("0123456789abcdef"), (3*outWinSize)/16)

	var buf bytes.Buffer
	fw := NewWriter(&buf, Options{Checksum: CRC32})
	if _, err := fw.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fr := NewReader(bytes.NewReader(buf.Bytes()), Options{Checksum: CRC32})
	out, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch spanning multiple windows (-want +got):\n%s", diff)
	}
	if fw.Checksum() != fr.Checksum() {
		t.Errorf("writer csum %d != reader csum %d", fw.Checksum(), fr.Checksum())
	}
}

// Seed scenario 6: the specification requires that compressed output also
// decode under an independent reference decoder, so this cross-checks our
// Writer's bitstream against the standard library's DEFLATE decoder.
func TestRoundTripIndependentDecoder(t *testing.T) {
	in := []byte("BAACCEACAAAEBAACEABAEDEACEAACAAECCAADAEAACAEADAA")

	var buf bytes.Buffer
	fw := NewWriter(&buf, Options{})
	if _, err := fw.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fr := NewReader(bytes.NewReader(buf.Bytes()), Options{})
	out, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("our Read: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("our round trip = %q, want %q", out, in)
	}

	rc := stdflateNewReader(buf.Bytes())
	out2, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("independent decoder Read: %v", err)
	}
	if !bytes.Equal(out2, in) {
		t.Fatalf("independent decoder decoded %q, want %q", out2, in)
	}
}

// TestPausability exercises invariant 4: decoding in small Read chunks must
// yield the same bytes as decoding in one large Read.
func TestPausability(t *testing.T) {
	in := bytes.Repeat([]byte("pausable output stream "), 4000)

	var buf bytes.Buffer
	fw := NewWriter(&buf, Options{})
	if _, err := fw.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	compressed := buf.Bytes()

	full := decodeAll(t, append([]byte{}, compressed...))

	fr := NewReader(bytes.NewReader(compressed), Options{})
	var chunked bytes.Buffer
	small := make([]byte, 17)
	for {
		n, err := fr.Read(small)
		chunked.Write(small[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("chunked Read: %v", err)
		}
	}
	if !bytes.Equal(full, chunked.Bytes()) {
		t.Fatalf("chunked decode diverged from single-shot decode")
	}
	if !bytes.Equal(full, in) {
		t.Fatalf("decoded output does not match input")
	}
}
