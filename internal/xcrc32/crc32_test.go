// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package xcrc32

import "testing"

func TestChecksum(t *testing.T) {
	vectors := []struct {
		in   string
		want uint32
	}{
		{"Jeden ", 1956347882},
	}
	for _, v := range vectors {
		if got := Checksum([]byte(v.in)); got != v.want {
			t.Errorf("Checksum(%q) = %d, want %d", v.in, got, v.want)
		}
	}
}

func TestUpdateContinuation(t *testing.T) {
	crc := Checksum([]byte("Jeden "))
	crc = Update(crc, []byte("zemiak!"))
	const want = 916168997
	if crc != want {
		t.Errorf("Update continuation = %d, want %d", crc, want)
	}
}

func TestSplitMatchesWhole(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, twelve times over")
	whole := Checksum(data)

	for split := 0; split <= len(data); split++ {
		a, b := data[:split], data[split:]
		got := Combine(Checksum(a), Checksum(b), int64(len(b)))
		if got != whole {
			t.Errorf("split at %d: Combine(crc(a), crc(b)) = %d, want %d", split, got, whole)
		}
	}
}
