// Copyright (C) 2024 The fsc Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package fsc

import (
	"bytes"
	"errors"
	"testing"
)

func TestStreamDecoderDecompress(t *testing.T) {
	in := []byte("streamed payload, streamed payload, streamed payload again")
	enc, err := Encode(in, 9)
	if err != nil {
		t.Fatal(err)
	}
	sd, err := NewStreamDecoder(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !sd.IsOK() {
		t.Fatal("expected IsOK after parsing a valid header")
	}
	if sd.Size() != uint64(len(in)) {
		t.Fatalf("Size() = %d, want %d", sd.Size(), len(in))
	}
	out, err := sd.Decompress()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("decompressed mismatch: got %q, want %q", out, in)
	}
}

func TestStreamDecoderDecompressTo(t *testing.T) {
	in := []byte("a second message for the caller-buffer decode path")
	enc, err := Encode(in, 9)
	if err != nil {
		t.Fatal(err)
	}
	sd, err := NewStreamDecoder(enc)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, sd.Size())
	if err := sd.DecompressTo(dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, in) {
		t.Fatalf("decompressed mismatch: got %q, want %q", dst, in)
	}
}

func TestStreamDecoderDecompressToWrongSizeRejected(t *testing.T) {
	in := []byte("message requiring an exact-size destination buffer")
	enc, err := Encode(in, 9)
	if err != nil {
		t.Fatal(err)
	}
	sd, err := NewStreamDecoder(enc)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, sd.Size()-1)
	err = sd.DecompressTo(dst)
	if err == nil {
		t.Fatal("expected error for undersized destination buffer")
	}
	if !errors.Is(err, ErrOutputTooSmall) {
		t.Fatalf("got %v, want ErrOutputTooSmall", err)
	}
}

func TestStreamDecoderRejectsTruncatedHeader(t *testing.T) {
	in := bytes.Repeat([]byte("large alphabet header filler "), 50)
	enc, err := Encode(in, 11)
	if err != nil {
		t.Fatal(err)
	}
	// Truncating to just the first couple of bytes leaves no room for the
	// header's histogram, so either NewStreamDecoder or the subsequent
	// Decompress must fail — never silently succeed.
	truncated := enc[:2]
	sd, err := NewStreamDecoder(truncated)
	if err != nil {
		return
	}
	if sd.IsOK() {
		if _, decErr := sd.Decompress(); decErr == nil {
			t.Fatal("expected truncated header to be rejected")
		}
	}
}
