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
	"math/rand"
	"reflect"
	"testing"
)

func roundtripHeader(t *testing.T, counts []uint32, maxSymbol, logTabSize int) []uint32 {
	t.Helper()
	bw := newBitWriter(256)
	if err := writeHeader(bw, counts, maxSymbol, logTabSize, DefaultSpreadPolicy); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	bw.flush()
	buf, err := bw.finish()
	if err != nil {
		t.Fatal(err)
	}
	br := newBitReader(buf)
	got, gotMaxSymbol, err := readHeader(br, logTabSize, DefaultSpreadPolicy)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if gotMaxSymbol != maxSymbol {
		t.Fatalf("maxSymbol = %d, want %d", gotMaxSymbol, maxSymbol)
	}
	return got
}

func TestHeaderSmallAlphabetRoundtrip(t *testing.T) {
	logTabSize := 8
	var counts [MaxSymbols]uint32
	for i := 0; i < 6; i++ {
		counts[i] = uint32(10*(i+1) + 1)
	}
	maxSymbol, err := normalizeCounts(counts[:], 6, logTabSize)
	if err != nil {
		t.Fatal(err)
	}
	got := roundtripHeader(t, counts[:maxSymbol], maxSymbol, logTabSize)
	if !reflect.DeepEqual(got, counts[:maxSymbol]) {
		t.Fatalf("got %v, want %v", got, counts[:maxSymbol])
	}
}

func TestHeaderSmallAlphabetSparseRoundtrip(t *testing.T) {
	// A couple of zero gaps between present symbols exercises the sparse
	// presence-bit path of writeSequence/readSequence.
	logTabSize := 7
	counts := make([]uint32, 10)
	counts[0] = 40
	counts[3] = 30
	counts[9] = (uint32(1) << uint(logTabSize)) - counts[0] - counts[3]
	got := roundtripHeader(t, counts, len(counts), logTabSize)
	if !reflect.DeepEqual(got, counts) {
		t.Fatalf("got %v, want %v", got, counts)
	}
}

func TestHeaderLargeAlphabetRoundtrip(t *testing.T) {
	logTabSize := 10
	r := rand.New(rand.NewSource(3))
	const maxSymbol = 40 // >= HdrSymbolLimit, exercises the large-alphabet scheme
	var counts [MaxSymbols]uint32
	for i := 0; i < maxSymbol; i++ {
		counts[i] = uint32(1 + r.Intn(200))
	}
	gotMaxSymbol, err := normalizeCounts(counts[:], maxSymbol, logTabSize)
	if err != nil {
		t.Fatal(err)
	}
	got := roundtripHeader(t, counts[:gotMaxSymbol], gotMaxSymbol, logTabSize)
	if !reflect.DeepEqual(got, counts[:gotMaxSymbol]) {
		t.Fatalf("got %v, want %v", got, counts[:gotMaxSymbol])
	}
}

func TestHeaderLargeAlphabetSingleSymbolEscape(t *testing.T) {
	logTabSize := 9
	const maxSymbol = HdrSymbolLimit + 5
	counts := make([]uint32, maxSymbol)
	counts[maxSymbol-1] = 1 << uint(logTabSize)

	got := roundtripHeader(t, counts, maxSymbol, logTabSize)
	if !reflect.DeepEqual(got, counts) {
		t.Fatalf("got %v, want %v", got, counts)
	}
}

func TestHeaderLargeAlphabetWideBinSpread(t *testing.T) {
	// Force bin values across a wide range (1..8, plus a run of absent
	// symbols at bin 0 and a large remainder at the end) so the sub-histogram
	// carries several distinct bins instead of clustering on one or two.
	logTabSize := 12
	tabSize := uint32(1) << uint(logTabSize)
	const spreadBins = 8
	const padding = HdrSymbolLimit // absent symbols, all landing on bin 0

	counts := make([]uint32, 0, spreadBins+padding+1)
	var used uint32
	for b := 1; b <= spreadBins; b++ {
		c := (uint32(1) << uint(b)) - 1
		counts = append(counts, c)
		used += c
	}
	for i := 0; i < padding; i++ {
		counts = append(counts, 0)
	}
	if used >= tabSize {
		t.Fatalf("test setup error: used %d >= tabSize %d", used, tabSize)
	}
	counts = append(counts, tabSize-used)
	maxSymbol := len(counts)
	if maxSymbol < HdrSymbolLimit {
		t.Fatalf("test setup error: maxSymbol %d < HdrSymbolLimit", maxSymbol)
	}

	got := roundtripHeader(t, counts, maxSymbol, logTabSize)
	if !reflect.DeepEqual(got, counts) {
		t.Fatalf("got %v, want %v", got, counts)
	}
}

func FuzzHeaderRoundtrip(f *testing.F) {
	f.Add(6, 8, int64(1))
	f.Add(40, 10, int64(3))
	f.Fuzz(func(t *testing.T, nbSymbols, logTabSize int, seed int64) {
		if nbSymbols < 1 || nbSymbols > MaxSymbols {
			return
		}
		if logTabSize < 4 || logTabSize > LogTabSize {
			return
		}
		tabSize := 1 << logTabSize
		if nbSymbols > tabSize {
			return
		}
		r := rand.New(rand.NewSource(seed))
		var counts [MaxSymbols]uint32
		for i := 0; i < nbSymbols; i++ {
			counts[i] = uint32(1 + r.Intn(500))
		}
		maxSymbol, err := normalizeCounts(counts[:], nbSymbols, logTabSize)
		if err != nil {
			return
		}
		got := roundtripHeader(t, counts[:maxSymbol], maxSymbol, logTabSize)
		if !reflect.DeepEqual(got, counts[:maxSymbol]) {
			t.Fatalf("header roundtrip mismatch: got %v, want %v", got, counts[:maxSymbol])
		}
	})
}
