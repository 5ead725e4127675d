// Copyright 2024 The fsc Authors.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package fsc

// SpreadPolicy assigns each of the len(out) == 2^logTabSize table slots to
// exactly one symbol, matching counts[s] slots to symbol s. Encoder and
// Decoder of the same stream must use the same policy — spec.md treats the
// choice as an interoperability contract, not a per-call option (see
// DefaultSpreadPolicy).
type SpreadPolicy func(maxSymbol int, counts []uint32, logTabSize int, out []byte) error

// DefaultSpreadPolicy is used by NewEncoder/NewDecoder when no explicit
// policy is given. Mirroring fsc.h's process-global BuildSpreadTable_ptr,
// this must be set before any coder touching a shared stream format is
// constructed, and left untouched for the lifetime of those coders — it is
// not safe to mutate concurrently with coder construction.
var DefaultSpreadPolicy SpreadPolicy = BucketSpread

// bucketKey computes a symbol's initial (and, added to itself, its
// subsequent) bucket key T/count[s], halved for the initial placement. The
// reference implementation is a plain division; a target that can turn
// this into a precomputed reciprocal multiply may swap the function
// pointer instead, the same swappable-hot-path shape used for other
// optional fast paths in this package.
var bucketKey func(tabSize int, count uint32) float64 = bucketKeyReference

func bucketKeyReference(tabSize int, count uint32) float64 {
	return float64(tabSize) / float64(count)
}

// maxInsertIteration bounds the in-bucket insertion-sort used by
// BucketSpread. The original fsc source hard-codes this to 0 (i.e. always
// insert at the bucket head without scanning), and spec.md's Design Notes
// call out retaining that default as required for cross-version bitstream
// compatibility — changing it produces a different, still-valid, but
// non-interoperable spread.
const maxInsertIteration = 0

// BucketSpread places each symbol s into floating-point bucket
// floor(0.5*T/count[s]), then repeatedly pops the lowest populated bucket,
// appends its symbol to out, and reinserts it at key += T/count[s] — an
// interleaving that tracks 1/count[s] spacing closely. Grounded on
// histo.c's BuildSpreadTableBucket/INSERT.
func BucketSpread(maxSymbol int, counts []uint32, logTabSize int, out []byte) error {
	tabSize := 1 << logTabSize
	if len(out) != tabSize {
		return newErr(ErrInvalidParameter, "spread output length %d != table size %d", len(out), tabSize)
	}

	const nilSym = -1
	buckets := make([]int32, tabSize)
	for i := range buckets {
		buckets[i] = nilSym
	}
	next := make([]int32, maxSymbol)
	keys := make([]float64, maxSymbol)

	insert := func(s int, key float64) {
		b := int(key)
		if b >= tabSize {
			return
		}
		p := &buckets[b]
		iter := maxInsertIteration
		for iter > 0 && *p != nilSym && keys[*p] < key {
			p = &next[*p]
			iter--
		}
		next[s] = *p
		*p = int32(s)
		keys[s] = key
	}

	for s := 0; s < maxSymbol; s++ {
		if counts[s] > 0 {
			insert(s, 0.5*bucketKey(tabSize, counts[s]))
		}
	}

	n := 0
	for pos := 0; n < tabSize && pos < tabSize; pos++ {
		for {
			s := buckets[pos]
			if s < 0 {
				break
			}
			out[n] = byte(s)
			n++
			buckets[pos] = next[s] // pop s
			insert(int(s), keys[s]+bucketKey(tabSize, counts[s]))
		}
	}
	// Rounding error can leave a short tail; repeat the last emitted symbol.
	for ; n != tabSize; n++ {
		out[n] = out[n-1]
	}
	return nil
}

func reverseBits(i, maxBits int) int {
	v := 0
	for n := 0; n < maxBits; n++ {
		v |= ((i >> uint(n)) & 1) << uint(maxBits-1-n)
	}
	return v
}

// BitReverseSpread writes count[s] consecutive positions per symbol and
// indexes the output by the bit-reversal of the running position.
// Grounded on histo.c's BuildSpreadTableReverse.
func BitReverseSpread(maxSymbol int, counts []uint32, logTabSize int, out []byte) error {
	tabSize := 1 << logTabSize
	if len(out) != tabSize {
		return newErr(ErrInvalidParameter, "spread output length %d != table size %d", len(out), tabSize)
	}
	pos := 0
	for s := 0; s < maxSymbol; s++ {
		for n := uint32(0); n < counts[s]; n++ {
			out[reverseBits(pos, logTabSize)] = byte(s)
			pos++
		}
	}
	return nil
}

// cryptoKey is XORed into every slot index before masking. The original
// source keeps this at 0 and disables the keyed variant; see fsc.h.
const cryptoKey = 0

// ModuloSpread strides the table with step = T/2 + T/8 + 1, forced odd so it
// is coprime with any power-of-two T (the formula alone gives 2 for T = 2),
// optionally XOR-masked by cryptoKey. Grounded on
// histo.c's BuildSpreadTableModulo.
func ModuloSpread(maxSymbol int, counts []uint32, logTabSize int, out []byte) error {
	tabSize := 1 << logTabSize
	if len(out) != tabSize {
		return newErr(ErrInvalidParameter, "spread output length %d != table size %d", len(out), tabSize)
	}
	step := ((tabSize >> 1) + (tabSize >> 3) + 1) | 1
	pos := 0
	for s := 0; s < maxSymbol; s++ {
		for n := uint32(0); n < counts[s]; n++ {
			slot := (pos*step ^ cryptoKey) & (tabSize - 1)
			out[slot] = byte(s)
			pos++
		}
	}
	return nil
}
