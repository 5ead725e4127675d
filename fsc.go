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

// Package fsc implements a tabled Asymmetric Numeral Systems (tANS) entropy
// codec: a single finite-state automaton walks a normalized probability
// table to compress a byte stream close to its empirical entropy.
package fsc

import "github.com/skal65535/fsc/ints"

// Coder parameters.
const (
	MaxSymbols     = 256 // byte-oriented alphabet
	LogTabSize     = 14  // max internal table precision
	MaxLogTabSize  = 16  // ceiling for word-based coding
	TabHdrBits     = 6   // precision of the header's sub-encoder
	HdrSymbolLimit = 20  // alphabet size threshold selecting the header scheme
	BlockSize      = 8192
)

const hlenEscape = 16 // reserved 4-bit hlen value: "single symbol" header escape

func encodeWithPolicy(src []byte, logTabSize int, counts []uint32, policy SpreadPolicy) ([]byte, error) {
	if logTabSize < 1 || logTabSize > LogTabSize {
		return nil, newErr(ErrInvalidParameter, "logTabSize %d out of range", logTabSize)
	}
	hist := countSymbols(src)
	copy(counts, hist[:])

	maxSymbol, err := normalizeCounts(counts, MaxSymbols, logTabSize)
	if err != nil {
		return nil, err
	}

	bw := newBitWriter(len(src)/2 + 64)
	bw.writeBits(4, uint32(LogTabSize-logTabSize))
	writeLength(bw, uint64(len(src)))

	if err := writeHeader(bw, counts, maxSymbol, logTabSize, policy); err != nil {
		return nil, err
	}

	table, err := buildEncoderTable(counts[:maxSymbol], maxSymbol, logTabSize, policy)
	if err != nil {
		return nil, err
	}

	for remaining := src; len(remaining) > 0; {
		n := ints.Min(BlockSize, len(remaining))
		table.putBlock(remaining[:n], bw)
		remaining = remaining[n:]
	}

	bw.flush()
	return bw.finish()
}

func decodeWithPolicy(src []byte, policy SpreadPolicy) ([]byte, error) {
	br := newBitReader(src)
	logTabSize := LogTabSize - int(br.readBits(4))
	if logTabSize < 1 || logTabSize > LogTabSize {
		return nil, newErr(ErrHeaderError, "decoded logTabSize %d out of range", logTabSize)
	}
	size := readLength(br)

	counts, maxSymbol, err := readHeader(br, logTabSize, policy)
	if err != nil {
		return nil, err
	}
	table, err := buildDecoderTable(counts, maxSymbol, logTabSize, policy)
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	for remaining := out; len(remaining) > 0; {
		n := ints.Min(BlockSize, len(remaining))
		if err := table.getBlock(br, remaining[:n]); err != nil {
			return nil, err
		}
		remaining = remaining[n:]
	}
	return out, nil
}

// writeLength emits the uncompressed length as a chain of 1-bit-continue +
// 8-bit-payload packets, LSB first, terminated by a 0 continue bit.
func writeLength(bw *bitWriter, size uint64) {
	for size != 0 {
		bw.writeBits(1, 1)
		bw.writeBits(8, uint32(size&0xff))
		size >>= 8
	}
	bw.writeBits(1, 0)
}

func readLength(br *bitReader) uint64 {
	var size uint64
	for i := 0; i < 8; i++ {
		if br.readBits(1) == 0 {
			break
		}
		size |= uint64(br.readBits(8)) << uint(8*i)
	}
	return size
}

// Encode compresses src at the given table precision logTabSize (1..LogTabSize).
func Encode(src []byte, logTabSize int) ([]byte, error) {
	var counts [MaxSymbols]uint32
	return encodeWithPolicy(src, logTabSize, counts[:], DefaultSpreadPolicy)
}

// Decode reverses Encode, reading its own table precision and length from
// the stream.
func Decode(src []byte) ([]byte, error) {
	return decodeWithPolicy(src, DefaultSpreadPolicy)
}

// Encoder is a reusable compressor: its scratch histogram is kept across
// calls to avoid a 256-entry allocation per Encode.
type Encoder struct {
	policy SpreadPolicy
	counts [MaxSymbols]uint32
}

// NewEncoder returns an Encoder using policy, or DefaultSpreadPolicy if nil.
// The chosen policy must match the Decoder's for any stream produced.
func NewEncoder(policy SpreadPolicy) *Encoder {
	if policy == nil {
		policy = DefaultSpreadPolicy
	}
	return &Encoder{policy: policy}
}

func (e *Encoder) Encode(src []byte, logTabSize int) ([]byte, error) {
	for i := range e.counts {
		e.counts[i] = 0
	}
	return encodeWithPolicy(src, logTabSize, e.counts[:], e.policy)
}

// Decoder is a reusable decompressor.
type Decoder struct {
	policy SpreadPolicy
}

func NewDecoder(policy SpreadPolicy) *Decoder {
	if policy == nil {
		policy = DefaultSpreadPolicy
	}
	return &Decoder{policy: policy}
}

func (d *Decoder) Decode(src []byte) ([]byte, error) {
	return decodeWithPolicy(src, d.policy)
}
