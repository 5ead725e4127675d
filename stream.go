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

// StreamDecoder is the non-canned decode API: parse the header once with
// NewStreamDecoder, inspect IsOK, then Decompress on demand. It mirrors the
// split between header validation and payload extraction that a caller
// wanting to reject a corrupt stream before committing to an allocation
// would want.
type StreamDecoder struct {
	br         *bitReader
	policy     SpreadPolicy
	logTabSize int
	size       uint64
	table      *decoderTable
	err        error
}

// NewStreamDecoder parses src's header (table precision, length, and
// histogram) and builds the decode table, without yet producing any output
// bytes.
func NewStreamDecoder(src []byte) (*StreamDecoder, error) {
	return newStreamDecoderWithPolicy(src, DefaultSpreadPolicy)
}

func newStreamDecoderWithPolicy(src []byte, policy SpreadPolicy) (*StreamDecoder, error) {
	d := &StreamDecoder{policy: policy}
	br := newBitReader(src)
	d.br = br

	d.logTabSize = LogTabSize - int(br.readBits(4))
	if d.logTabSize < 1 || d.logTabSize > LogTabSize {
		d.err = newErr(ErrHeaderError, "decoded logTabSize %d out of range", d.logTabSize)
		return d, d.err
	}
	d.size = readLength(br)

	counts, maxSymbol, err := readHeader(br, d.logTabSize, policy)
	if err != nil {
		d.err = err
		return d, err
	}
	table, err := buildDecoderTable(counts, maxSymbol, d.logTabSize, policy)
	if err != nil {
		d.err = err
		return d, err
	}
	d.table = table
	return d, nil
}

// IsOK reports whether the header parsed cleanly and Decompress is safe to
// call.
func (d *StreamDecoder) IsOK() bool {
	return d != nil && d.err == nil
}

// Decompress produces the full decoded payload. It may only be called once
// per StreamDecoder: the underlying bit reader is stateful and advances
// with each block.
func (d *StreamDecoder) Decompress() ([]byte, error) {
	if !d.IsOK() {
		return nil, d.err
	}
	out := make([]byte, d.size)
	if err := d.decompressInto(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Size reports the uncompressed payload length recorded in the header,
// letting a caller size its own buffer before calling DecompressTo.
func (d *StreamDecoder) Size() uint64 {
	return d.size
}

// DecompressTo decodes into dst, which must be exactly Size() bytes long,
// avoiding the allocation Decompress makes on the caller's behalf. It may
// only be called once per StreamDecoder, for the same reason as Decompress.
func (d *StreamDecoder) DecompressTo(dst []byte) error {
	if !d.IsOK() {
		return d.err
	}
	if uint64(len(dst)) != d.size {
		d.err = newErr(ErrOutputTooSmall, "destination buffer is %d bytes, need %d", len(dst), d.size)
		return d.err
	}
	return d.decompressInto(dst)
}

func (d *StreamDecoder) decompressInto(out []byte) error {
	for remaining := out; len(remaining) > 0; {
		n := len(remaining)
		if n > BlockSize {
			n = BlockSize
		}
		if err := d.table.getBlock(d.br, remaining[:n]); err != nil {
			d.err = err
			return err
		}
		remaining = remaining[n:]
	}
	return nil
}
