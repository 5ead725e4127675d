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

import "github.com/skal65535/fsc/ints"

// decState is one decoder table slot: the symbol owning this state, how
// many bits to read to reach the next slot, and the relative jump to add
// once those bits are known.
type decState struct {
	symbol byte
	len    uint8
	next   int32
}

type decoderTable struct {
	logTabSize int
	tab        []decState
}

func buildDecoderTable(counts []uint32, maxSymbol, logTabSize int, policy SpreadPolicy) (*decoderTable, error) {
	if maxSymbol <= 0 || maxSymbol > MaxSymbols {
		return nil, newErr(ErrInvalidParameter, "max symbol %d out of range", maxSymbol)
	}
	tabSize := 1 << logTabSize

	spread := make([]byte, tabSize)
	if err := policy(maxSymbol, counts, logTabSize, spread); err != nil {
		return nil, err
	}

	// nextUse[s] tracks how many times s has been placed so far, starting
	// at counts[s] itself (not zero) — see fsc_dec.c's BuildStateTable.
	nextUse := append([]uint32(nil), counts[:maxSymbol]...)
	tab := make([]decState, tabSize)
	for pos := 0; pos < tabSize; pos++ {
		s := spread[pos]
		c := nextUse[s]
		nextUse[s]++
		nb := logTabSize - ints.Log2Floor(c)
		newPos := int32(c<<uint(nb)) - int32(tabSize)
		tab[pos] = decState{symbol: s, len: uint8(nb), next: newPos - int32(pos)}
	}
	return &decoderTable{logTabSize: logTabSize, tab: tab}, nil
}

// getBlock decodes len(out) symbols starting from the implicit state index
// 0, whose first logTabSize-bit read recovers the block's encoded prefix.
func (t *decoderTable) getBlock(br *bitReader, out []byte) error {
	idx := int32(0)
	nextBits := t.logTabSize
	for n := range out {
		br.fillWindow()
		r := br.seeBits() & ((uint32(1) << uint(nextBits)) - 1)
		br.discardBits(nextBits)
		idx += int32(r)
		if idx < 0 || int(idx) >= len(t.tab) {
			return newErr(ErrHeaderError, "decoder state index out of range")
		}
		if br.eof && nextBits > 0 {
			return newErr(ErrUnexpectedEOF, "bit reader exhausted mid-block")
		}
		st := &t.tab[idx]
		out[n] = st.symbol
		nextBits = int(st.len)
		idx += st.next
	}
	return nil
}
