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
	"github.com/skal65535/fsc/ints"
	"golang.org/x/exp/slices"
)

// encoderTable holds the per-symbol transform (nbBits/wrap/offset) and the
// forward states[] table built from a normalized histogram and a spread.
// It is built once per Encode call and discarded afterward. tokenBits/
// tokenVal are the per-block token scratch buffers Design Note 9 calls for
// preallocating once per call rather than per block; putBlock grows them
// with slices.Grow instead of reallocating on every call.
type encoderTable struct {
	logTabSize int
	nbBits     []uint8
	wrap       []uint32
	offset     []int32
	states     []uint32
	tokenBits  []int
	tokenVal   []uint32
}

func buildEncoderTable(counts []uint32, maxSymbol, logTabSize int, policy SpreadPolicy) (*encoderTable, error) {
	if maxSymbol <= 0 || maxSymbol > MaxSymbols {
		return nil, newErr(ErrInvalidParameter, "max symbol %d out of range", maxSymbol)
	}
	tabSize := 1 << logTabSize

	nbBits := make([]uint8, maxSymbol)
	wrap := make([]uint32, maxSymbol)
	offset := make([]int32, maxSymbol)
	stateStart := make([]int32, maxSymbol)

	pos := 0
	for s := 0; s < maxSymbol; s++ {
		stateStart[s] = int32(pos)
		c := counts[s]
		if c == 0 {
			continue
		}
		nb := logTabSize - ints.Log2Ceil(c)
		nbBits[s] = uint8(nb)
		wrap[s] = c << uint(1+nb)
		offset[s] = int32(pos) - int32(c)
		pos += int(c)
	}
	if pos != tabSize {
		return nil, newErr(ErrNormalizationError, "counts sum to %d, want %d", pos, tabSize)
	}

	spread := make([]byte, tabSize)
	if err := policy(maxSymbol, counts, logTabSize, spread); err != nil {
		return nil, err
	}

	states := make([]uint32, tabSize)
	cursor := append([]int32(nil), stateStart...)
	for slot := 0; slot < tabSize; slot++ {
		s := spread[slot]
		states[cursor[s]] = uint32(slot) + uint32(tabSize)
		cursor[s]++
	}

	return &encoderTable{
		logTabSize: logTabSize,
		nbBits:     nbBits,
		wrap:       wrap,
		offset:     offset,
		states:     states,
		tokenBits:  make([]int, 0, BlockSize),
		tokenVal:   make([]uint32, 0, BlockSize),
	}, nil
}

// putBlock reverse-scans in[] to produce one token per position, then emits
// the block prefix (the terminal state's low logTabSize bits) followed by
// all tokens in forward order except the last: that final token was
// computed from the initial state T, and nothing ever reads it back on
// decode, since the decoder stops after its matching symbol. The token
// scratch buffers are grown with slices.Grow and reused across calls rather
// than reallocated per block.
func (t *encoderTable) putBlock(in []byte, bw *bitWriter) {
	tabSize := uint32(1) << uint(t.logTabSize)
	tokenBits := slices.Grow(t.tokenBits[:0], len(in))[:len(in)]
	tokenVal := slices.Grow(t.tokenVal[:0], len(in))[:len(in)]

	state := tabSize
	for k := len(in) - 1; k >= 0; k-- {
		sym := in[k]
		extra := uint32(0)
		if state >= t.wrap[sym] {
			extra = 1
		}
		bits := int(t.nbBits[sym]) + int(extra)
		tokenBits[k] = bits
		tokenVal[k] = state & ((uint32(1) << uint(bits)) - 1)
		state = t.states[int32(state>>uint(bits))+t.offset[sym]]
	}
	t.tokenBits = tokenBits
	t.tokenVal = tokenVal

	bw.writeBits(t.logTabSize, state&(tabSize-1))
	for k := 0; k < len(in)-1; k++ {
		bw.writeBits(tokenBits[k], tokenVal[k])
	}
}
