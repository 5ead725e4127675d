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

// countSymbols tabulates byte frequencies with four interleaved
// accumulators: accumulating into independent lanes and summing at the end
// avoids the store-to-load forwarding stall of a single counts[in[i]]++
// loop.
func countSymbols(in []byte) [MaxSymbols]uint32 {
	var lanes [4][MaxSymbols]uint32
	n := len(in)
	e := n &^ 3 // n rounded down to a multiple of 4
	for i := 0; i < e; i += 4 {
		lanes[0][in[i+0]]++
		lanes[1][in[i+1]]++
		lanes[2][in[i+2]]++
		lanes[3][in[i+3]]++
	}
	for i := e; i < n; i++ {
		lanes[0][in[i]]++
	}
	var counts [MaxSymbols]uint32
	for i := 0; i < MaxSymbols; i++ {
		counts[i] = lanes[0][i] + lanes[1][i] + lanes[2][i] + lanes[3][i]
	}
	return counts
}

// descaleBits is the 2^30 normalization scale the carry/error-diffusion
// rescaler uses before descaling down to 2^logTabSize, giving plenty of
// fractional precision regardless of L.
const descaleBits = 30
const descaleOne = uint64(1) << descaleBits

// normalizeCounts rescales counts[0:maxSymbol) so the sum is exactly
// 2^logTabSize, using error-diffusion (carry-based) rounding (the
// alternative, sort-based "Squeaky Wheel" normalizer found in histo.c is
// not carried into this repo; see DESIGN.md).
//
// It returns the effective max symbol (the index just past the last
// originally non-zero count), so callers can drop trailing zero entries
// from the header.
func normalizeCounts(counts []uint32, maxSymbol int, logTabSize int) (int, error) {
	if logTabSize < 1 || logTabSize > LogTabSize {
		return 0, newErr(ErrInvalidParameter, "logTabSize %d out of range", logTabSize)
	}
	tabSize := uint32(1) << uint(logTabSize)

	var total uint64
	nbSymbols := 0
	lastNZ := 0
	for i := 0; i < maxSymbol; i++ {
		total += uint64(counts[i])
		if counts[i] > 0 {
			nbSymbols++
			lastNZ = i + 1
		}
	}
	if nbSymbols == 0 {
		return 0, newErr(ErrInvalidParameter, "empty alphabet")
	}
	if uint32(nbSymbols) > tabSize {
		return 0, newErr(ErrInvalidParameter, "alphabet size %d exceeds table size %d", nbSymbols, tabSize)
	}
	maxSymbol = lastNZ

	if nbSymbols == int(tabSize) {
		// Every slot is claimed by a distinct symbol: the only distribution
		// that fits is the uniform one.
		for i := 0; i < maxSymbol; i++ {
			if counts[i] > 0 {
				counts[i] = 1
			}
		}
		return maxSymbol, nil
	}

	if total > uint64(tabSize) {
		// Reserve a little extra mass for every non-zero count before the
		// descale below, compensating for the systematic downward bias of
		// floor-rounding: inflate each count by a geometric correction
		// series that vanishes once it no longer moves the >>logTabSize
		// descaled result.
		correction := uint64(1) << descaleBits
		var totalCorrection uint64
		for correction > 0 {
			correction = (correction * uint64(nbSymbols)) / uint64(tabSize)
			totalCorrection += correction
		}
		totalCorrection >>= uint(logTabSize)
		if totalCorrection > 0 {
			for i := 0; i < maxSymbol; i++ {
				if counts[i] > 0 {
					counts[i] += uint32(totalCorrection)
					total += uint64(totalCorrection)
				}
			}
		}
	}

	shift := uint(descaleBits) - uint(logTabSize)
	unit := int64(1) << shift // one output count at the 2^30 scale
	mask := unit - 1

	mult := int64(descaleOne / total)
	errRem := int64(descaleOne % total)
	var carry int64
	if errRem >= unit {
		carry = errRem
	} else {
		carry = (unit + errRem) / 2
	}
	var sum uint32
	for i := 0; i < maxSymbol; i++ {
		c := counts[i]
		if c == 0 {
			continue
		}
		// product may go negative: a prior iteration can defer a deficit
		// (below) that a low-probability symbol hasn't yet repaid.
		product := int64(c)*mult + carry
		c2 := product >> shift // arithmetic (sign-extending) shift
		carry = product & mask
		if c2 <= 0 {
			// A positive input must never round to zero: force it to the
			// minimum representable count and push the resulting deficit
			// onto the carry for later symbols to absorb.
			c2 = 1
			carry -= unit
		}
		counts[i] = uint32(c2)
		sum += uint32(c2)
	}

	if sum != tabSize {
		return 0, newErr(ErrNormalizationError, "rescaled total %d != %d", sum, tabSize)
	}
	return maxSymbol, nil
}
