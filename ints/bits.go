// Copyright (C) 2022 Sneller, Inc.
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

package ints

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Log2Floor returns floor(log2(v)) for v > 0, mirroring fsc_dec.c's Log2.
func Log2Floor[T constraints.Unsigned](v T) int {
	return bits.Len64(uint64(v)) - 1
}

// Log2Ceil returns ceil(log2(v)) for v > 0, mirroring fsc_enc.c's Log2Ceil.
// Log2Ceil(1) == 0.
func Log2Ceil[T constraints.Unsigned](v T) int {
	if v <= 1 {
		return 0
	}
	return bits.Len64(uint64(v - 1))
}
