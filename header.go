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

// sparseIsBetter estimates whether prefixing each element of seq with a
// presence bit (skipping the payload for zeros) costs fewer bits overall
// than writing every element in full, tracking the same shrinking bit
// width writeSequence itself uses.
func sparseIsBetter(seq []uint32, nbBits int) bool {
	total := uint32(1) << uint(nbBits)
	half := total >> 1
	n := len(seq)
	saved := -(n - 1)
	nb := nbBits
	for i := 0; i < n-1; i++ {
		c := seq[i]
		if c == 0 {
			saved += nb
		}
		total -= c
		if total < half {
			nb--
			half >>= 1
		}
	}
	return saved > 0
}

// writeSequence writes seq[0:len(seq)-1]; the final element is reconstructed
// by the reader from the running residual. sparse == 2 asks the writer to
// decide (via sparseIsBetter) and record its choice as a leading bit.
func writeSequence(bw *bitWriter, seq []uint32, sparse int, nbBits int) error {
	total := uint32(1) << uint(nbBits)
	half := total >> 1
	n := len(seq)
	if sparse == 2 {
		choice := uint32(0)
		if sparseIsBetter(seq, nbBits) {
			choice = 1
		}
		sparse = int(choice)
		bw.writeBits(1, choice)
	}
	nb := nbBits
	for i := 0; i < n-1; i++ {
		c := seq[i]
		if sparse != 0 {
			present := uint32(0)
			if c > 0 {
				present = 1
			}
			bw.writeBits(1, present)
			if c == 0 {
				continue
			}
		}
		bw.writeBits(nb, c)
		total -= c
		if total < half {
			nb--
			half >>= 1
		}
	}
	if total != seq[n-1] {
		return newErr(ErrHeaderError, "sequence totals %d, want %d", seq[n-1], total)
	}
	return nil
}

func readSequence(br *bitReader, seq []uint32, sparse int, nbBits int) error {
	total := uint32(1) << uint(nbBits)
	half := total >> 1
	n := len(seq)
	if sparse == 2 {
		sparse = int(br.readBits(1))
	}
	nb := nbBits
	for i := 0; i < n-1; i++ {
		if sparse != 0 && br.readBits(1) == 0 {
			seq[i] = 0
			continue
		}
		c := br.readBits(nb)
		seq[i] = c
		if total < c {
			return newErr(ErrHeaderError, "sequence element %d exceeds remaining total %d", c, total)
		}
		total -= c
		if total < half {
			nb--
			half >>= 1
		}
	}
	seq[n-1] = total
	return nil
}

// writeHeader writes the alphabet size and normalized histogram, choosing
// between the small- and large-alphabet schemes on HdrSymbolLimit.
func writeHeader(bw *bitWriter, counts []uint32, maxSymbol, logTabSize int, policy SpreadPolicy) error {
	bw.writeBits(8, uint32(maxSymbol-1))
	if maxSymbol < HdrSymbolLimit {
		return writeSequence(bw, counts[:maxSymbol], 2, logTabSize)
	}
	return writeLargeHeader(bw, counts, maxSymbol, logTabSize, policy)
}

// writeLargeHeader decomposes each count+1 into a bin (its highest set bit
// position) and a suffix (the remaining low bits), then compresses the bin
// sequence with a TabHdrBits-precision sub-encoder before writing the
// suffixes raw.
func writeLargeHeader(bw *bitWriter, counts []uint32, maxSymbol, logTabSize int, policy SpreadPolicy) error {
	tabSize := uint32(1) << uint(logTabSize)
	bins := make([]byte, maxSymbol)
	suffix := make([]uint32, maxSymbol)
	bHisto := make([]uint32, logTabSize+1)

	total := tabSize
	for i := 0; i < maxSymbol; i++ {
		c := counts[i] + 1
		bin := 0
		for b := c; b != 1; b >>= 1 {
			bin++
		}
		if bin > logTabSize {
			return newErr(ErrHeaderError, "bin %d exceeds logTabSize %d", bin, logTabSize)
		}
		bins[i] = byte(bin)
		suffix[i] = c - (uint32(1) << uint(bin))
		bHisto[bin]++
		if total < counts[i] {
			return newErr(ErrHeaderError, "unnormalized histogram")
		}
		total -= counts[i]
	}
	if total != 0 {
		return newErr(ErrHeaderError, "unnormalized histogram")
	}

	if bHisto[0] == uint32(maxSymbol-1) {
		// Exactly one non-zero count: escape instead of running the
		// sub-encoder over a degenerate single-bin histogram.
		bw.writeBits(4, hlenEscape-1)
		return nil
	}

	hlen, err := normalizeCounts(bHisto, logTabSize+1, TabHdrBits)
	if err != nil {
		return err
	}
	subTable, err := buildEncoderTable(bHisto[:hlen], hlen, TabHdrBits, policy)
	if err != nil {
		return err
	}
	bw.writeBits(4, uint32(hlen-1))
	if err := writeSequence(bw, bHisto[:hlen], 2, TabHdrBits); err != nil {
		return err
	}
	subTable.putBlock(bins[:maxSymbol-1], bw)
	for i := 0; i < maxSymbol-1; i++ {
		if bins[i] > 0 {
			bw.writeBits(int(bins[i]), suffix[i])
		}
	}
	return nil
}

// readHeader mirrors writeHeader, returning the reconstructed normalized
// histogram and effective alphabet size.
func readHeader(br *bitReader, logTabSize int, policy SpreadPolicy) ([]uint32, int, error) {
	maxSymbol := int(br.readBits(8)) + 1
	counts := make([]uint32, maxSymbol)

	if maxSymbol < HdrSymbolLimit {
		if err := readSequence(br, counts, 2, logTabSize); err != nil {
			return nil, 0, err
		}
		return counts, maxSymbol, nil
	}

	hlen := int(br.readBits(4)) + 1
	if hlen == hlenEscape {
		counts[maxSymbol-1] = uint32(1) << uint(logTabSize)
		return counts, maxSymbol, nil
	}
	if hlen > logTabSize+1 {
		return nil, 0, newErr(ErrHeaderError, "sub-alphabet length %d exceeds bound", hlen)
	}

	bHisto := make([]uint32, hlen)
	if err := readSequence(br, bHisto, 2, TabHdrBits); err != nil {
		return nil, 0, err
	}
	subDecoder, err := buildDecoderTable(bHisto, hlen, TabHdrBits, policy)
	if err != nil {
		return nil, 0, err
	}
	bins := make([]byte, maxSymbol-1)
	if err := subDecoder.getBlock(br, bins); err != nil {
		return nil, 0, err
	}

	total := uint32(1) << uint(logTabSize)
	for i := 0; i < maxSymbol-1; i++ {
		b := bins[i]
		var residue uint32
		if b > 0 {
			residue = br.readBits(int(b))
		}
		c := (uint32(1)<<uint(b) | residue) - 1
		if total < c {
			return nil, 0, newErr(ErrHeaderError, "large-alphabet normalization error")
		}
		counts[i] = c
		total -= c
	}
	counts[maxSymbol-1] = total
	return counts, maxSymbol, nil
}
