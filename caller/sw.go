// halcyon: a haplotype-based germline small-variant caller.
// Copyright (c) 2021 the halcyon authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/halcyon-genomics/halcyon/blob/master/LICENSE.txt>.

package caller

import (
	"errors"
	"math"
	"sync"

	"github.com/halcyon-genomics/halcyon/sam"
)

// SWParameters is a Smith-Waterman scoring parameter pack.
type SWParameters struct {
	Match     int32 // > 0
	Mismatch  int32 // < 0
	GapOpen   int32 // < 0
	GapExtend int32 // < 0
}

// The named Smith-Waterman parameter presets.
var (
	// match=1, mismatch=-1/3, gap=-(k+1/3)
	OriginalDefault          = SWParameters{3, -1, -4, -3}
	StandardNGS              = SWParameters{25, -50, -110, -6}
	NewSWParameters          = SWParameters{200, -150, -260, -11}
	AlignmentToBestHaplotype = SWParameters{10, -15, -30, -5}
)

type int32Matrix struct {
	cols  int32
	array []int32
}

func (m *int32Matrix) ensureSize(rows, cols int32) {
	m.cols = cols
	totalSize := rows * cols
	if totalSize <= int32(cap(m.array)) {
		m.array = m.array[:totalSize]
		for i := int32(0); i < totalSize; i++ {
			m.array[i] = 0
		}
	} else {
		m.array = make([]int32, totalSize)
	}
}

func (m *int32Matrix) at(row, col int32) int32 {
	return m.array[row*m.cols+col]
}

func (m *int32Matrix) rowView(row int32) []int32 {
	offset := row * m.cols
	return m.array[offset : offset+m.cols]
}

type smithWatermanMatrices struct {
	score, backtrack           int32Matrix
	bestGapDown, gapSizeDown   []int32
	bestGapRight, gapSizeRight []int32
}

var smithWatermanMatricesPool = sync.Pool{New: func() interface{} { return new(smithWatermanMatrices) }}

func getSmithWatermanMatrices() *smithWatermanMatrices {
	return smithWatermanMatricesPool.Get().(*smithWatermanMatrices)
}

func putSmithWatermanMatrices(sw *smithWatermanMatrices) {
	smithWatermanMatricesPool.Put(sw)
}

func ensureVector(v []int32, sz, initValue int32) (result []int32) {
	if sz <= int32(cap(v)) {
		result = v[:sz]
	} else {
		result = make([]int32, sz)
	}
	for i := int32(0); i < sz; i++ {
		result[i] = initValue
	}
	return
}

const lowInitValue = math.MinInt32 / 2

// ErrEmptySequence is reported when an empty sequence is passed to the
// Smith-Waterman aligner.
var ErrEmptySequence = errors.New("non-empty sequences are required for the SW aligner")

// SmithWaterman aligns alt against ref and returns the 0-based offset
// on ref where the alignment begins, together with a CIGAR describing
// the alignment. Unaligned leading/trailing bases of alt are reported
// as soft clips.
func SmithWaterman(ref, alt string, params SWParameters) (int32, []sam.CigarOperation, error) {
	if len(ref) == 0 || len(alt) == 0 {
		return 0, nil, ErrEmptySequence
	}

	if len(ref) == len(alt) {
		mismatches := 0
		for i := 0; i < len(ref); i++ {
			if ref[i] != alt[i] {
				mismatches++
			}
		}
		if mismatches <= 2 {
			return 0, []sam.CigarOperation{{Length: int32(len(ref)), Operation: 'M'}}, nil
		}
	}

	sw := getSmithWatermanMatrices()
	defer putSmithWatermanMatrices(sw)

	refLength := int32(len(ref))
	altLength := int32(len(alt))
	nrow := refLength + 1
	ncol := altLength + 1
	sw.score.ensureSize(nrow, ncol)
	sw.backtrack.ensureSize(nrow, ncol)
	sw.bestGapDown = ensureVector(sw.bestGapDown, ncol+1, lowInitValue)
	sw.gapSizeDown = ensureVector(sw.gapSizeDown, ncol+1, 0)
	sw.bestGapRight = ensureVector(sw.bestGapRight, nrow+1, lowInitValue)
	sw.gapSizeRight = ensureVector(sw.gapSizeRight, nrow+1, 0)

	curRow := sw.score.rowView(0)
	for i := int32(1); i < nrow; i++ {
		refBase := ref[i-1]
		lastRow := curRow
		curRow = sw.score.rowView(i)
		curBacktrackRow := sw.backtrack.rowView(i)
		for j := int32(1); j < ncol; j++ {
			stepDiag := lastRow[j-1]
			if refBase == alt[j-1] {
				stepDiag += params.Match
			} else {
				stepDiag += params.Mismatch
			}

			gapOpenDown := lastRow[j] + params.GapOpen
			sw.bestGapDown[j] += params.GapExtend
			if gapOpenDown > sw.bestGapDown[j] {
				sw.bestGapDown[j] = gapOpenDown
				sw.gapSizeDown[j] = 1
			} else {
				sw.gapSizeDown[j]++
			}
			stepDown := sw.bestGapDown[j]
			stepDownSize := sw.gapSizeDown[j]

			gapOpenRight := curRow[j-1] + params.GapOpen
			sw.bestGapRight[i] += params.GapExtend
			if gapOpenRight > sw.bestGapRight[i] {
				sw.bestGapRight[i] = gapOpenRight
				sw.gapSizeRight[i] = 1
			} else {
				sw.gapSizeRight[i]++
			}
			stepRight := sw.bestGapRight[i]
			stepRightSize := sw.gapSizeRight[i]

			// priority: diagonal, then down, then right
			if stepDiag >= stepDown && stepDiag >= stepRight {
				curRow[j] = stepDiag
				curBacktrackRow[j] = 0
			} else if stepDown >= stepRight {
				curRow[j] = stepDown
				curBacktrackRow[j] = stepDownSize
			} else {
				curRow[j] = stepRight
				curBacktrackRow[j] = -stepRightSize
			}
		}
	}

	offset, cigar := traceback(&sw.score, &sw.backtrack, refLength, altLength)
	return offset, cigar, nil
}

func traceback(score, backtrack *int32Matrix, refLength, altLength int32) (int32, []sam.CigarOperation) {
	maxScore := math.MinInt32
	var segmentLength int32
	var p1 int32
	p2 := altLength

	// the largest score on the rightmost column; >= combined with the
	// traversal direction picks the score closest to the diagonal
	for i := int32(1); i <= refLength; i++ {
		if curScore := int(score.at(i, altLength)); curScore >= maxScore {
			maxScore = curScore
			p1 = i
		}
	}
	// a larger score on the bottom row wins; the end of alt past that
	// column is an overhang recorded as a soft clip
	bottomRow := score.rowView(refLength)
	for j := int32(1); j <= altLength; j++ {
		if curScore := int(bottomRow[j]); curScore > maxScore ||
			(curScore == maxScore && absInt32(refLength-j) < absInt32(p1-p2)) {
			maxScore = curScore
			p1 = refLength
			p2 = j
			segmentLength = altLength - j
		}
	}

	lce := make([]sam.CigarOperation, 0, 5)
	if segmentLength > 0 {
		lce = append(lce, sam.CigarOperation{Length: segmentLength, Operation: 'S'})
		segmentLength = 0
	}
	state := byte('M')
	for {
		btr := backtrack.at(p1, p2)
		stepLength := int32(1)
		var newState byte
		if btr > 0 {
			newState = 'D'
			stepLength = btr
			p1 -= btr
		} else if btr < 0 {
			newState = 'I'
			stepLength = -btr
			p2 += btr
		} else {
			newState = 'M'
			p1--
			p2--
		}
		if newState == state {
			segmentLength += stepLength
		} else {
			lce = append(lce, sam.CigarOperation{Length: segmentLength, Operation: state})
			segmentLength = stepLength
			state = newState
		}
		if p1 <= 0 || p2 <= 0 {
			break
		}
	}
	lce = append(lce, sam.CigarOperation{Length: segmentLength, Operation: state})
	offset := p1
	if p2 > 0 {
		lce = append(lce, sam.CigarOperation{Length: p2, Operation: 'S'})
	}
	sam.ReverseCigar(lce)
	for i := 1; i < len(lce); {
		if lce[i-1].Length == 0 {
			lce = append(lce[:i-1], lce[i:]...)
		} else if lce[i-1].Operation == lce[i].Operation {
			lce[i-1].Length += lce[i].Length
			lce = append(lce[:i], lce[i+1:]...)
		} else {
			i++
		}
	}
	if l := len(lce) - 1; lce[l].Length == 0 {
		lce = lce[:l]
	}
	return offset, lce
}
