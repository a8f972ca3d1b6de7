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
	"math"
)

func minInt32(x, y int32) int32 {
	if x < y {
		return x
	}
	return y
}

func maxInt32(x, y int32) int32 {
	if x > y {
		return x
	}
	return y
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func absInt32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

func log10(x float64) float64 {
	return math.Log10(x)
}

// asciiOffset is the offset of phred+33 encoded base qualities.
const asciiOffset = byte('!')

// qualToErrorProb[q] is the base error probability for the phred+33
// encoded quality q.
var qualToErrorProb = func() (cache [128]float64) {
	for i := int(asciiOffset); i < len(cache); i++ {
		cache[i] = math.Pow(10, -float64(i-int(asciiOffset))/10)
	}
	return
}()

const (
	jacobianLogTableMaxTolerance = 8.0
	jacobianLogTableStep         = 0.0001
	jacobianLogTableInvStep      = 1 / jacobianLogTableStep
)

var jacobianLogTable = func() []float64 {
	cache := make([]float64, int(jacobianLogTableMaxTolerance/jacobianLogTableStep)+1)
	for k := range cache {
		cache[k] = math.Log10(1 + math.Pow(10, -jacobianLogTableStep*float64(k)))
	}
	return cache
}()

func jacobianLog(difference float64) float64 {
	return jacobianLogTable[int(math.Round(difference*jacobianLogTableInvStep))]
}

// approximateLog10SumLog10 computes log10(10^a + 10^b) with a table
// lookup for the correction term.
func approximateLog10SumLog10(a, b float64) float64 {
	if a > b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return b
	}
	if diff := b - a; diff < jacobianLogTableMaxTolerance {
		return b + jacobianLog(diff)
	}
	return b
}

var log10Ploidy = math.Log10(2)

// maxAlleleCount is the largest allele list the genotyper accepts at
// one locus.
const maxAlleleCount = 10

// alleleIndexCache[count] lists the unordered diploid genotypes for
// count alleles, in the order (0,0),(0,1),...,(0,count-1),(1,1),...
var alleleIndexCache = func() [][][2]int {
	cache := make([][][2]int, maxAlleleCount+1)
	for alleleCount := 0; alleleCount <= maxAlleleCount; alleleCount++ {
		var inner [][2]int
		for a1 := 0; a1 < alleleCount; a1++ {
			for a2 := a1; a2 < alleleCount; a2++ {
				inner = append(inner, [2]int{a1, a2})
			}
		}
		cache[alleleCount] = inner
	}
	return cache
}()
