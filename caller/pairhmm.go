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
	"sync"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/floats"

	"github.com/halcyon-genomics/halcyon/sam"
)

// the three-state HMM transition probabilities
const (
	matchToMatch = iota
	matchToInsertion
	matchToDeletion
	insertionToMatch
	insertionToInsertion
	deletionToMatch
	deletionToDeletion
	nofTransitionProbs
)

var defaultTransitions = [nofTransitionProbs]float64{0.9998, 0.0001, 0.0001, 0.9, 0.1, 0.9, 0.1}

const (
	tristateCorrection                 = 3.0
	maximumBestAltLikelihoodDifference = -4.5
	expectedErrorRatePerBase           = 0.02
	log10QualityPerBase                = -4.0
	maximumExpectedErrorPerRead        = 2.0
)

var (
	initialCondition      = math.Pow(2, 1020)
	initialConditionLog10 = log10(initialCondition)
)

type float64Matrix struct {
	cols  int
	array []float64
}

func (m *float64Matrix) ensureSize(rows, cols int) {
	m.cols = cols
	totalSize := rows * cols
	if totalSize <= cap(m.array) {
		m.array = m.array[:totalSize]
		for i := range m.array {
			m.array[i] = 0
		}
	} else {
		m.array = make([]float64, totalSize)
	}
}

func (m *float64Matrix) rowView(row int) []float64 {
	offset := row * m.cols
	return m.array[offset : offset+m.cols]
}

type pairHMMMatrices struct {
	match, insertion, deletion, prior float64Matrix
	previousHaplotypeLength           int
}

var pairHMMMatricesPool = sync.Pool{New: func() interface{} { return new(pairHMMMatrices) }}

func getPairHMMMatrices() *pairHMMMatrices {
	return pairHMMMatricesPool.Get().(*pairHMMMatrices)
}

func putPairHMMMatrices(p *pairHMMMatrices) {
	pairHMMMatricesPool.Put(p)
}

func (p *pairHMMMatrices) ensureSize(readBases, haplotypeBases int) {
	p.match.ensureSize(readBases, haplotypeBases)
	p.insertion.ensureSize(readBases, haplotypeBases)
	p.deletion.ensureSize(readBases, haplotypeBases)
	p.prior.ensureSize(readBases, haplotypeBases)
	p.previousHaplotypeLength = 0
}

// modifyReadQualities caps the base qualities of a read by its mapping
// quality.
func modifyReadQualities(aln *sam.Alignment) {
	mapq := int(asciiOffset) + int(aln.MAPQ)
	for i, qual := range aln.QUAL {
		if int(qual) > mapq {
			aln.QUAL[i] = byte(mapq)
		}
	}
}

func (p *pairHMMMatrices) initializePriors(aln *sam.Alignment, haplotype string) {
	for i := 0; i < len(aln.SEQ); i++ {
		x := aln.SEQ[i]
		errorProb := qualToErrorProb[aln.QUAL[i]]
		matchPrior := 1 - errorProb
		nonMatchPrior := errorProb / tristateCorrection
		priorRow := p.prior.rowView(i + 1)
		for j := 0; j < len(haplotype); j++ {
			if y := haplotype[j]; x == y || x == 'N' || y == 'N' {
				priorRow[j+1] = matchPrior
			} else {
				priorRow[j+1] = nonMatchPrior
			}
		}
	}
}

// computeLikelihood runs the forward recurrence for one read against
// one haplotype and returns log10 P(read|haplotype).
func (p *pairHMMMatrices) computeLikelihood(aln *sam.Alignment, haplotype string, t *[nofTransitionProbs]float64) float64 {
	n := len(haplotype)
	if p.previousHaplotypeLength == 0 || p.previousHaplotypeLength != n {
		initialValue := initialCondition / float64(n)
		deletionRow0 := p.deletion.rowView(0)
		for j := 0; j <= n; j++ {
			deletionRow0[j] = initialValue
		}
		p.previousHaplotypeLength = n
	}

	p.initializePriors(aln, haplotype)

	for i := 1; i <= len(aln.SEQ); i++ {
		matchI := p.match.rowView(i - 1)
		matchI1 := p.match.rowView(i)
		insertionI := p.insertion.rowView(i - 1)
		insertionI1 := p.insertion.rowView(i)
		deletionI := p.deletion.rowView(i - 1)
		deletionI1 := p.deletion.rowView(i)
		priorI1 := p.prior.rowView(i)
		for j := 1; j <= n; j++ {
			matchI1[j] = priorI1[j] * (matchI[j-1]*t[matchToMatch] +
				insertionI[j-1]*t[insertionToMatch] +
				deletionI[j-1]*t[deletionToMatch])
			insertionI1[j] = matchI[j]*t[matchToInsertion] + insertionI[j]*t[insertionToInsertion]
			deletionI1[j] = matchI1[j-1]*t[matchToDeletion] + deletionI1[j-1]*t[deletionToDeletion]
		}
	}

	matchEnd := p.match.rowView(len(aln.SEQ))
	deletionEnd := p.deletion.rowView(len(aln.SEQ))
	finalSumProb := floats.Sum(matchEnd[1:n+1]) + floats.Sum(deletionEnd[1:n+1])
	return log10(finalSumProb) - initialConditionLog10
}

// readLikelihoods is the result of the pair-HMM: a dense reads x
// haplotypes matrix of log10 likelihoods. Reads that cannot be
// explained by any haplotype are removed from alns and values.
type readLikelihoods struct {
	alns   []*sam.Alignment
	values [][]float64 // values[read][haplotype]
}

// computeReadLikelihoods computes log10 P(read|haplotype) for all
// pairs, normalizes each read row, and drops poorly modeled reads.
// Reads are scheduled in parallel; workers use their own matrix
// buffers, so results are independent of scheduling.
func computeReadLikelihoods(haplotypes []*haplotype, alns []*sam.Alignment) readLikelihoods {
	maxReadLength := parallel.RangeReduceInt(0, len(alns), 0, func(low, high int) int {
		var max int
		for i := low; i < high; i++ {
			if l := len(alns[i].SEQ); l > max {
				max = l
			}
		}
		return max
	}, maxInt)
	maxHaplotypeLength := parallel.RangeReduceInt(0, len(haplotypes), 0, func(low, high int) int {
		var max int
		for i := low; i < high; i++ {
			if l := len(haplotypes[i].bases); l > max {
				max = l
			}
		}
		return max
	}, maxInt)

	result := readLikelihoods{
		alns:   alns,
		values: make([][]float64, len(alns)),
	}

	parallel.Range(0, len(alns), 0, func(low, high int) {
		p := getPairHMMMatrices()
		defer putPairHMMMatrices(p)
		p.ensureSize(maxReadLength+1, maxHaplotypeLength+1)
		for readIndex := low; readIndex < high; readIndex++ {
			aln := alns[readIndex]
			modifyReadQualities(aln)
			row := make([]float64, len(haplotypes))
			for haplotypeIndex, h := range haplotypes {
				row[haplotypeIndex] = p.computeLikelihood(aln, h.bases, &defaultTransitions)
			}
			result.values[readIndex] = row
		}
	})

	for _, row := range result.values {
		bestLikelihood := floats.Max(row)
		capLikelihood := bestLikelihood + maximumBestAltLikelihoodDifference
		for j, likelihood := range row {
			if likelihood < capLikelihood {
				row[j] = capLikelihood
			}
		}
	}

	// drop reads in reverse-index order so surviving indices stay stable
	for i := len(result.values) - 1; i >= 0; i-- {
		bestLikelihood := floats.Max(result.values[i])
		maxErrorsForRead := math.Min(maximumExpectedErrorPerRead,
			math.Ceil(float64(len(result.alns[i].SEQ))*expectedErrorRatePerBase))
		if bestLikelihood < maxErrorsForRead*log10QualityPerBase {
			result.alns = append(result.alns[:i], result.alns[i+1:]...)
			result.values = append(result.values[:i], result.values[i+1:]...)
		}
	}

	return result
}
