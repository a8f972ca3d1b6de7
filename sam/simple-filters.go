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

package sam

// AlignmentFilter is a predicate that tells whether an alignment
// passes a filter.
type AlignmentFilter func(aln *Alignment) bool

// MinimumMappingQuality is the lowest MAPQ accepted by the caller.
const MinimumMappingQuality = 20

// MinimumReadLengthAfterTrimming is the shortest read the caller
// processes after clipping.
const MinimumReadLengthAfterTrimming = 25

// FilterMappingQuality removes reads with a MAPQ below
// MinimumMappingQuality.
func FilterMappingQuality(aln *Alignment) bool {
	return aln.MAPQ >= MinimumMappingQuality
}

// FilterDuplicate removes reads marked as duplicates.
func FilterDuplicate(aln *Alignment) bool {
	return !aln.IsDuplicate()
}

// FilterSecondary removes secondary alignments.
func FilterSecondary(aln *Alignment) bool {
	return !aln.IsSecondary()
}

// FilterMateOnSameContig removes reads whose mate maps to a different
// contig.
func FilterMateOnSameContig(aln *Alignment) bool {
	return aln.RNEXT == "="
}

// FilterMinimumLength removes reads shorter than
// MinimumReadLengthAfterTrimming.
func FilterMinimumLength(aln *Alignment) bool {
	return len(aln.SEQ) >= MinimumReadLengthAfterTrimming
}

// ApplyFilters removes all alignments for which any of the given
// filters fails, compacting the slice in place.
func ApplyFilters(alns []*Alignment, filters ...AlignmentFilter) []*Alignment {
	i := 0
nextAln:
	for _, aln := range alns {
		for _, filter := range filters {
			if !filter(aln) {
				continue nextAln
			}
		}
		alns[i] = aln
		i++
	}
	for j := i; j < len(alns); j++ {
		alns[j] = nil
	}
	return alns[:i]
}
