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

import (
	"sort"

	psort "github.com/exascience/pargo/sort"

	"github.com/halcyon-genomics/halcyon/intervals"
)

// Alignment is a single aligned read from a SAM file.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	POS   int32
	MAPQ  byte
	CIGAR []CigarOperation
	RNEXT string
	PNEXT int32
	TLEN  int32
	SEQ   string
	QUAL  []byte
}

// Flag values for SAM alignments.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

// IsMultiple checks the corresponding FLAG bit.
func (aln *Alignment) IsMultiple() bool { return (aln.FLAG & Multiple) != 0 }

// IsUnmapped checks the corresponding FLAG bit.
func (aln *Alignment) IsUnmapped() bool { return (aln.FLAG & Unmapped) != 0 }

// IsReversed checks the corresponding FLAG bit.
func (aln *Alignment) IsReversed() bool { return (aln.FLAG & Reversed) != 0 }

// IsSecondary checks the corresponding FLAG bit.
func (aln *Alignment) IsSecondary() bool { return (aln.FLAG & Secondary) != 0 }

// IsDuplicate checks the corresponding FLAG bit.
func (aln *Alignment) IsDuplicate() bool { return (aln.FLAG & Duplicate) != 0 }

// Begin returns the 0-based alignment begin position.
func (aln *Alignment) Begin() int32 {
	return aln.POS - 1
}

// End returns the 0-based exclusive alignment end position, determined
// by the CIGAR operations that consume reference bases.
func (aln *Alignment) End() int32 {
	return aln.Begin() + ReferenceLengthFromCigar(aln.CIGAR)
}

// Interval returns the half-open reference interval this alignment covers.
func (aln *Alignment) Interval() intervals.Interval {
	return intervals.Interval{Contig: aln.RNAME, Start: aln.Begin(), End: aln.End()}
}

// Clone returns a deep copy of the alignment, so the caller can clip
// and rewrite it without touching the original record.
func (aln *Alignment) Clone() *Alignment {
	clone := *aln
	clone.CIGAR = append([]CigarOperation(nil), aln.CIGAR...)
	clone.QUAL = append([]byte(nil), aln.QUAL...)
	return &clone
}

// CoordinateLess compares two alignments by (RNAME, POS).
func CoordinateLess(aln1, aln2 *Alignment) bool {
	if aln1.RNAME != aln2.RNAME {
		return aln1.RNAME < aln2.RNAME
	}
	return aln1.POS < aln2.POS
}

type (
	// By is a comparison predicate on alignments.
	By func(aln1, aln2 *Alignment) bool

	// AlignmentSorter sorts a slice of alignments by a By predicate.
	AlignmentSorter struct {
		alns []*Alignment
		by   By
	}
)

// SequentialSort implements the psort.StableSorter interface.
func (s AlignmentSorter) SequentialSort(i, j int) {
	alns, by := s.alns[i:j], s.by
	sort.SliceStable(alns, func(i, j int) bool {
		return by(alns[i], alns[j])
	})
}

// NewTemp implements the psort.StableSorter interface.
func (s AlignmentSorter) NewTemp() psort.StableSorter {
	return AlignmentSorter{make([]*Alignment, len(s.alns)), s.by}
}

// Len implements the psort.StableSorter interface.
func (s AlignmentSorter) Len() int {
	return len(s.alns)
}

// Less implements the psort.StableSorter interface.
func (s AlignmentSorter) Less(i, j int) bool {
	return s.by(s.alns[i], s.alns[j])
}

// Assign implements the psort.StableSorter interface.
func (s AlignmentSorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s.alns, p.(AlignmentSorter).alns
	return func(i, j, len int) {
		for k := 0; k < len; k++ {
			dst[i+k] = src[j+k]
		}
	}
}

// ParallelStableSort sorts a slice of alignments by the By predicate.
func (by By) ParallelStableSort(alns []*Alignment) {
	psort.StableSort(AlignmentSorter{alns, by})
}

// Sam represents the contents of a SAM file.
type Sam struct {
	Alignments []*Alignment
}
