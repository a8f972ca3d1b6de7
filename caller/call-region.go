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
	"log"
	"sort"

	"github.com/halcyon-genomics/halcyon/intervals"
	"github.com/halcyon-genomics/halcyon/sam"
	"github.com/halcyon-genomics/halcyon/vcf"
)

// revertSoftClippedBases turns the aligned-side soft clip of a read
// back into matching bases and hard-clips the far-side soft clip. For
// a forward-strand read the aligned side is the front; for a
// reverse-strand read it is the back. A forward-strand front clip
// that would move POS before the contig start is hard-clipped instead.
func revertSoftClippedBases(aln *sam.Alignment) {
	if len(aln.CIGAR) == 0 {
		return
	}
	if front := aln.CIGAR[0]; front.Operation == 'S' {
		if !aln.IsReversed() && aln.POS-front.Length >= 1 {
			aln.POS -= front.Length
			aln.CIGAR[0].Operation = 'M'
		} else {
			aln.SEQ = aln.SEQ[front.Length:]
			aln.QUAL = aln.QUAL[front.Length:]
			aln.CIGAR = aln.CIGAR[1:]
		}
	}
	if len(aln.CIGAR) == 0 {
		return
	}
	if back := aln.CIGAR[len(aln.CIGAR)-1]; back.Operation == 'S' {
		if aln.IsReversed() {
			aln.CIGAR[len(aln.CIGAR)-1].Operation = 'M'
		} else {
			aln.SEQ = aln.SEQ[:int32(len(aln.SEQ))-back.Length]
			aln.QUAL = aln.QUAL[:int32(len(aln.QUAL))-back.Length]
			aln.CIGAR = aln.CIGAR[:len(aln.CIGAR)-1]
		}
	}
	mergeMatchRuns(aln)
}

func mergeMatchRuns(aln *sam.Alignment) {
	cigar := aln.CIGAR
	for i := 1; i < len(cigar); {
		if cigar[i-1].Operation == cigar[i].Operation {
			cigar[i-1].Length += cigar[i].Length
			cigar = append(cigar[:i], cigar[i+1:]...)
		} else {
			i++
		}
	}
	aln.CIGAR = cigar
}

// clipFrontByReference removes the first refBases reference positions
// from the alignment, dropping the read bases that map to them.
func clipFrontByReference(aln *sam.Alignment, refBases int32) {
	var readClip int32
	aln.POS += refBases
	cigar := aln.CIGAR
	for len(cigar) > 0 && refBases > 0 {
		op := cigar[0]
		switch op.Operation {
		case 'M', '=', 'X':
			clipped := minInt32(op.Length, refBases)
			readClip += clipped
			refBases -= clipped
			if clipped == op.Length {
				cigar = cigar[1:]
			} else {
				cigar[0].Length -= clipped
			}
		case 'D', 'N':
			clipped := minInt32(op.Length, refBases)
			refBases -= clipped
			if clipped == op.Length {
				cigar = cigar[1:]
			} else {
				cigar[0].Length -= clipped
			}
		case 'I', 'S':
			readClip += op.Length
			cigar = cigar[1:]
		default:
			cigar = cigar[1:]
		}
	}
	// the clip may land just before a deletion or insertion
	for len(cigar) > 0 {
		if op := cigar[0]; op.Operation == 'D' || op.Operation == 'N' {
			aln.POS += op.Length
			cigar = cigar[1:]
		} else if op.Operation == 'I' {
			readClip += op.Length
			cigar = cigar[1:]
		} else {
			break
		}
	}
	aln.SEQ = aln.SEQ[readClip:]
	aln.QUAL = aln.QUAL[readClip:]
	aln.CIGAR = cigar
}

// clipBackByReference removes the last refBases reference positions
// from the alignment.
func clipBackByReference(aln *sam.Alignment, refBases int32) {
	var readClip int32
	cigar := aln.CIGAR
	for len(cigar) > 0 && refBases > 0 {
		op := cigar[len(cigar)-1]
		switch op.Operation {
		case 'M', '=', 'X':
			clipped := minInt32(op.Length, refBases)
			readClip += clipped
			refBases -= clipped
			if clipped == op.Length {
				cigar = cigar[:len(cigar)-1]
			} else {
				cigar[len(cigar)-1].Length -= clipped
			}
		case 'D', 'N':
			clipped := minInt32(op.Length, refBases)
			refBases -= clipped
			if clipped == op.Length {
				cigar = cigar[:len(cigar)-1]
			} else {
				cigar[len(cigar)-1].Length -= clipped
			}
		case 'I', 'S':
			readClip += op.Length
			cigar = cigar[:len(cigar)-1]
		default:
			cigar = cigar[:len(cigar)-1]
		}
	}
	for len(cigar) > 0 {
		if op := cigar[len(cigar)-1]; op.Operation == 'D' || op.Operation == 'N' {
			cigar = cigar[:len(cigar)-1]
		} else if op.Operation == 'I' {
			readClip += op.Length
			cigar = cigar[:len(cigar)-1]
		} else {
			break
		}
	}
	aln.SEQ = aln.SEQ[:int32(len(aln.SEQ))-readClip]
	aln.QUAL = aln.QUAL[:int32(len(aln.QUAL))-readClip]
	aln.CIGAR = cigar
}

// hardClipToInterval clips a read to the given reference interval.
func hardClipToInterval(aln *sam.Alignment, interval intervals.Interval) {
	if begin := aln.Begin(); begin < interval.Start {
		clipFrontByReference(aln, interval.Start-begin)
	}
	if end := aln.End(); end > interval.End {
		clipBackByReference(aln, end-interval.End)
	}
}

// prepareWindowReads applies the external read filters, reverts soft
// clips, clips to the padded window, and drops too-short reads.
func prepareWindowReads(alns []*sam.Alignment, paddedRegion intervals.Interval) []*sam.Alignment {
	alns = sam.ApplyFilters(alns,
		sam.FilterMappingQuality,
		sam.FilterDuplicate,
		sam.FilterSecondary,
		sam.FilterMateOnSameContig,
	)
	for _, aln := range alns {
		revertSoftClippedBases(aln)
		hardClipToInterval(aln, paddedRegion)
	}
	return sam.ApplyFilters(alns, sam.FilterMinimumLength)
}

// callWindow runs the per-window pipeline: assembly, pair-HMM, and
// genotyping. A window that cannot be called yields zero variants.
func (hc *HaplotypeCaller) callWindow(alns []*sam.Alignment, windowRef string, paddedRegion, originRegion intervals.Interval) ([]*vcf.Variant, error) {
	alns = prepareWindowReads(alns, paddedRegion)
	if len(alns) == 0 {
		log.Printf("ignoring %v (with overlap region %v)", originRegion, paddedRegion)
		return nil, nil
	}
	log.Printf("assembling %v with %v reads (with overlap region %v)", originRegion, len(alns), paddedRegion)

	haplotypes := hc.assembleReads(alns, windowRef)
	if len(haplotypes) <= 1 {
		return nil, nil
	}

	likelihoods := computeReadLikelihoods(haplotypes, alns)
	variants, err := hc.assignGenotypeLikelihoods(haplotypes, likelihoods, windowRef, paddedRegion, originRegion)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Less(variants[j]) })
	return variants, nil
}
