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
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/halcyon-genomics/halcyon/intervals"
	"github.com/halcyon-genomics/halcyon/vcf"
)

const (
	spanDel            = "*"
	alleleExtension    = 2
	maxGenotypeQuality = 99
	minGenotypeQuality = 10
)

// processCigarForInitialEvents walks a haplotype cigar against the
// window reference and fills the haplotype's event map, keyed by the
// absolute reference begin of each event.
func processCigarForInitialEvents(h *haplotype, ref string, paddedRegion intervals.Interval) error {
	contig := paddedRegion.Contig
	paddedBegin := paddedRegion.Start
	refPos := h.location
	hapPos := int32(0)
	h.events = make(map[int32]*vcf.Variant)

	addEvent := func(begin int32, event *vcf.Variant) {
		if _, found := h.events[begin]; !found {
			h.events[begin] = event
		}
	}

	for _, ce := range h.cigar {
		switch ce.Operation {
		case 'M':
			for offset := int32(0); offset < ce.Length; offset++ {
				if ref[refPos+offset] != h.bases[hapPos+offset] {
					begin := paddedBegin + refPos + offset
					addEvent(begin, &vcf.Variant{
						Location: intervals.Interval{Contig: contig, Start: begin, End: begin + 1},
						Ref:      ref[refPos+offset : refPos+offset+1],
						Alt:      h.bases[hapPos+offset : hapPos+offset+1],
					})
				}
			}
			refPos += ce.Length
			hapPos += ce.Length
		case 'I':
			if refPos > 0 {
				begin := paddedBegin + refPos - 1
				refAllele := ref[refPos-1 : refPos]
				addEvent(begin, &vcf.Variant{
					Location: intervals.Interval{Contig: contig, Start: begin, End: begin + 1},
					Ref:      refAllele,
					Alt:      refAllele + h.bases[hapPos:hapPos+ce.Length],
				})
			}
			hapPos += ce.Length
		case 'D':
			if refPos > 0 {
				begin := paddedBegin + refPos - 1
				addEvent(begin, &vcf.Variant{
					Location: intervals.Interval{Contig: contig, Start: begin, End: begin + ce.Length + 1},
					Ref:      ref[refPos-1 : refPos+ce.Length],
					Alt:      ref[refPos-1 : refPos],
				})
			}
			refPos += ce.Length
		case 'S':
			hapPos += ce.Length
		default:
			return fmt.Errorf("unsupported cigar operation %c created during SW alignment", ce.Operation)
		}
	}
	return nil
}

// getOverlappingEvents returns the events of a haplotype whose
// interval covers begin, in event-begin order.
func getOverlappingEvents(h *haplotype, begin int32) []*vcf.Variant {
	var keys []int32
	for key := range h.events {
		if key <= begin && h.events[key].Location.End > begin {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	events := make([]*vcf.Variant, 0, len(keys))
	for _, key := range keys {
		events = append(events, h.events[key])
	}
	return events
}

func eventEqual(v1, v2 *vcf.Variant) bool {
	return v1.Location == v2.Location && v1.Ref == v2.Ref && v1.Alt == v2.Alt
}

// getEventsFromHaplotypes collects the unique events at a locus across
// all haplotypes, ordered by (location, REF, ALT).
func getEventsFromHaplotypes(begin int32, haplotypes []*haplotype) []*vcf.Variant {
	var events []*vcf.Variant
	for _, h := range haplotypes {
		events = append(events, getOverlappingEvents(h, begin)...)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Less(events[j]) })
	unique := events[:0]
	for _, event := range events {
		if len(unique) == 0 || !eventEqual(unique[len(unique)-1], event) {
			unique = append(unique, event)
		}
	}
	return unique
}

// replaceSpanDels replaces upstream deletions spanning this locus by
// the placeholder '*' allele.
func replaceSpanDels(events []*vcf.Variant, refAllele string, contig string, begin int32) {
	var replacement *vcf.Variant
	for i, event := range events {
		if event.Location.Start != begin {
			if replacement == nil {
				replacement = &vcf.Variant{
					Location: intervals.Interval{Contig: contig, Start: begin, End: begin + 1},
					Ref:      refAllele,
					Alt:      spanDel,
				}
			}
			events[i] = replacement
		}
	}
}

func getCompatibleAlternateAllele(refAllele string, event *vcf.Variant) string {
	if event.Alt == spanDel {
		return spanDel
	}
	return event.Alt + refAllele[len(event.Ref):]
}

// getCompatibleAlleles normalizes the events at a locus to a common
// reference span and returns the allele list (reference first, unique
// alternates sorted) plus the location of the longest event.
func getCompatibleAlleles(events []*vcf.Variant) ([]string, intervals.Interval) {
	refAllele := events[0].Ref
	for _, event := range events[1:] {
		if len(event.Ref) > len(refAllele) {
			refAllele = event.Ref
		}
	}
	longestEvent := events[0]
	altSet := make(map[string]bool)
	for _, event := range events {
		if event.Location.Size() > longestEvent.Location.Size() {
			longestEvent = event
		}
		if event.Ref == refAllele {
			altSet[event.Alt] = true
		} else {
			altSet[getCompatibleAlternateAllele(refAllele, event)] = true
		}
	}
	alts := make([]string, 0, len(altSet))
	for alt := range altSet {
		alts = append(alts, alt)
	}
	sort.Strings(alts)
	return append([]string{refAllele}, alts...), longestEvent.Location
}

func alleleIndex(alleles []string, allele string) int {
	for i, a := range alleles {
		if a == allele {
			return i
		}
	}
	return -1
}

// getHaplotypeMapper maps each haplotype rank to the allele index it
// supports at this locus; haplotypes without an event map to the
// reference allele.
func getHaplotypeMapper(alleles []string, begin int32, haplotypes []*haplotype) []int {
	refAllele := alleles[0]
	haplotypeMapper := make([]int, len(haplotypes))
	for _, h := range haplotypes {
		for _, event := range getOverlappingEvents(h, begin) {
			var index int
			switch {
			case event.Location.Start != begin:
				index = alleleIndex(alleles, spanDel)
			case len(event.Ref) == len(refAllele):
				index = alleleIndex(alleles, event.Alt)
			default:
				index = alleleIndex(alleles, getCompatibleAlternateAllele(refAllele, event))
			}
			if index > haplotypeMapper[h.rank] {
				haplotypeMapper[h.rank] = index
			}
		}
	}
	return haplotypeMapper
}

// marginalize reduces the reads x haplotypes likelihood matrix to a
// reads x alleles matrix, keeping only reads that overlap the allele
// span.
func marginalize(likelihoods readLikelihoods, haplotypeMapper []int, alleleCount int, overlap intervals.Interval) [][]float64 {
	negInf := math.Inf(-1)
	var alleleLikelihoods [][]float64
	for r, aln := range likelihoods.alns {
		if !aln.Interval().Overlaps(overlap) {
			continue
		}
		row := make([]float64, alleleCount)
		for a := range row {
			row[a] = negInf
		}
		for h, alleleIndex := range haplotypeMapper {
			if likelihood := likelihoods.values[r][h]; likelihood > row[alleleIndex] {
				row[alleleIndex] = likelihood
			}
		}
		alleleLikelihoods = append(alleleLikelihoods, row)
	}
	return alleleLikelihoods
}

// calculateGenotypeLikelihoods computes the diploid genotype log10
// likelihood vector over the unordered genotypes of alleleCount
// alleles, in VCF genotype order.
func calculateGenotypeLikelihoods(alleleLikelihoods [][]float64, alleleCount int) []float64 {
	genotypeLikelihoods := make([]float64, 0, alleleCount*(alleleCount+1)/2)
	denominator := float64(len(alleleLikelihoods)) * log10Ploidy
	for a1 := 0; a1 < alleleCount; a1++ {
		for a2 := a1; a2 < alleleCount; a2++ {
			var gl float64
			if a1 == a2 {
				for _, likelihoods := range alleleLikelihoods {
					gl += likelihoods[a1] + log10Ploidy
				}
			} else {
				for _, likelihoods := range alleleLikelihoods {
					gl += approximateLog10SumLog10(likelihoods[a1], likelihoods[a2])
				}
			}
			genotypeLikelihoods = append(genotypeLikelihoods, gl-denominator)
		}
	}
	return genotypeLikelihoods
}

// genotypeQualityAndIndex returns the index of the most likely
// genotype and the phred-scaled distance to the runner-up.
func genotypeQualityAndIndex(genotypeLikelihoods []float64) (int, int) {
	var max, secondMax float64
	var maxIndex int
	if genotypeLikelihoods[0] > genotypeLikelihoods[1] {
		max, secondMax = genotypeLikelihoods[0], genotypeLikelihoods[1]
	} else {
		max, secondMax = genotypeLikelihoods[1], genotypeLikelihoods[0]
		maxIndex = 1
	}
	for i := 2; i < len(genotypeLikelihoods); i++ {
		if gl := genotypeLikelihoods[i]; gl >= max {
			secondMax = max
			max = gl
			maxIndex = i
		} else if gl > secondMax {
			secondMax = gl
		}
	}
	quality := int(math.Round(-10 * (secondMax - max)))
	if quality > maxGenotypeQuality {
		quality = maxGenotypeQuality
	}
	return maxIndex, quality
}

// assignGenotypeLikelihoods scans the event loci of a window,
// marginalizes the read likelihoods over the alleles at each locus,
// and emits the variants with a confident non-reference genotype.
func (hc *HaplotypeCaller) assignGenotypeLikelihoods(haplotypes []*haplotype, likelihoods readLikelihoods, ref string, paddedRegion, originRegion intervals.Interval) ([]*vcf.Variant, error) {
	eventBegins := make(map[int32]bool)
	for rank, h := range haplotypes {
		h.rank = rank
		if err := processCigarForInitialEvents(h, ref, paddedRegion); err != nil {
			return nil, err
		}
		for begin := range h.events {
			eventBegins[begin] = true
		}
	}
	sortedBegins := make([]int32, 0, len(eventBegins))
	for begin := range eventBegins {
		sortedBegins = append(sortedBegins, begin)
	}
	sort.Slice(sortedBegins, func(i, j int) bool { return sortedBegins[i] < sortedBegins[j] })

	var variants []*vcf.Variant
	for _, begin := range sortedBegins {
		if begin < originRegion.Start || begin >= originRegion.End {
			continue
		}
		events := getEventsFromHaplotypes(begin, haplotypes)
		refAllele := ref[begin-paddedRegion.Start : begin-paddedRegion.Start+1]
		replaceSpanDels(events, refAllele, paddedRegion.Contig, begin)
		alleles, allelesLoc := getCompatibleAlleles(events)
		alleleCount := len(alleles)
		if alleleCount > maxAlleleCount {
			log.Printf("skipping %v with too many alleles (%v)", allelesLoc, alleleCount)
			continue
		}
		haplotypeMapper := getHaplotypeMapper(alleles, begin, haplotypes)
		alleleLikelihoods := marginalize(likelihoods, haplotypeMapper, alleleCount, allelesLoc.Expand(alleleExtension))
		genotypeLikelihoods := calculateGenotypeLikelihoods(alleleLikelihoods, alleleCount)
		genotypeIndex, genotypeQuality := genotypeQualityAndIndex(genotypeLikelihoods)
		if genotypeIndex == 0 || genotypeQuality < minGenotypeQuality {
			continue
		}
		genotype := alleleIndexCache[alleleCount][genotypeIndex]
		variants = append(variants, &vcf.Variant{
			Location: allelesLoc,
			Ref:      alleles[0],
			Alt:      alleles[1],
			Alleles:  alleles,
			GT:       genotype,
			GQ:       genotypeQuality,
		})
	}
	return variants, nil
}
