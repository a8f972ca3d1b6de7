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
	"testing"

	"github.com/halcyon-genomics/halcyon/intervals"
	"github.com/halcyon-genomics/halcyon/sam"
	"github.com/halcyon-genomics/halcyon/vcf"
)

func mustCigar(t *testing.T, s string) []sam.CigarOperation {
	t.Helper()
	cigar, err := sam.ScanCigarString(s)
	if err != nil {
		t.Fatal(err)
	}
	// ScanCigarString shares one slice between equal strings; tests
	// rewrite their cigars in place, so each gets its own copy
	return append([]sam.CigarOperation(nil), cigar...)
}

func TestProcessCigarForInitialEvents(t *testing.T) {
	//      0123456789
	ref := "ACGTACGTAC"
	h := &haplotype{
		bases:    "ATGTTTACTAC",
		location: 0,
		cigar:    mustCigar(t, "3M2I3M1D3M"),
	}
	paddedRegion := intervals.Interval{Contig: "chr1", Start: 1000, End: 1010}
	if err := processCigarForInitialEvents(h, ref, paddedRegion); err != nil {
		t.Fatal(err)
	}
	if len(h.events) != 3 {
		t.Fatalf("unexpected number of events %v", len(h.events))
	}

	snv, found := h.events[1001]
	if !found || snv.Ref != "C" || snv.Alt != "T" ||
		snv.Location != (intervals.Interval{Contig: "chr1", Start: 1001, End: 1002}) {
		t.Errorf("unexpected SNV event %+v", snv)
	}
	insertion, found := h.events[1002]
	if !found || insertion.Ref != "G" || insertion.Alt != "GTT" ||
		insertion.Location != (intervals.Interval{Contig: "chr1", Start: 1002, End: 1003}) {
		t.Errorf("unexpected insertion event %+v", insertion)
	}
	deletion, found := h.events[1005]
	if !found || deletion.Ref != "CG" || deletion.Alt != "C" ||
		deletion.Location != (intervals.Interval{Contig: "chr1", Start: 1005, End: 1007}) {
		t.Errorf("unexpected deletion event %+v", deletion)
	}
}

func TestProcessCigarUnsupportedOperation(t *testing.T) {
	h := &haplotype{
		bases:    "ACGTACGTAC",
		location: 0,
		cigar:    mustCigar(t, "5M5N"),
	}
	paddedRegion := intervals.Interval{Contig: "chr1", Start: 0, End: 10}
	if err := processCigarForInitialEvents(h, "ACGTACGTAC", paddedRegion); err == nil {
		t.Error("no error for unsupported cigar operation")
	}
}

func TestProcessCigarDeletion(t *testing.T) {
	//      0123456789
	ref := "ACGTACGTAC"
	h := &haplotype{
		bases:    "ACGTGTAC",
		location: 0,
		cigar:    mustCigar(t, "4M2D4M"),
	}
	paddedRegion := intervals.Interval{Contig: "chr1", Start: 0, End: 10}
	if err := processCigarForInitialEvents(h, ref, paddedRegion); err != nil {
		t.Fatal(err)
	}
	deletion, found := h.events[3]
	if !found || deletion.Ref != "TAC" || deletion.Alt != "T" ||
		deletion.Location != (intervals.Interval{Contig: "chr1", Start: 3, End: 6}) {
		t.Errorf("unexpected deletion event %+v", deletion)
	}
}

func TestGetCompatibleAlleles(t *testing.T) {
	loc := intervals.Interval{Contig: "chr1", Start: 10, End: 13}
	deletion := &vcf.Variant{Location: loc, Ref: "TCA", Alt: "T"}
	snv := &vcf.Variant{Location: intervals.Interval{Contig: "chr1", Start: 10, End: 11}, Ref: "T", Alt: "G"}
	alleles, allelesLoc := getCompatibleAlleles([]*vcf.Variant{snv, deletion})
	if len(alleles) != 3 || alleles[0] != "TCA" {
		t.Fatalf("unexpected alleles %v", alleles)
	}
	if alleles[1] != "GCA" || alleles[2] != "T" {
		t.Errorf("unexpected normalized alternates %v", alleles[1:])
	}
	if allelesLoc != loc {
		t.Errorf("unexpected alleles location %v", allelesLoc)
	}
}

func TestReplaceSpanDels(t *testing.T) {
	upstream := &vcf.Variant{
		Location: intervals.Interval{Contig: "chr1", Start: 8, End: 12},
		Ref:      "TACG", Alt: "T",
	}
	local := &vcf.Variant{
		Location: intervals.Interval{Contig: "chr1", Start: 10, End: 11},
		Ref:      "G", Alt: "A",
	}
	events := []*vcf.Variant{upstream, local}
	replaceSpanDels(events, "G", "chr1", 10)
	if events[0].Alt != spanDel || events[0].Ref != "G" || events[0].Location.Start != 10 {
		t.Errorf("spanning deletion not replaced: %+v", events[0])
	}
	if events[1] != local {
		t.Error("local event should not be replaced")
	}
}

func makeGenotypeTestInput(readCount int) ([]*haplotype, readLikelihoods) {
	//             0         1         2
	//             0123456789012345678901234
	ref := "ACGTACGTACGTACGTACGTACGTA"
	alt := ref[:12] + "G" + ref[13:]
	haplotypes := []*haplotype{
		{bases: ref, location: 0, cigar: []sam.CigarOperation{{Length: 25, Operation: 'M'}}},
		{bases: alt, location: 0, cigar: []sam.CigarOperation{{Length: 25, Operation: 'M'}}},
	}
	likelihoods := readLikelihoods{}
	for i := 0; i < readCount; i++ {
		likelihoods.alns = append(likelihoods.alns, &sam.Alignment{
			QNAME: "read",
			RNAME: "chr1",
			POS:   1,
			MAPQ:  60,
			CIGAR: []sam.CigarOperation{{Length: 25, Operation: 'M'}},
			RNEXT: "=",
			SEQ:   alt,
			QUAL:  uniformQuals(25, 'I'),
		})
		likelihoods.values = append(likelihoods.values, []float64{-8, -0.1})
	}
	return haplotypes, likelihoods
}

func TestAssignGenotypeLikelihoodsHomAlt(t *testing.T) {
	haplotypes, likelihoods := makeGenotypeTestInput(10)
	hc := newTestCaller()
	paddedRegion := intervals.Interval{Contig: "chr1", Start: 0, End: 25}
	originRegion := paddedRegion
	variants, err := hc.assignGenotypeLikelihoods(haplotypes, likelihoods, haplotypes[0].bases, paddedRegion, originRegion)
	if err != nil {
		t.Fatal(err)
	}
	if len(variants) != 1 {
		t.Fatalf("expected one variant, got %v", len(variants))
	}
	variant := variants[0]
	if variant.Location != (intervals.Interval{Contig: "chr1", Start: 12, End: 13}) {
		t.Errorf("unexpected variant location %v", variant.Location)
	}
	if len(variant.Alleles) != 2 || variant.Alleles[0] != "A" || variant.Alleles[1] != "G" {
		t.Errorf("unexpected alleles %v", variant.Alleles)
	}
	if variant.GT != [2]int{1, 1} {
		t.Errorf("unexpected genotype %v", variant.GT)
	}
	if variant.GQ != 30 {
		t.Errorf("unexpected genotype quality %v", variant.GQ)
	}
}

func TestAssignGenotypeLikelihoodsSkipsLowQuality(t *testing.T) {
	haplotypes, likelihoods := makeGenotypeTestInput(2)
	hc := newTestCaller()
	paddedRegion := intervals.Interval{Contig: "chr1", Start: 0, End: 25}
	variants, err := hc.assignGenotypeLikelihoods(haplotypes, likelihoods, haplotypes[0].bases, paddedRegion, paddedRegion)
	if err != nil {
		t.Fatal(err)
	}
	if len(variants) != 0 {
		t.Errorf("expected no variants with too few reads, got %v", len(variants))
	}
}

func TestAssignGenotypeLikelihoodsOutsideOrigin(t *testing.T) {
	haplotypes, likelihoods := makeGenotypeTestInput(10)
	hc := newTestCaller()
	paddedRegion := intervals.Interval{Contig: "chr1", Start: 0, End: 25}
	originRegion := intervals.Interval{Contig: "chr1", Start: 20, End: 25}
	variants, err := hc.assignGenotypeLikelihoods(haplotypes, likelihoods, haplotypes[0].bases, paddedRegion, originRegion)
	if err != nil {
		t.Fatal(err)
	}
	if len(variants) != 0 {
		t.Errorf("expected no variants outside the origin region, got %v", len(variants))
	}
}

func TestGenotypeQualityAndIndex(t *testing.T) {
	index, quality := genotypeQualityAndIndex([]float64{-80, -4, -1})
	if index != 2 {
		t.Errorf("unexpected genotype index %v", index)
	}
	if quality != 30 {
		t.Errorf("unexpected genotype quality %v", quality)
	}
	if _, quality := genotypeQualityAndIndex([]float64{-1, -1, -1}); quality != 0 {
		t.Errorf("unexpected genotype quality %v for flat likelihoods", quality)
	}
	if _, quality := genotypeQualityAndIndex([]float64{-100, 0, -100}); quality != maxGenotypeQuality {
		t.Errorf("genotype quality %v not capped", quality)
	}
}
