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
	"math/rand"
	"testing"

	"github.com/halcyon-genomics/halcyon/sam"
)

func newTestCaller() *HaplotypeCaller {
	return NewHaplotypeCaller(DefaultWindowSize, DefaultPadding, DefaultMaxReadsPerWindow, DefaultRandomSeed)
}

// snvReads makes reads of the given length tiling the mutated
// reference, one read per start position in [firstStart, lastStart].
func snvReads(mutated string, firstStart, lastStart, length int) []*sam.Alignment {
	var alns []*sam.Alignment
	for start := firstStart; start <= lastStart; start++ {
		cigar := []sam.CigarOperation{{Length: int32(length), Operation: 'M'}}
		alns = append(alns, &sam.Alignment{
			QNAME: "read",
			RNAME: "chr1",
			POS:   int32(start) + 1,
			MAPQ:  60,
			CIGAR: cigar,
			RNEXT: "=",
			SEQ:   mutated[start : start+length],
			QUAL:  uniformQuals(length, 'I'),
		})
	}
	return alns
}

func TestDupKmersInSequence(t *testing.T) {
	if dup := dupKmersInSequence("ACGTACGTA", 4); len(dup) != 2 {
		t.Errorf("unexpected duplicate kmers %v", dup)
	}
	random := rand.New(rand.NewSource(3))
	ref := randomBases(random, 200)
	if dup := dupKmersInSequence(ref, 25); len(dup) != 0 {
		t.Errorf("random reference unexpectedly contains duplicate 25-mers %v", dup)
	}
}

func TestAssembleReferenceOnly(t *testing.T) {
	random := rand.New(rand.NewSource(3))
	ref := randomBases(random, 200)
	hc := newTestCaller()
	haplotypes := hc.assembleReads(nil, ref)
	if len(haplotypes) != 1 {
		t.Fatalf("expected only the reference haplotype, got %v", len(haplotypes))
	}
	h := haplotypes[0]
	if h.bases != ref {
		t.Error("reference haplotype does not match the reference")
	}
	if h.location != 0 || sam.CigarString(h.cigar) != "200M" {
		t.Errorf("unexpected reference haplotype alignment (%v, %v)", h.location, sam.CigarString(h.cigar))
	}
	if h.score != 0 {
		t.Errorf("unexpected reference haplotype score %v", h.score)
	}
}

func TestAssembleSNV(t *testing.T) {
	random := rand.New(rand.NewSource(4))
	ref := randomBases(random, 200)
	mutated := ref[:100] + string(flipBase(ref[100])) + ref[101:]
	alns := snvReads(mutated, 50, 80, 60)

	hc := newTestCaller()
	haplotypes := hc.assembleReads(alns, ref)
	if len(haplotypes) != 2 {
		t.Fatalf("expected reference and alternate haplotypes, got %v", len(haplotypes))
	}
	var foundRef, foundAlt bool
	for _, h := range haplotypes {
		switch h.bases {
		case ref:
			foundRef = true
		case mutated:
			foundAlt = true
		}
		if h.location != 0 || sam.CigarString(h.cigar) != "200M" {
			t.Errorf("unexpected haplotype alignment (%v, %v)", h.location, sam.CigarString(h.cigar))
		}
		if h.score > 0 {
			t.Errorf("haplotype score %v not bounded by 0", h.score)
		}
	}
	if !foundRef || !foundAlt {
		t.Error("expected haplotypes not found")
	}
}

func TestSourceAndSinkIndependentOfReadOrder(t *testing.T) {
	random := rand.New(rand.NewSource(5))
	ref := randomBases(random, 200)
	mutated := ref[:100] + string(flipBase(ref[100])) + ref[101:]
	alns := snvReads(mutated, 50, 80, 60)

	buildGraph := func(alns []*sam.Alignment) *kmerGraph {
		var segments []string
		for _, aln := range alns {
			segments = addReadSegments(segments, aln, 25)
		}
		graph := newKmerGraph(25)
		graph.addDupKmers(ref)
		for _, segment := range segments {
			graph.addDupKmers(segment)
		}
		graph.addSequence(ref, true)
		for _, segment := range segments {
			graph.addSequence(segment, false)
		}
		return graph
	}

	reversed := make([]*sam.Alignment, len(alns))
	for i, aln := range alns {
		reversed[len(alns)-1-i] = aln
	}
	graph1 := buildGraph(alns)
	graph2 := buildGraph(reversed)
	if graph1.vertices[graph1.source].kmer != graph2.vertices[graph2.source].kmer {
		t.Error("source differs across read orderings")
	}
	if graph1.vertices[graph1.sink].kmer != graph2.vertices[graph2.sink].kmer {
		t.Error("sink differs across read orderings")
	}
	if graph1.vertices[graph1.source].kmer != ref[:25] {
		t.Error("source is not the first reference kmer")
	}
	if graph1.vertices[graph1.sink].kmer != ref[len(ref)-25:] {
		t.Error("sink is not the last reference kmer")
	}
}

func TestAssembleRejectsShortReference(t *testing.T) {
	hc := newTestCaller()
	if haplotypes := hc.assembleReads(nil, "ACGTACGT"); len(haplotypes) != 0 {
		t.Errorf("expected no haplotypes for a reference shorter than every kmer size, got %v", len(haplotypes))
	}
}

func TestAddReadSegments(t *testing.T) {
	seq := "ACGTACGTACGTNACGTACGTACGTACGTACGT"
	quals := uniformQuals(len(seq), 'I')
	aln := &sam.Alignment{SEQ: seq, QUAL: quals}
	segments := addReadSegments(nil, aln, 20)
	if len(segments) != 1 || segments[0] != seq[13:] {
		t.Errorf("unexpected segments %v", segments)
	}
	// low-quality bases split segments like N bases do
	quals[20] = minBaseQualityToUse - 1
	segments = addReadSegments(nil, aln, 5)
	if len(segments) != 3 {
		t.Errorf("unexpected segments %v", segments)
	}
}
