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
	"strings"
	"testing"

	"github.com/halcyon-genomics/halcyon/sam"
)

func randomBases(random *rand.Rand, length int) string {
	var bases strings.Builder
	for i := 0; i < length; i++ {
		bases.WriteByte("ACGT"[random.Intn(4)])
	}
	return bases.String()
}

func uniformQuals(length int, qual byte) []byte {
	quals := make([]byte, length)
	for i := range quals {
		quals[i] = qual
	}
	return quals
}

func makeTestRead(seq string, mapq byte) *sam.Alignment {
	cigar, _ := sam.ScanCigarString("")
	return &sam.Alignment{
		QNAME: "read",
		RNAME: "chr1",
		POS:   1,
		MAPQ:  mapq,
		CIGAR: cigar,
		RNEXT: "=",
		SEQ:   seq,
		QUAL:  uniformQuals(len(seq), 'I'),
	}
}

func TestComputeReadLikelihoods(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	refBases := randomBases(random, 120)
	altBases := refBases[:60] + string(flipBase(refBases[60])) + refBases[61:]
	haplotypes := []*haplotype{
		{bases: refBases},
		{bases: altBases},
	}

	matching := makeTestRead(refBases[30:90], 60)
	likelihoods := computeReadLikelihoods(haplotypes, []*sam.Alignment{matching})
	if len(likelihoods.alns) != 1 {
		t.Fatal("matching read was dropped")
	}
	row := likelihoods.values[0]
	if row[0] > 0 || row[1] > 0 {
		t.Errorf("likelihoods %v not bounded by 0", row)
	}
	if row[0] <= row[1] {
		t.Errorf("matching haplotype not preferred: %v", row)
	}
	if row[1] < row[0]+maximumBestAltLikelihoodDifference {
		t.Errorf("row %v not clamped at best%v", row, maximumBestAltLikelihoodDifference)
	}
}

func TestComputeReadLikelihoodsDropsPoorReads(t *testing.T) {
	random := rand.New(rand.NewSource(2))
	refBases := randomBases(random, 120)
	haplotypes := []*haplotype{{bases: refBases}}

	matching := makeTestRead(refBases[20:80], 60)
	var garbage strings.Builder
	for i := 0; i < 60; i++ {
		garbage.WriteByte(flipBase(refBases[20+i]))
	}
	poor := makeTestRead(garbage.String(), 60)
	poor.QNAME = "poor"

	likelihoods := computeReadLikelihoods(haplotypes, []*sam.Alignment{matching, poor})
	if len(likelihoods.alns) != 1 || likelihoods.alns[0].QNAME != "read" {
		t.Fatalf("poorly modeled read not dropped: %v reads remain", len(likelihoods.alns))
	}
	if len(likelihoods.values) != 1 {
		t.Fatal("likelihood rows out of sync with reads")
	}
}

func TestModifyReadQualities(t *testing.T) {
	read := makeTestRead("ACGTACGTACGTACGTACGTACGTACGT", 10)
	modifyReadQualities(read)
	for _, qual := range read.QUAL {
		if qual > 10+asciiOffset {
			t.Fatalf("quality %v not capped by MAPQ", qual)
		}
	}
}

func flipBase(base byte) byte {
	switch base {
	case 'A':
		return 'C'
	case 'C':
		return 'G'
	case 'G':
		return 'T'
	default:
		return 'A'
	}
}
