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

package vcf

import (
	"testing"

	"github.com/halcyon-genomics/halcyon/intervals"
)

func TestVariantFormat(t *testing.T) {
	variant := &Variant{
		Location: intervals.Interval{Contig: "chr1", Start: 150, End: 151},
		Alleles:  []string{"T", "G"},
		GT:       [2]int{1, 1},
		GQ:       99,
	}
	expected := "chr1\t151\t.\tT\tG\t.\t.\t.\tGT:GQ\t1/1:99"
	if line := string(variant.Format(nil)); line != expected {
		t.Errorf("unexpected VCF line %q", line)
	}
	multi := &Variant{
		Location: intervals.Interval{Contig: "chr1", Start: 10, End: 13},
		Alleles:  []string{"TCA", "GCA", "T"},
		GT:       [2]int{1, 2},
		GQ:       30,
	}
	expected = "chr1\t11\t.\tTCA\tGCA,T\t.\t.\t.\tGT:GQ\t1/2:30"
	if line := string(multi.Format(nil)); line != expected {
		t.Errorf("unexpected VCF line %q", line)
	}
}

func TestVariantLess(t *testing.T) {
	v1 := &Variant{Location: intervals.Interval{Contig: "chr1", Start: 10, End: 11}, Ref: "A", Alt: "C"}
	v2 := &Variant{Location: intervals.Interval{Contig: "chr1", Start: 10, End: 11}, Ref: "A", Alt: "G"}
	v3 := &Variant{Location: intervals.Interval{Contig: "chr1", Start: 12, End: 13}, Ref: "A", Alt: "C"}
	v4 := &Variant{Location: intervals.Interval{Contig: "chr2", Start: 1, End: 2}, Ref: "A", Alt: "C"}
	if !v1.Less(v2) || v2.Less(v1) {
		t.Error("variants not ordered by ALT")
	}
	if !v2.Less(v3) {
		t.Error("variants not ordered by position")
	}
	if !v3.Less(v4) {
		t.Error("variants not ordered by contig")
	}
}
