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
	"strconv"

	"github.com/halcyon-genomics/halcyon/intervals"
)

// Variant is a single variant. During genotyping, Ref and Alt describe
// one event on one haplotype; for emitted records, Alleles, GT and GQ
// are filled in as well, with Alleles[0] the reference allele.
type Variant struct {
	Location intervals.Interval
	Ref      string
	Alt      string
	Alleles  []string
	GT       [2]int
	GQ       int
}

// Less orders variants by (contig, begin, REF, ALT).
func (v *Variant) Less(other *Variant) bool {
	if v.Location.Contig != other.Location.Contig {
		return v.Location.Contig < other.Location.Contig
	}
	if v.Location.Start != other.Location.Start {
		return v.Location.Start < other.Location.Start
	}
	if v.Ref != other.Ref {
		return v.Ref < other.Ref
	}
	return v.Alt < other.Alt
}

// Format appends the VCF line for an emitted variant to buf, without a
// trailing newline.
func (v *Variant) Format(buf []byte) []byte {
	buf = append(buf, v.Location.Contig...)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(v.Location.Start)+1, 10)
	buf = append(buf, "\t.\t"...)
	buf = append(buf, v.Alleles[0]...)
	buf = append(buf, '\t')
	for i := 1; i < len(v.Alleles); i++ {
		if i > 1 {
			buf = append(buf, ',')
		}
		buf = append(buf, v.Alleles[i]...)
	}
	buf = append(buf, "\t.\t.\t.\tGT:GQ\t"...)
	buf = strconv.AppendInt(buf, int64(v.GT[0]), 10)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(v.GT[1]), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(v.GQ), 10)
	return buf
}
