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
	"bufio"
	"log"
	"strings"

	"github.com/halcyon-genomics/halcyon/internal"
)

// the mandatory positional fields of a SAM record
const (
	qnameField = iota
	flagField
	rnameField
	posField
	mapqField
	cigarField
	rnextField
	pnextField
	tlenField
	seqField
	qualField
	nofRequiredFields
)

// ParseAlignment parses a single tab-separated SAM record line.
// Optional fields after QUAL are ignored.
func ParseAlignment(line string) *Alignment {
	fields := strings.Split(line, "\t")
	if len(fields) < nofRequiredFields {
		log.Panicf("invalid SAM record with %v fields: %v", len(fields), line)
	}
	cigar, err := ScanCigarString(fields[cigarField])
	if err != nil {
		log.Panic(err)
	}
	return &Alignment{
		QNAME: fields[qnameField],
		FLAG:  uint16(internal.ParseUint(fields[flagField], 10, 16)),
		RNAME: fields[rnameField],
		POS:   int32(internal.ParseUint(fields[posField], 10, 32)),
		MAPQ:  byte(internal.ParseUint(fields[mapqField], 10, 8)),
		CIGAR: cigar,
		RNEXT: fields[rnextField],
		PNEXT: int32(internal.ParseUint(fields[pnextField], 10, 32)),
		TLEN:  int32(internal.ParseInt(fields[tlenField], 10, 32)),
		SEQ:   fields[seqField],
		QUAL:  []byte(fields[qualField]),
	}
}

// ParseSam reads aligned reads from a SAM text file. Lines starting
// with '@' form the header and are skipped.
func ParseSam(filename string) *Sam {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	result := new(Sam)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '@' {
			continue
		}
		result.Alignments = append(result.Alignments, ParseAlignment(line))
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	return result
}
