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

package fasta

import (
	"bufio"
	"fmt"
	"log"
	"strings"

	"github.com/halcyon-genomics/halcyon/internal"
)

var toUpperAndNTable = [256]byte{}

func init() {
	for i := range toUpperAndNTable {
		toUpperAndNTable[i] = 'N'
	}
	for _, c := range []byte("ACGT") {
		toUpperAndNTable[c] = c
		toUpperAndNTable[c+'a'-'A'] = c
	}
}

// ToUpperAndN uppercases a nucleotide and maps ambiguity codes to 'N'.
func ToUpperAndN(base byte) byte {
	return toUpperAndNTable[base]
}

// Fasta is a single-contig reference sequence.
type Fasta struct {
	Name    string
	Comment string
	Seq     []byte
}

// ParseFasta reads a reference contig from a FASTA file. The sequence
// is uppercase-normalized, with ambiguity codes mapped to 'N'.
func ParseFasta(filename string) (*Fasta, error) {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	result := new(Fasta)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty FASTA file %v", filename)
	}
	header := scanner.Text()
	if len(header) == 0 || header[0] != '>' {
		return nil, fmt.Errorf("malformed FASTA header in %v: %v", filename, header)
	}
	nameAndComment := strings.SplitN(strings.TrimSpace(header[1:]), " ", 2)
	result.Name = nameAndComment[0]
	if len(nameAndComment) > 1 {
		result.Comment = nameAndComment[1]
	}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) > 0 && line[0] == '>' {
			break
		}
		for _, base := range line {
			result.Seq = append(result.Seq, ToUpperAndN(base))
		}
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	return result, nil
}
