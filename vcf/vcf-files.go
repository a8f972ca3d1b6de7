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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/halcyon-genomics/halcyon/internal"
)

// The supported VCF file format version.
const FileFormatVersionLine = "##fileformat=VCFv4.2"

var headerFormatLines = []string{
	`##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype Quality">`,
	`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
}

var headerColumns = []string{
	"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT",
}

// OutputFile represents a VCF file open for writing.
type OutputFile struct {
	file   *os.File
	Writer *bufio.Writer
}

// Create opens a VCF file for writing and writes the header for the
// given sample.
func Create(name, sampleName string) *OutputFile {
	file := internal.FileCreate(name)
	writer := bufio.NewWriter(file)
	fmt.Fprintln(writer, FileFormatVersionLine)
	for _, line := range headerFormatLines {
		fmt.Fprintln(writer, line)
	}
	fmt.Fprintf(writer, "%s\t%s\n", strings.Join(headerColumns, "\t"), sampleName)
	return &OutputFile{file: file, Writer: writer}
}

// Close flushes and closes a VCF output file.
func (f *OutputFile) Close() {
	if err := f.Writer.Flush(); err != nil {
		internal.Close(f.file)
		panic(err)
	}
	internal.Close(f.file)
}
