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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFasta(t *testing.T, contents string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "fasta-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	name := filepath.Join(dir, "ref.fasta")
	if err := ioutil.WriteFile(name, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestParseFasta(t *testing.T) {
	name := writeTempFasta(t, ">chr1 test contig\nacgtACGT\nrynACGT\n")
	fasta, err := ParseFasta(name)
	if err != nil {
		t.Fatal(err)
	}
	if fasta.Name != "chr1" {
		t.Errorf("unexpected contig name %v", fasta.Name)
	}
	if fasta.Comment != "test contig" {
		t.Errorf("unexpected comment %v", fasta.Comment)
	}
	if string(fasta.Seq) != "ACGTACGTNNNACGT" {
		t.Errorf("unexpected sequence %v", string(fasta.Seq))
	}
}

func TestParseFastaMalformedHeader(t *testing.T) {
	name := writeTempFasta(t, "chr1\nACGT\n")
	if _, err := ParseFasta(name); err == nil {
		t.Error("no error for malformed FASTA header")
	}
}

func TestToUpperAndN(t *testing.T) {
	for _, c := range []byte("ACGT") {
		if ToUpperAndN(c) != c {
			t.Errorf("unexpected mapping for %c", c)
		}
		if ToUpperAndN(c+'a'-'A') != c {
			t.Errorf("unexpected mapping for %c", c+'a'-'A')
		}
	}
	for _, c := range []byte("NnRYKMswbdhv") {
		if ToUpperAndN(c) != 'N' {
			t.Errorf("ambiguity code %c not mapped to N", c)
		}
	}
}
