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

// halcyon is a germline small-variant caller for short-read
// alignments: it assembles candidate haplotypes per window, scores
// reads against them with a pair-HMM, and emits diploid genotype
// calls as VCF.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/halcyon-genomics/halcyon/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: call")
	fmt.Fprint(os.Stderr, "\n", cmd.CallHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "call":
		err = cmd.Call()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		err = cmd.DeprecatedCall()
	}
	if err != nil {
		log.Fatal(err)
	}
}
