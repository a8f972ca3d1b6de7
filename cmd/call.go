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

package cmd

import (
	"errors"
	"flag"

	"github.com/halcyon-genomics/halcyon/caller"
	"github.com/halcyon-genomics/halcyon/fasta"
	"github.com/halcyon-genomics/halcyon/sam"
)

// CallHelp is the help string for the call command.
const CallHelp = "Call parameters:\n" +
	"halcyon call -I sam-file -R reference-fasta -O vcf-file\n" +
	"[-I/--input file]\n" +
	"[-R/--reference file]\n" +
	"[-O/--output file]\n" +
	"[--window-size number]\n" +
	"[--padding number]\n" +
	"[--max-reads-per-window number]\n" +
	"[--random-seed number]\n" +
	"[--log-path path]\n" +
	"[-h/--help]\n"

// Call parses the command line of the call command and runs the
// haplotype caller.
func Call() error {
	return runCall(2)
}

func runCall(requiredArgs int) error {
	var (
		input, reference, output string
		windowSize, padding      int
		maxReadsPerWindow        int
		randomSeed               int64
		logPath                  string
	)
	var flags flag.FlagSet
	flags.StringVar(&input, "I", "", "name of the SAM input file")
	flags.StringVar(&input, "input", "", "name of the SAM input file")
	flags.StringVar(&reference, "R", "", "name of the FASTA reference file")
	flags.StringVar(&reference, "reference", "", "name of the FASTA reference file")
	flags.StringVar(&output, "O", "", "name of the VCF output file")
	flags.StringVar(&output, "output", "", "name of the VCF output file")
	flags.IntVar(&windowSize, "window-size", caller.DefaultWindowSize, "size of the calling windows")
	flags.IntVar(&padding, "padding", caller.DefaultPadding, "window padding on each side")
	flags.IntVar(&maxReadsPerWindow, "max-reads-per-window", caller.DefaultMaxReadsPerWindow, "hard cap on reads per window")
	flags.Int64Var(&randomSeed, "random-seed", caller.DefaultRandomSeed, "seed for per-window read subsampling")
	flags.StringVar(&logPath, "log-path", "", "directory for the log file")

	parseFlags(flags, requiredArgs, CallHelp)

	ok := checkExist("--input", input)
	ok = checkExist("--reference", reference) && ok
	ok = checkCreate("--output", output) && ok
	if !ok {
		return errors.New("missing or invalid command line parameters")
	}

	setLogOutput(logPath)

	samInput := sam.ParseSam(input)
	referenceContig, err := fasta.ParseFasta(reference)
	if err != nil {
		return err
	}

	hc := caller.NewHaplotypeCaller(int32(windowSize), int32(padding), maxReadsPerWindow, randomSeed)
	hc.CallVariants(samInput, referenceContig, output)
	return nil
}
