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
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/halcyon-genomics/halcyon/internal"
	"github.com/halcyon-genomics/halcyon/utils"
)

// ProgramMessage is the first line printed when the halcyon binary is
// called.
var ProgramMessage string

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", utils.ProgramName, " version ", utils.ProgramVersion,
		" compiled with ", runtime.Version(),
		" - see ", utils.ProgramURL, " for more information.\n",
	)
}

func parseFlags(flags flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(ioutil.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			x = 1
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func checkExist(parameter, filename string) bool {
	if filename == "" {
		log.Printf("Error: Missing filename for command line parameter %v.", parameter)
		return false
	}
	if filename[0] == '-' {
		log.Printf("Error: Missing filename before %v for command line parameter %v.", filename, parameter)
		return false
	}
	if _, err := os.Stat(filename); err != nil {
		log.Printf("Error: Cannot access file %v for command line parameter %v: %v.", filename, parameter, err)
		return false
	}
	return true
}

func checkCreate(parameter, filename string) bool {
	if filename == "" {
		log.Printf("Error: Missing filename for command line parameter %v.", parameter)
		return false
	}
	if filename[0] == '-' {
		log.Printf("Error: Missing filename before %v for command line parameter %v.", filename, parameter)
		return false
	}
	return true
}

func createLogFilename() string {
	return fmt.Sprintf("logs/halcyon/halcyon-%v.log", uuid.New())
}

// setLogOutput tees the log output to a per-run log file and the
// console, so per-window diagnostics survive the run.
func setLogOutput(path string) {
	logPath := createLogFilename()
	var fullPath string
	if path == "" {
		fullPath = filepath.Join(os.Getenv("HOME"), logPath)
	} else {
		fullPath = filepath.Join(path, logPath)
	}
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStdout, err := unix.Dup(1)
	if err != nil {
		log.Panic(err)
	}
	fout := os.NewFile(uintptr(orgStdout), "/dev/stdout")
	if err := unix.Dup2(int(f.Fd()), 1); err != nil {
		log.Panic(err)
	}

	multi := io.MultiWriter(f, fout)

	log.SetOutput(multi)
	log.Println("Created log file at", fullPath)
	log.Println("Command line:", os.Args)
}
