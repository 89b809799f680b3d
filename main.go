// scoring: merging and filtering of short-read mapping files.
// Copyright (c) 2017-2020 imec vzw.

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
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

// scoring merges the short-read mapping files of a sequencing run,
// in any of the ELAND, BWA, bowtie, or Illumina formats, into one
// file of uniquely mapped reads in a common tab-separated format. It
// also provides helpers for the downstream peak scoring steps.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dnanexus/Scoring/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: merge, clamp-peaks, pbc")
	fmt.Fprint(os.Stderr, "\n", cmd.MergeHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ClampPeaksHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.PbcHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "merge":
		err = cmd.Merge()
	case "clamp-peaks":
		err = cmd.ClampPeaks()
	case "pbc":
		err = cmd.Pbc()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
