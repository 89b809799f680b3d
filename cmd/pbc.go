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

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dnanexus/Scoring/internal"
	"github.com/dnanexus/Scoring/pbc"
)

// PbcHelp is the help string for this command.
const PbcHelp = "\npbc parameters:\n" +
	"scoring pbc mapping-file\n" +
	"[--output stats-file]\n" +
	"[--name name]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Pbc implements the scoring pbc command. The result line is appended
// to the output file, so that the statistics of several mapping
// files can be collected in one file.
func Pbc() error {
	var (
		output, name     string
		profile, logPath string
		timed            bool
	)

	flags := flag.NewFlagSet("pbc", flag.ContinueOnError)

	flags.StringVar(&output, "output", "", "append the result to the given file instead of printing it")
	flags.StringVar(&name, "name", "", "name of the result, instead of the name of the mapping file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 3, PbcHelp)

	input := getFilename(os.Args[2], PbcHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if output != "" && !checkCreate("--output", output) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, PbcHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " pbc ", input)
	if output != "" {
		fmt.Fprint(&command, " --output ", output)
	}
	if name != "" {
		fmt.Fprint(&command, " --name ", name)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	var result pbc.Result
	if err := timedRun(timed, profile, "Computing PCR bottlenecking coefficient.", 1, func() (err error) {
		result, err = pbc.ComputeFile(input, name)
		return err
	}); err != nil {
		return err
	}

	if output == "" {
		_, err := fmt.Println(result.Format())
		return err
	}
	return appendLine(output, result.Format())
}

func appendLine(filename, line string) (err error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer internal.Close(f, &err)
	_, err = fmt.Fprintln(f, line)
	return err
}
