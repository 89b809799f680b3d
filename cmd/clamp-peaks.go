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

	"github.com/dnanexus/Scoring/peaks"
)

// ClampPeaksHelp is the help string for this command.
const ClampPeaksHelp = "\nclamp-peaks parameters:\n" +
	"scoring clamp-peaks narrowpeak-file narrowpeak-output-file\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// ClampPeaks implements the scoring clamp-peaks command.
func ClampPeaks() error {
	var (
		profile, logPath string
		timed            bool
	)

	flags := flag.NewFlagSet("clamp-peaks", flag.ContinueOnError)

	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 4, ClampPeaksHelp)

	input := getFilename(os.Args[2], ClampPeaksHelp)
	output := getFilename(os.Args[3], ClampPeaksHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, ClampPeaksHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " clamp-peaks ", input, " ", output)
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Clamping peaks.", 1, func() error {
		return peaks.ClampFile(input, output)
	})
}
