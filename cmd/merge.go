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
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/dnanexus/Scoring/internal"
	"github.com/dnanexus/Scoring/mapping"
)

// MergeHelp is the help string for this command.
const MergeHelp = "\nmerge parameters:\n" +
	"scoring merge output-file mapping-file [mapping-file ...]\n" +
	"[--mismatches n]\n" +
	"[--format extended | multi | plain | bwa-sam | bowtie-sam | illumina-sam | eland-sam]\n" +
	"[--decoder samtools | native]\n" +
	"[--samtools path]\n" +
	"[--decode-timeout duration]\n" +
	"[--temp-dir path]\n" +
	"[--append]\n" +
	"[--atomic]\n" +
	"[--report yaml-file]\n" +
	"[--config name]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// Merge implements the scoring merge command.
func Merge() error {
	var (
		cmdline                     mergeSettings
		format, report, config      string
		profile, logPath            string
		appendOutput, atomic, timed bool
	)

	flags := flag.NewFlagSet("merge", flag.ContinueOnError)

	flags.IntVar(&cmdline.mismatches, mismatchesKey, mapping.DefaultMismatches, "maximum number of mismatches of a kept read")
	flags.StringVar(&format, "format", "", "read all mapping files in the given format instead of detecting it")
	flags.StringVar(&cmdline.decoder, decoderKey, mapping.SamtoolsDecoderName, "decoder for BAM files")
	flags.StringVar(&cmdline.samtools, samtoolsKey, "samtools", "samtools executable for the samtools decoder")
	flags.DurationVar(&cmdline.decodeTimeout, decodeTimeoutKey, 0, "maximum time for decoding one BAM file")
	flags.StringVar(&cmdline.tempDir, tempDirKey, "", "directory for decoded BAM files")
	flags.BoolVar(&appendOutput, "append", false, "append to the output file instead of overwriting it")
	flags.BoolVar(&atomic, "atomic", false, "only replace the output file if all mapping files are merged")
	flags.StringVar(&report, "report", "", "write per-file record counts to the given YAML file")
	flags.StringVar(&config, "config", "", "read defaults from the given configuration file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, MergeHelp)
		os.Exit(1)
	}
	output := getFilename(os.Args[2], MergeHelp)
	inputs, next := getFilenames(3, MergeHelp)
	parseFlags(flags, next, MergeHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	if len(inputs) == 0 {
		log.Println("Error: No mapping files to merge.")
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if report != "" && !checkCreate("--report", report) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	settings, err := loadSettings(config)
	if err != nil {
		log.Println("Error: Invalid configuration:", err)
		sanityChecksFailed = true
	}
	settings.override(flags, cmdline)

	if settings.mismatches < 0 {
		log.Println("Error: Invalid number of mismatches: ", settings.mismatches)
		sanityChecksFailed = true
	}
	if settings.decodeTimeout < 0 {
		log.Println("Error: Invalid decode timeout: ", settings.decodeTimeout)
		sanityChecksFailed = true
	}

	var dialect mapping.Dialect
	if format != "" {
		if dialect, err = mapping.ParseDialect(format); err != nil {
			log.Println("Error:", err)
			sanityChecksFailed = true
		}
	}

	decoder, err := mapping.NewDecoder(settings.decoder, settings.samtools)
	if err != nil {
		log.Println("Error:", err)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, MergeHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " merge ", output)
	for _, input := range inputs {
		fmt.Fprint(&command, " ", input)
	}
	fmt.Fprint(&command, " --mismatches ", settings.mismatches)
	if dialect.Valid() {
		fmt.Fprint(&command, " --format ", dialect)
	}
	fmt.Fprint(&command, " --decoder ", settings.decoder)
	if settings.decoder != mapping.NativeDecoderName {
		fmt.Fprint(&command, " --samtools ", settings.samtools)
	}
	if settings.decodeTimeout > 0 {
		fmt.Fprint(&command, " --decode-timeout ", settings.decodeTimeout)
	}
	if settings.tempDir != "" {
		fmt.Fprint(&command, " --temp-dir ", settings.tempDir)
	}
	if appendOutput {
		fmt.Fprint(&command, " --append")
	}
	if atomic {
		fmt.Fprint(&command, " --atomic")
	}
	if report != "" {
		fmt.Fprint(&command, " --report ", report)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	if output, err = internal.FullPathname(output); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	merger := mapping.NewMerger(
		mapping.WithMismatches(settings.mismatches),
		mapping.WithDialect(dialect),
		mapping.WithDecoder(decoder),
		mapping.WithDecodeTimeout(settings.decodeTimeout),
		mapping.WithTempDir(settings.tempDir),
		mapping.WithAppend(appendOutput),
		mapping.WithAtomic(atomic),
	)

	var counters []mapping.FileCounters
	err = timedRun(timed, profile, "Merging mapping files.", 1, func() (err error) {
		counters, err = merger.Merge(ctx, output, inputs)
		return err
	})

	if report != "" {
		r := mergeReport{Output: output, Status: merger.State().String(), Files: counters}
		if err != nil {
			r.Error = err.Error()
		}
		if rerr := writeReport(report, r); rerr != nil {
			log.Printf("Error %v when writing report %v.\n", rerr, report)
			if err == nil {
				err = rerr
			}
		}
	}
	return err
}
