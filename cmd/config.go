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
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dnanexus/Scoring/mapping"
	"github.com/dnanexus/Scoring/utils"
)

// Configuration keys, which are also the names of the corresponding
// command line flags.
const (
	mismatchesKey    = "mismatches"
	decoderKey       = "decoder"
	samtoolsKey      = "samtools"
	decodeTimeoutKey = "decode-timeout"
	tempDirKey       = "temp-dir"
)

type mergeSettings struct {
	mismatches    int
	decoder       string
	samtools      string
	decodeTimeout time.Duration
	tempDir       string
}

// loadSettings reads the defaults of the merge command. The values
// come from SCORING_* environment variables, from the given
// configuration file, or from built-in defaults, in this order of
// precedence. A config without extension or directory is searched
// for in the working directory and in $HOME/.scoring.
func loadSettings(config string) (s mergeSettings, err error) {
	v := viper.New()
	v.SetDefault(mismatchesKey, mapping.DefaultMismatches)
	v.SetDefault(decoderKey, mapping.SamtoolsDecoderName)
	v.SetDefault(samtoolsKey, "samtools")
	v.SetDefault(decodeTimeoutKey, time.Duration(0))
	v.SetDefault(tempDirKey, "")
	v.SetEnvPrefix(strings.ToUpper(utils.ProgramName))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if config != "" {
		if filepath.Ext(config) != "" || strings.ContainsRune(config, filepath.Separator) {
			v.SetConfigFile(config)
		} else {
			v.SetConfigName(config)
			v.AddConfigPath(".")
			if home, err := os.UserHomeDir(); err == nil {
				v.AddConfigPath(filepath.Join(home, "."+utils.ProgramName))
			}
		}
		if err := v.ReadInConfig(); err != nil {
			return s, err
		}
	}
	s = mergeSettings{
		mismatches:    v.GetInt(mismatchesKey),
		decoder:       v.GetString(decoderKey),
		samtools:      v.GetString(samtoolsKey),
		decodeTimeout: v.GetDuration(decodeTimeoutKey),
		tempDir:       v.GetString(tempDirKey),
	}
	if s.mismatches < 0 {
		return s, errors.New("mismatches must not be negative")
	}
	return s, nil
}

// override replaces the settings with the flags given on the command
// line.
func (s *mergeSettings) override(flags *flag.FlagSet, cmdline mergeSettings) {
	set := setFlags(flags)
	if set[mismatchesKey] {
		s.mismatches = cmdline.mismatches
	}
	if set[decoderKey] {
		s.decoder = cmdline.decoder
	}
	if set[samtoolsKey] {
		s.samtools = cmdline.samtools
	}
	if set[decodeTimeoutKey] {
		s.decodeTimeout = cmdline.decodeTimeout
	}
	if set[tempDirKey] {
		s.tempDir = cmdline.tempDir
	}
}

type mergeReport struct {
	Output string                 `yaml:"output"`
	Status string                 `yaml:"status"`
	Error  string                 `yaml:"error,omitempty"`
	Files  []mapping.FileCounters `yaml:"files"`
}

func writeReport(filename string, report mergeReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0666)
}
