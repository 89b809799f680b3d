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

// Package peaks rewrites narrowPeak files so that no peak is wider
// than MaxWidth, which keeps broad peaks from distorting downstream
// reproducibility analysis.
package peaks

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/dnanexus/Scoring/internal"
)

// Peaks wider than MaxWidth are cut down to HalfWidth bases on each
// side of their summit, within their original bounds.
const (
	MaxWidth  = 1000
	HalfWidth = 500
)

// narrowPeak columns, 0-based.
const (
	startColumn  = 1
	endColumn    = 2
	summitColumn = 9
)

func parseColumn(fields []string, column int, name string) (int64, error) {
	value, err := strconv.ParseInt(fields[column], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %v %q", name, fields[column])
	}
	return value, nil
}

// ClampLine clamps the peak of one narrowPeak line. The summit
// column is an offset from the start, and is adjusted to the new
// start. All other columns are left as they are.
func ClampLine(line string) (string, error) {
	fields := strings.Split(line, "\t")
	if len(fields) <= summitColumn {
		return "", fmt.Errorf("expected 10 columns, got %v", len(fields))
	}
	start, err := parseColumn(fields, startColumn, "start")
	if err != nil {
		return "", err
	}
	end, err := parseColumn(fields, endColumn, "end")
	if err != nil {
		return "", err
	}
	summit, err := parseColumn(fields, summitColumn, "summit")
	if err != nil {
		return "", err
	}
	if end-start <= MaxWidth {
		return line, nil
	}
	point := start + summit
	if s := point - HalfWidth; s > start {
		start = s
	}
	if e := point + HalfWidth; e < end {
		end = e
	}
	fields[startColumn] = strconv.FormatInt(start, 10)
	fields[endColumn] = strconv.FormatInt(end, 10)
	fields[summitColumn] = strconv.FormatInt(point-start, 10)
	return strings.Join(fields, "\t"), nil
}

// Clamp copies a narrowPeak file from r to w, clamping every peak.
// Lines are processed in parallel and written in input order. Empty
// lines are dropped.
func Clamp(r io.Reader, w io.Writer) error {
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(r))
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			lines := data.([]string)
			out := make([]byte, 0, 64*len(lines))
			for _, line := range lines {
				if line == "" {
					continue
				}
				clamped, err := ClampLine(line)
				if err != nil {
					p.SetErr(fmt.Errorf("%v, in narrowPeak line %q", err, line))
					return out
				}
				out = append(append(out, clamped...), '\n')
			}
			return out
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			if _, err := w.Write(data.([]byte)); err != nil {
				p.SetErr(err)
			}
			return data
		})),
	)
	return internal.RunPipeline(&p)
}

// ClampFile clamps the peaks of the input file into the output file.
func ClampFile(input, output string) (err error) {
	if input == output {
		return errors.New("narrowPeak input and output must be different files")
	}
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer internal.Close(in, &err)
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer internal.Close(out, &err)
	return Clamp(in, out)
}
