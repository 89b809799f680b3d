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

// Package pbc computes the PCR bottlenecking coefficient of a
// mapping file, a measure of library complexity: the number of
// genomic locations to which exactly one read maps, divided by the
// number of locations to which at least one read maps.
//
// The mapping file is expected to hold uniquely mapped reads only,
// for example the output of a merge.
package pbc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/dnanexus/Scoring/internal"
)

// Columns identifies the 0-based chromosome and position columns of
// a mapping file.
type Columns struct {
	Chromosome, Position int
}

var (
	// SamColumns are the RNAME and POS columns of SAM files.
	SamColumns = Columns{2, 3}

	// ElandColumns are the chromosome and position columns of the
	// canonical merge output.
	ElandColumns = Columns{8, 9}
)

// ElandSuffix marks merge output files.
const ElandSuffix = "_eland.txt"

// ColumnsFor returns the columns to use for a file, by its name.
func ColumnsFor(filename string) Columns {
	if strings.HasSuffix(filename, ElandSuffix) {
		return ElandColumns
	}
	return SamColumns
}

// Result holds the location counts of a mapping file.
type Result struct {
	Name string
	// One is the number of locations with exactly one read.
	One int
	// Distinct is the number of locations with at least one read.
	Distinct int
}

// PBC returns One / Distinct, or 0 if there are no locations.
func (r Result) PBC() float64 {
	if r.Distinct == 0 {
		return 0
	}
	return float64(r.One) / float64(r.Distinct)
}

// Format returns the tab-separated name, one, distinct, and PBC.
func (r Result) Format() string {
	return fmt.Sprintf("%v\t%v\t%v\t%v", r.Name, r.One, r.Distinct, strconv.FormatFloat(r.PBC(), 'f', 4, 64))
}

type location struct {
	chrom string
	pos   int64
}

func parseLocations(lines []string, columns Columns) ([]location, error) {
	last := columns.Chromosome
	if columns.Position > last {
		last = columns.Position
	}
	locs := make([]location, 0, len(lines))
	for _, line := range lines {
		if line == "" || line[0] == '@' {
			continue
		}
		fields := strings.SplitN(line, "\t", last+2)
		if len(fields) <= last {
			return nil, fmt.Errorf("expected at least %v columns in line %q", last+1, line)
		}
		pos, err := strconv.ParseInt(fields[columns.Position], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q in line %q", fields[columns.Position], line)
		}
		locs = append(locs, location{fields[columns.Chromosome], pos})
	}
	return locs, nil
}

// Compute counts the reads per location of the mapping file read
// from r. Header lines starting with @ are skipped.
func Compute(r io.Reader, columns Columns) (result Result, err error) {
	counts := make(map[location]int)
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(r))
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			locs, err := parseLocations(data.([]string), columns)
			if err != nil {
				p.SetErr(err)
			}
			return locs
		})),
		pipeline.Seq(pipeline.Receive(func(_ int, data interface{}) interface{} {
			for _, loc := range data.([]location) {
				switch counts[loc]++; counts[loc] {
				case 1:
					result.One++
					result.Distinct++
				case 2:
					result.One--
				}
			}
			return nil
		})),
	)
	if err = internal.RunPipeline(&p); err != nil {
		return Result{}, err
	}
	return result, nil
}

// ComputeFile computes the PBC of the named file. If name is empty,
// the base name of the file is used.
func ComputeFile(filename, name string) (result Result, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return Result{}, err
	}
	defer internal.Close(f, &err)
	if result, err = Compute(f, ColumnsFor(filename)); err != nil {
		return Result{}, fmt.Errorf("%v, while reading %v", err, filename)
	}
	if result.Name = name; name == "" {
		result.Name = filepath.Base(filename)
	}
	return result, nil
}
