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

package eland

import (
	"sort"
	"strconv"
	"strings"
)

// Placeholders for fields a source cannot supply. Downstream tools
// read the output positionally, so no column is ever left blank.
const (
	NoText       = "NA"
	NoQuality    = "*"
	NoDescriptor = "*"
)

// Columns is the number of tab-separated columns of a Record line.
const Columns = 12

// Record is one row of the canonical output schema. The column order
// is fixed: machine/run, lane, tile, x, y, sequence, quality, match
// code, chromosome, position, strand, mismatch descriptor.
type Record struct {
	Machine    string
	Lane       int32
	Tile       int32
	X, Y       int32
	Sequence   string
	Quality    string
	MatchCode  string
	Chromosome string
	Position   int32
	Strand     byte
	Descriptor string
}

// UniqueCode returns the match-type code of a unique hit with the
// given number of mismatches: U0, U1, U2, ...
func UniqueCode(mismatches int) string {
	return "U" + strconv.Itoa(mismatches)
}

func orText(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// Format appends the tab-separated representation of the record,
// including the terminating newline, to out.
func (rec *Record) Format(out []byte) []byte {
	out = append(append(out, orText(rec.Machine, NoText)...), '\t')
	out = append(strconv.AppendInt(out, int64(rec.Lane), 10), '\t')
	out = append(strconv.AppendInt(out, int64(rec.Tile), 10), '\t')
	out = append(strconv.AppendInt(out, int64(rec.X), 10), '\t')
	out = append(strconv.AppendInt(out, int64(rec.Y), 10), '\t')
	out = append(append(out, orText(rec.Sequence, NoText)...), '\t')
	out = append(append(out, orText(rec.Quality, NoQuality)...), '\t')
	out = append(append(out, orText(rec.MatchCode, NoText)...), '\t')
	out = append(append(out, orText(rec.Chromosome, NoText)...), '\t')
	out = append(strconv.AppendInt(out, int64(rec.Position), 10), '\t')
	if rec.Strand == 0 {
		out = append(out, NoText...)
	} else {
		out = append(out, rec.Strand)
	}
	out = append(out, '\t')
	out = append(out, orText(rec.Descriptor, NoDescriptor)...)
	return append(out, '\n')
}

func parseIDs(fields []string) (ids [4]int32, ok bool) {
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return ids, false
		}
		ids[i] = int32(n)
	}
	return ids, true
}

// SetIdentifiers fills the identifier columns from a read name.
// Illumina read names of the forms machine:run:flowcell:lane:tile:x:y
// and machine_run:lane:tile:x:y are split into their parts, after
// dropping a #index or /read suffix. Any other name is stored as
// the machine/run identifier verbatim.
func (rec *Record) SetIdentifiers(name string) {
	rec.Machine, rec.Lane, rec.Tile, rec.X, rec.Y = name, 0, 0, 0, 0
	base := strings.TrimPrefix(name, ">")
	if i := strings.IndexAny(base, "#/ "); i >= 0 {
		base = base[:i]
	}
	fields := strings.Split(base, ":")
	switch len(fields) {
	case 7:
		if ids, ok := parseIDs(fields[3:]); ok && fields[0] != "" {
			rec.Machine = fields[0] + "_" + fields[1]
			rec.Lane, rec.Tile, rec.X, rec.Y = ids[0], ids[1], ids[2], ids[3]
		}
	case 5:
		if ids, ok := parseIDs(fields[1:]); ok && fields[0] != "" {
			rec.Machine = fields[0]
			rec.Lane, rec.Tile, rec.X, rec.Y = ids[0], ids[1], ids[2], ids[3]
		}
	}
}

// A Substitution is a mismatching base: its 0-based offset in the
// read, and the reference base at that position.
type Substitution struct {
	Offset int32
	Base   byte
}

// FormatDescriptor renders substitutions as an ELAND match
// descriptor: runs of matching bases as numbers, mismatches as the
// reference base, for example 10A25 for a 36 base read with a
// mismatch at offset 10.
func FormatDescriptor(length int, subs []Substitution) string {
	if len(subs) == 0 {
		return strconv.Itoa(length)
	}
	sorted := make([]Substitution, len(subs))
	copy(sorted, subs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	var out []byte
	var next int32
	for _, sub := range sorted {
		if sub.Offset > next {
			out = strconv.AppendInt(out, int64(sub.Offset-next), 10)
		}
		out = append(out, sub.Base)
		next = sub.Offset + 1
	}
	if rest := int32(length) - next; rest > 0 {
		out = strconv.AppendInt(out, int64(rest), 10)
	}
	return string(out)
}

// TrimReferenceSuffix drops a .fa or .fasta extension from the
// reference file names ELAND uses as chromosome names.
func TrimReferenceSuffix(chrom string) string {
	for _, ext := range [...]string{".fa", ".fasta"} {
		if strings.HasSuffix(chrom, ext) && len(chrom) > len(ext) {
			return chrom[:len(chrom)-len(ext)]
		}
	}
	return chrom
}
