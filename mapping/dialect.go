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

package mapping

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A Dialect is one of the on-disk schemas a mapping file can be
// written in. The zero Dialect means that the dialect is not known
// yet.
type Dialect uint8

// The supported dialects.
const (
	_ Dialect = iota
	Extended
	Multi
	Plain
	BwaSam
	BowtieSam
	IlluminaSam
	ElandSam
)

var dialectNames = [...]string{
	"",
	Extended:    "extended",
	Multi:       "multi",
	Plain:       "plain",
	BwaSam:      "bwa-sam",
	BowtieSam:   "bowtie-sam",
	IlluminaSam: "illumina-sam",
	ElandSam:    "eland-sam",
}

// Valid reports whether d is one of the supported dialects.
func (d Dialect) Valid() bool {
	return d > 0 && int(d) < len(dialectNames)
}

// IsSam reports whether files of this dialect are SAM files.
func (d Dialect) IsSam() bool {
	return d >= BwaSam && d <= ElandSam
}

func (d Dialect) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Dialect(%d)", uint8(d))
	}
	return dialectNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDialect returns the dialect with the given name, as returned
// by Dialect.String.
func ParseDialect(name string) (Dialect, error) {
	for d, n := range dialectNames {
		if n != "" && strings.EqualFold(n, name) {
			return Dialect(d), nil
		}
	}
	return 0, fmt.Errorf("unknown mapping format %q", name)
}

// DialectFromName guesses the dialect of a legacy ELAND file from its
// file name: names containing "multi" are ELAND multi files, names
// containing "extended" are ELAND extended files, and anything else
// is a plain ELAND result file.
func DialectFromName(path string) Dialect {
	name := filepath.Base(path)
	switch {
	case strings.Contains(name, "multi"):
		return Multi
	case strings.Contains(name, "extended"):
		return Extended
	default:
		return Plain
	}
}
