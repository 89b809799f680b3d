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

package sam

import (
	"fmt"
	"strconv"

	"github.com/dnanexus/Scoring/utils"
)

// MandatoryFields is the number of tab-separated columns every SAM
// alignment line starts with.
const MandatoryFields = 11

// IsHeaderUserTag reports whether a header record code contains a
// lower-case letter, which the SAM format reserves for users.
func IsHeaderUserTag(code string) bool {
	for _, c := range code {
		if ('a' <= c) && (c <= 'z') {
			return true
		}
	}
	return false
}

// Header holds the parsed header section of a SAM file.
type Header struct {
	HD          utils.StringMap
	SQ, RG, PG  []utils.StringMap
	CO          []string
	UserRecords map[string][]utils.StringMap
}

// NewHeader allocates and returns a new, empty Header.
func NewHeader() *Header { return &Header{} }

// AddUserRecord appends a record for a user-defined header code.
func (hdr *Header) AddUserRecord(code string, record utils.StringMap) {
	if hdr.UserRecords == nil {
		hdr.UserRecords = make(map[string][]utils.StringMap)
	}
	hdr.UserRecords[code] = append(hdr.UserRecords[code], record)
}

// Programs returns the program names recorded in the @PG lines, in
// header order. The PN field is used if present, otherwise the ID
// field. @PG lines that have neither are skipped.
func (hdr *Header) Programs() []string {
	programs := make([]string, 0, len(hdr.PG))
	for _, pg := range hdr.PG {
		if name, found := pg.FirstOf("PN", "ID"); found {
			programs = append(programs, name)
		}
	}
	return programs
}

// Alignment represents one SAM alignment line.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME utils.Symbol
	POS   int32
	MAPQ  byte
	CIGAR string
	RNEXT string
	PNEXT int32
	TLEN  int32
	SEQ   string
	QUAL  string
	TAGS  utils.SmallMap
}

// NewAlignment allocates and returns a new, empty Alignment.
func NewAlignment() *Alignment {
	return &Alignment{TAGS: make(utils.SmallMap, 0, 16)}
}

// Interned names of the optional tags the aligners use to report
// uniqueness and mismatches.
var (
	X0 = utils.Intern("X0") // BWA: number of best hits
	XM = utils.Intern("XM") // BWA: mismatches; bowtie: alignment count
	NM = utils.Intern("NM") // edit distance
	NH = utils.Intern("NH") // number of reported alignments
	MD = utils.Intern("MD") // mismatching positions
)

// Flag bits of the FLAG field.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

func (aln *Alignment) IsUnmapped() bool  { return (aln.FLAG & Unmapped) != 0 }
func (aln *Alignment) IsReversed() bool  { return (aln.FLAG & Reversed) != 0 }
func (aln *Alignment) IsSecondary() bool { return (aln.FLAG & Secondary) != 0 }

// IntTag returns the value of an integer tag. found is false if
// the tag is absent; err is non-nil if the tag is present but does
// not hold an integer.
func (aln *Alignment) IntTag(tag utils.Symbol) (value int32, found bool, err error) {
	v, found := aln.TAGS.Get(tag)
	if !found {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int32:
		return val, true, nil
	case string:
		// some aligners write counts as Z tags
		n, err := strconv.ParseInt(val, 10, 32)
		if err != nil {
			return 0, true, fmt.Errorf("tag %v has non-integer value %v", *tag, val)
		}
		return int32(n), true, nil
	default:
		return 0, true, fmt.Errorf("tag %v has non-integer value %v", *tag, v)
	}
}

// StringTag returns the value of a string tag.
func (aln *Alignment) StringTag(tag utils.Symbol) (string, bool) {
	v, found := aln.TAGS.Get(tag)
	if !found {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
