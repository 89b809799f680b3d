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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A Candidate is one genomic position a read maps to.
type Candidate struct {
	Chromosome    string
	Position      int32
	Strand        byte
	Mismatches    int
	Descriptor    string
	Substitutions []Substitution
}

// A Line is one parsed line of a legacy ELAND mapping file.
type Line struct {
	ReadName   string
	Sequence   string
	Code       string
	Candidates []Candidate

	// Set for plain result lines only, where uniqueness is stored
	// rather than derived from the candidate list.
	bestHits, bestLevel int
}

// Match codes without any hits: no match, quality control failure,
// repeat masked.
func isNoMatchCode(code string) bool {
	switch code {
	case "NM", "QC", "RM":
		return true
	}
	return false
}

func parsePosition(s string) (int32, error) {
	pos, err := strconv.ParseInt(s, 10, 32)
	if err != nil || pos < 1 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return int32(pos), nil
}

func parseStrand(s string) (byte, error) {
	if s == "F" || s == "R" {
		return s[0], nil
	}
	return 0, fmt.Errorf("invalid strand %q", s)
}

// ParseResult parses a line of a plain ELAND result file:
//
//	>id seq code [n0 n1 n2 [chrom pos strand [n-treatment subst...]]]
//
// Codes U0, U1, U2 denote a unique hit with 0, 1, or 2 mismatches;
// R0, R1, R2 denote repeats with the number of hits given by the
// count column at that level.
func ParseResult(line string) (*Line, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected at least 3 columns, got %v", len(fields))
	}
	result := &Line{
		ReadName: strings.TrimPrefix(fields[0], ">"),
		Sequence: fields[1],
		Code:     fields[2],
	}
	code := result.Code
	if isNoMatchCode(code) {
		return result, nil
	}
	if len(code) != 2 || (code[0] != 'U' && code[0] != 'R') || code[1] < '0' || code[1] > '2' {
		return nil, fmt.Errorf("unknown match code %q", code)
	}
	if len(fields) < 6 {
		return nil, fmt.Errorf("match code %v requires at least 6 columns, got %v", code, len(fields))
	}
	var counts [3]int
	for i := range counts {
		n, err := strconv.Atoi(fields[3+i])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid hit count %q", fields[3+i])
		}
		counts[i] = n
	}
	result.bestLevel = int(code[1] - '0')
	if code[0] == 'R' {
		// a repeat never counts as unique, whatever its count column says
		if result.bestHits = counts[result.bestLevel]; result.bestHits < 2 {
			result.bestHits = 2
		}
		return result, nil
	}
	if len(fields) < 9 {
		return nil, fmt.Errorf("match code %v requires at least 9 columns, got %v", code, len(fields))
	}
	pos, err := parsePosition(fields[7])
	if err != nil {
		return nil, err
	}
	strand, err := parseStrand(fields[8])
	if err != nil {
		return nil, err
	}
	cand := Candidate{
		Chromosome: TrimReferenceSuffix(fields[6]),
		Position:   pos,
		Strand:     strand,
		Mismatches: result.bestLevel,
	}
	if len(fields) > 10 {
		for _, f := range fields[10:] {
			if f == "" {
				continue
			}
			sub, err := parseSubstitution(f)
			if err != nil {
				return nil, err
			}
			cand.Substitutions = append(cand.Substitutions, sub)
		}
	}
	if len(cand.Substitutions) == cand.Mismatches {
		cand.Descriptor = FormatDescriptor(len(result.Sequence), cand.Substitutions)
	}
	result.Candidates = []Candidate{cand}
	result.bestHits = 1
	return result, nil
}

// parseSubstitution parses a plain result substitution such as 11A:
// a 1-based read position followed by the reference base.
func parseSubstitution(s string) (Substitution, error) {
	if len(s) < 2 {
		return Substitution{}, fmt.Errorf("invalid substitution %q", s)
	}
	pos, err := strconv.ParseInt(s[:len(s)-1], 10, 32)
	if err != nil || pos < 1 || !isLetter(s[len(s)-1]) {
		return Substitution{}, fmt.Errorf("invalid substitution %q", s)
	}
	return Substitution{Offset: int32(pos - 1), Base: s[len(s)-1]}, nil
}

func isDigit(c byte) bool  { return '0' <= c && c <= '9' }
func isLetter(c byte) bool { return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') }

// candidateSuffix parses whatever follows the strand of a candidate.
type candidateSuffix func(cand *Candidate, suffix string) error

func multiSuffix(cand *Candidate, suffix string) error {
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid mismatch count %q", suffix)
	}
	cand.Mismatches = n
	return nil
}

// extendedSuffix parses an ELAND extended match descriptor. Numbers
// are runs of matching bases, letters are mismatching reference
// bases. Gaps are enclosed in ^ and $ and do not count as mismatches.
func extendedSuffix(cand *Candidate, suffix string) error {
	if suffix == "" {
		return errors.New("missing match descriptor")
	}
	var offset int32
	for i := 0; i < len(suffix); {
		switch c := suffix[i]; {
		case isDigit(c):
			j := i + 1
			for j < len(suffix) && isDigit(suffix[j]) {
				j++
			}
			n, err := strconv.ParseInt(suffix[i:j], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid match descriptor %q", suffix)
			}
			offset += int32(n)
			i = j
		case isLetter(c):
			cand.Substitutions = append(cand.Substitutions, Substitution{offset, c})
			offset++
			i++
		case c == '^':
			end := strings.IndexByte(suffix[i:], '$')
			if end < 0 {
				return fmt.Errorf("unterminated gap in match descriptor %q", suffix)
			}
			i += end + 1
		default:
			return fmt.Errorf("invalid match descriptor %q", suffix)
		}
	}
	cand.Mismatches = len(cand.Substitutions)
	cand.Descriptor = suffix
	return nil
}

func parseCandidates(list string, suffix candidateSuffix) ([]Candidate, error) {
	if list == "-" || list == "" {
		return nil, nil
	}
	var result []Candidate
	var chrom string
	for _, token := range strings.Split(list, ",") {
		if i := strings.LastIndexByte(token, ':'); i >= 0 {
			chrom = TrimReferenceSuffix(token[:i])
			token = token[i+1:]
		}
		if chrom == "" {
			return nil, fmt.Errorf("hit %q without chromosome", token)
		}
		j := 0
		for j < len(token) && isDigit(token[j]) {
			j++
		}
		if j == len(token) {
			return nil, fmt.Errorf("hit %q without strand", token)
		}
		pos, err := parsePosition(token[:j])
		if err != nil {
			return nil, err
		}
		strand, err := parseStrand(token[j : j+1])
		if err != nil {
			return nil, err
		}
		cand := Candidate{Chromosome: chrom, Position: pos, Strand: strand}
		if err := suffix(&cand, token[j+1:]); err != nil {
			return nil, err
		}
		result = append(result, cand)
	}
	return result, nil
}

func parseListing(line string, suffix candidateSuffix) (*Line, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected 4 columns, got %v", len(fields))
	}
	result := &Line{
		ReadName: strings.TrimPrefix(fields[0], ">"),
		Sequence: fields[1],
		Code:     fields[2],
	}
	if isNoMatchCode(result.Code) {
		return result, nil
	}
	if len(fields) != 4 {
		return nil, fmt.Errorf("expected 4 columns, got %v", len(fields))
	}
	for _, count := range strings.Split(result.Code, ":") {
		if n, err := strconv.Atoi(count); err != nil || n < 0 {
			return nil, fmt.Errorf("invalid hit counts %q", result.Code)
		}
	}
	cands, err := parseCandidates(fields[3], suffix)
	if err != nil {
		return nil, err
	}
	result.Candidates = cands
	return result, nil
}

// ParseExtended parses a line of an ELAND extended file:
//
//	>id seq n0:n1:n2 chr1.fa:1000F12A19,2000R32,chr2.fa:300F32
//
// Each hit ends in a match descriptor.
func ParseExtended(line string) (*Line, error) {
	return parseListing(line, extendedSuffix)
}

// ParseMulti parses a line of an ELAND multi file:
//
//	>id seq n0:n1:n2 chr1.fa:1000F1,2000R0,chr2.fa:300F2
//
// Each hit ends in its number of mismatches.
func ParseMulti(line string) (*Line, error) {
	return parseListing(line, multiSuffix)
}

// BestOfCandidates scans all candidates of a listing line for the
// minimum mismatch count. It returns the index of the first
// candidate with that count, and the number of candidates tied at
// it. It returns -1 and 0 if there are no candidates.
func (l *Line) BestOfCandidates() (best, tied int) {
	best = -1
	for i, cand := range l.Candidates {
		switch {
		case best < 0 || cand.Mismatches < l.Candidates[best].Mismatches:
			best, tied = i, 1
		case cand.Mismatches == l.Candidates[best].Mismatches:
			tied++
		}
	}
	return best, tied
}

// StoredBest returns what a plain result line records about its best
// hits: the unique candidate if there is one, the number of hits at
// the best level, and the best level's mismatch count.
func (l *Line) StoredBest() (cand *Candidate, hits, mismatches int) {
	if len(l.Candidates) > 0 {
		cand = &l.Candidates[0]
	}
	return cand, l.bestHits, l.bestLevel
}
