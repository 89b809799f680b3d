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
	"errors"
	"fmt"
	"io"

	"github.com/dnanexus/Scoring/eland"
	"github.com/dnanexus/Scoring/sam"
	"github.com/dnanexus/Scoring/utils"
)

// A Reader produces the hits of one input file, one per data line,
// in file order. Read returns io.EOF after the last hit. A Reader
// cannot be restarted. Closing a Reader closes its Stream.
type Reader interface {
	Read() (*Hit, error)
	// Line returns the 1-based line number of the last hit read.
	Line() int
	Close() error
}

// A lineDecoder turns one data line of a dialect into a Hit.
type lineDecoder func(line string) (*Hit, error)

var lineDecoders = [...]lineDecoder{
	Extended:    decodeExtended,
	Multi:       decodeMulti,
	Plain:       decodePlain,
	BwaSam:      decodeBwaSam,
	BowtieSam:   decodeBowtieSam,
	IlluminaSam: decodeIlluminaSam,
	ElandSam:    decodeElandSam,
}

type reader struct {
	stream *Stream
	decode lineDecoder
}

// NewReader returns the Reader for the given dialect. The stream
// must be positioned at the first data line.
func NewReader(stream *Stream, dialect Dialect) (Reader, error) {
	if !dialect.Valid() {
		return nil, fmt.Errorf("invalid mapping format %v for %v", dialect, stream.Path)
	}
	return &reader{stream: stream, decode: lineDecoders[dialect]}, nil
}

func (r *reader) Read() (*Hit, error) {
	line, err := r.stream.readLine()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("%v, while reading %v", err, r.stream.Path)
	}
	hit, err := r.decode(line)
	if err != nil {
		return nil, &MalformedRecordError{Path: r.stream.Path, Line: r.stream.Line(), Err: err}
	}
	return hit, nil
}

func (r *reader) Line() int { return r.stream.Line() }

func (r *reader) Close() error { return r.stream.Close() }

// Legacy ELAND dialects.

func decodePlain(line string) (*Hit, error) {
	l, err := eland.ParseResult(line)
	if err != nil {
		return nil, err
	}
	hit := &Hit{ReadName: l.ReadName, Sequence: l.Sequence}
	cand, hits, mismatches := l.StoredBest()
	if cand != nil {
		hit.setCandidate(cand)
	}
	hit.NumBestHits, hit.Mismatches = hits, mismatches
	return hit, nil
}

// hitFromListing derives uniqueness from the candidate list: the
// number of hits is the number of candidates tied at the minimum
// mismatch count.
func hitFromListing(l *eland.Line) *Hit {
	hit := &Hit{ReadName: l.ReadName, Sequence: l.Sequence}
	best, tied := l.BestOfCandidates()
	if best >= 0 {
		hit.setCandidate(&l.Candidates[best])
	}
	hit.NumBestHits = tied
	return hit
}

func decodeExtended(line string) (*Hit, error) {
	l, err := eland.ParseExtended(line)
	if err != nil {
		return nil, err
	}
	return hitFromListing(l), nil
}

func decodeMulti(line string) (*Hit, error) {
	l, err := eland.ParseMulti(line)
	if err != nil {
		return nil, err
	}
	return hitFromListing(l), nil
}

// SAM dialects.

func unstar(s string) string {
	if s == "*" {
		return ""
	}
	return s
}

// parseSamHit parses a SAM alignment line into a Hit with position
// information, but without uniqueness and mismatch information.
func parseSamHit(line string) (*sam.Alignment, *Hit, error) {
	aln, err := sam.ParseAlignment(line)
	if err != nil {
		return nil, nil, err
	}
	hit := &Hit{
		ReadName:   aln.QNAME,
		Chromosome: unstar(*aln.RNAME),
		Position:   aln.POS,
		Strand:     Forward,
		Sequence:   unstar(aln.SEQ),
		Quality:    unstar(aln.QUAL),
	}
	if aln.IsReversed() {
		hit.Strand = Reverse
	}
	if md, found := aln.StringTag(sam.MD); found {
		mismatches, err := sam.ParseMD(md)
		if err != nil {
			return nil, nil, err
		}
		subs := make([]eland.Substitution, len(mismatches))
		for i, m := range mismatches {
			subs[i] = eland.Substitution{Offset: m.Offset, Base: m.Base}
		}
		hit.setSubstitutions(subs)
		hit.describe(subs)
	}
	return aln, hit, nil
}

// countTag returns the first of the given integer tags that is
// present. Counts are never negative.
func countTag(aln *sam.Alignment, tags ...utils.Symbol) (value int, found bool, err error) {
	for _, tag := range tags {
		v, found, err := aln.IntTag(tag)
		if err != nil {
			return 0, true, err
		}
		if found {
			if v < 0 {
				return 0, true, fmt.Errorf("negative count %v in tag %v", v, *tag)
			}
			return int(v), true, nil
		}
	}
	return 0, false, nil
}

// mismatchCount returns the first of the given count tags that is
// present, falling back on the mismatches of the MD tag.
func mismatchCount(aln *sam.Alignment, hit *Hit, tags ...utils.Symbol) (int, bool, error) {
	value, found, err := countTag(aln, tags...)
	if err != nil || found {
		return value, found, err
	}
	if hit.MismatchPositions != nil {
		return int(hit.MismatchPositions.Count()), true, nil
	}
	return 0, false, nil
}

var errMissingMismatches = errors.New("mapped record without NM or MD tag")

// BWA reports the number of best hits in X0, and the number of
// mismatches in XM.
func decodeBwaSam(line string) (*Hit, error) {
	aln, hit, err := parseSamHit(line)
	if err != nil {
		return nil, err
	}
	if !aln.IsUnmapped() {
		if hit.NumBestHits, _, err = countTag(aln, sam.X0); err != nil {
			return nil, err
		}
	}
	if hit.Mismatches, _, err = mismatchCount(aln, hit, sam.XM, sam.NM); err != nil {
		return nil, err
	}
	return hit, nil
}

// bowtie reports only one alignment per read. XM holds the number of
// alignments when more than one was found.
func decodeBowtieSam(line string) (*Hit, error) {
	aln, hit, err := parseSamHit(line)
	if err != nil {
		return nil, err
	}
	if aln.IsUnmapped() {
		return hit, nil
	}
	alignments, _, err := countTag(aln, sam.XM)
	if err != nil {
		return nil, err
	}
	if hit.NumBestHits = 1; alignments > 1 {
		hit.NumBestHits = alignments
	}
	mismatches, found, err := mismatchCount(aln, hit, sam.NM)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errMissingMismatches
	}
	hit.Mismatches = mismatches
	return hit, nil
}

// ELAND's own SAM output records the edit distance in NM, and the
// number of alignments in NH when there is more than one.
func decodeElandSam(line string) (*Hit, error) {
	aln, hit, err := parseSamHit(line)
	if err != nil {
		return nil, err
	}
	if aln.IsUnmapped() {
		return hit, nil
	}
	alignments, found, err := countTag(aln, sam.NH)
	if err != nil {
		return nil, err
	}
	if hit.NumBestHits = 1; found {
		hit.NumBestHits = alignments
	}
	mismatches, found, err := mismatchCount(aln, hit, sam.NM)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errMissingMismatches
	}
	hit.Mismatches = mismatches
	return hit, nil
}

// Illumina's export2sam output does not show competing alignments.
// Such files must be filtered for uniqueness before, so every record
// counts as unique.
func decodeIlluminaSam(line string) (*Hit, error) {
	aln, hit, err := parseSamHit(line)
	if err != nil {
		return nil, err
	}
	hit.NumBestHits = 1
	if hit.MismatchPositions != nil {
		hit.Mismatches = int(hit.MismatchPositions.Count())
		return hit, nil
	}
	if hit.Mismatches, _, err = countTag(aln, sam.NM); err != nil {
		return nil, err
	}
	return hit, nil
}
