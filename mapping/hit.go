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
	"github.com/bits-and-blooms/bitset"

	"github.com/dnanexus/Scoring/eland"
)

// A Strand is the strand a read maps to, F or R.
type Strand byte

// Strands.
const (
	Forward Strand = 'F'
	Reverse Strand = 'R'
)

// A Hit is the dialect-independent view of one input record: where
// the read maps best, and how many equally good positions there are.
type Hit struct {
	ReadName   string
	Chromosome string
	Position   int32 // 1-based
	Strand     Strand
	Sequence   string
	Quality    string

	// NumBestHits is the number of positions tied at the best
	// mismatch count. A read maps uniquely iff NumBestHits == 1.
	NumBestHits int

	// Mismatches is the mismatch count of the best hit. It is
	// meaningless if NumBestHits is 0.
	Mismatches int

	// MismatchPositions holds the 0-based read offsets of the
	// mismatches of the best hit, or is nil if the dialect does not
	// record them.
	MismatchPositions *bitset.BitSet

	// Descriptor is the ELAND match descriptor of the best hit, or
	// empty if it is not known.
	Descriptor string
}

// setSubstitutions records the mismatch offsets of the best hit.
func (hit *Hit) setSubstitutions(subs []eland.Substitution) {
	positions := bitset.New(uint(len(hit.Sequence)))
	for _, sub := range subs {
		positions.Set(uint(sub.Offset))
	}
	hit.MismatchPositions = positions
}

// describe sets the match descriptor from a complete list of
// substitutions, unless a descriptor is already known.
func (hit *Hit) describe(subs []eland.Substitution) {
	if hit.Descriptor == "" && len(hit.Sequence) > 0 {
		hit.Descriptor = eland.FormatDescriptor(len(hit.Sequence), subs)
	}
}

func (hit *Hit) setCandidate(cand *eland.Candidate) {
	hit.Chromosome = cand.Chromosome
	hit.Position = cand.Position
	hit.Strand = Strand(cand.Strand)
	hit.Mismatches = cand.Mismatches
	hit.Descriptor = cand.Descriptor
	if cand.Substitutions != nil || cand.Mismatches == 0 {
		hit.setSubstitutions(cand.Substitutions)
	}
	if len(cand.Substitutions) == cand.Mismatches {
		hit.describe(cand.Substitutions)
	}
}
