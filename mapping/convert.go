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

import "github.com/dnanexus/Scoring/eland"

// DefaultMismatches is the default mismatch threshold.
const DefaultMismatches = 2

// Convert keeps a hit iff it maps uniquely, with at most threshold
// mismatches, and returns it as a canonical record. Fields the hit
// does not know are filled with placeholders when the record is
// formatted.
func Convert(hit *Hit, threshold int) (rec eland.Record, ok bool) {
	if hit.NumBestHits != 1 || hit.Mismatches > threshold {
		return rec, false
	}
	rec.SetIdentifiers(hit.ReadName)
	rec.Sequence = hit.Sequence
	rec.Quality = hit.Quality
	rec.MatchCode = eland.UniqueCode(hit.Mismatches)
	rec.Chromosome = hit.Chromosome
	rec.Position = hit.Position
	rec.Strand = byte(hit.Strand)
	rec.Descriptor = hit.Descriptor
	return rec, true
}
