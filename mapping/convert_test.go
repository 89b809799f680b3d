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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	unique := Hit{
		ReadName:    "HWUSI-EAS100R:6:73:941:1973#0/1",
		Chromosome:  "chr1",
		Position:    1000,
		Strand:      Forward,
		Sequence:    "ACGTACGTAC",
		NumBestHits: 1,
		Mismatches:  1,
		Descriptor:  "4G5",
	}

	rec, ok := Convert(&unique, DefaultMismatches)
	assert.True(t, ok)
	assert.Equal(t, "chr1", rec.Chromosome)
	assert.Equal(t, int32(1000), rec.Position)
	assert.Equal(t, byte('F'), rec.Strand)
	assert.Equal(t, "U1", rec.MatchCode)
	assert.Equal(t, "4G5", rec.Descriptor)
	assert.Equal(t, "HWUSI-EAS100R", rec.Machine)
	assert.Equal(t, int32(6), rec.Lane)
	assert.Equal(t,
		"HWUSI-EAS100R\t6\t73\t941\t1973\tACGTACGTAC\t*\tU1\tchr1\t1000\tF\t4G5\n",
		string(rec.Format(nil)))

	tests := []struct {
		name        string
		hits        int
		mismatches  int
		threshold   int
		wantConvert bool
	}{
		{"no hits", 0, 0, 2, false},
		{"tied best hits", 2, 0, 2, false},
		{"many hits", 17, 1, 2, false},
		{"at threshold", 1, 2, 2, true},
		{"above threshold", 1, 3, 2, false},
		{"zero threshold", 1, 0, 0, true},
		{"zero threshold with mismatch", 1, 1, 0, false},
	}
	for _, test := range tests {
		hit := unique
		hit.NumBestHits, hit.Mismatches = test.hits, test.mismatches
		_, ok := Convert(&hit, test.threshold)
		assert.Equal(t, test.wantConvert, ok, test.name)
	}
}

func TestConvertFillsPlaceholders(t *testing.T) {
	rec, ok := Convert(&Hit{ReadName: "r1", NumBestHits: 1}, DefaultMismatches)
	assert.True(t, ok)
	assert.Equal(t, "r1\t0\t0\t0\t0\tNA\t*\tU0\tNA\t0\tNA\t*\n", string(rec.Format(nil)))
}
