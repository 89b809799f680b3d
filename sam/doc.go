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

// Package sam parses the text form of SAM files as far as the
// mapping merger needs it: header lines, with lookup of the programs
// recorded in @PG lines, and alignment lines with their optional
// typed tags.
//
// BAM input is not decoded here. ViewBam hands BAM files to an
// external samtools process, which produces the text form that this
// package parses.
//
// See http://samtools.github.io/hts-specs/SAMv1.pdf for the
// specification of the SAM file format.
package sam
