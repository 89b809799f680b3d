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

// Package mapping merges short-read mapping files written by
// different aligners into one file of uniquely mapped reads.
//
// Every input file is read in one of seven dialects: the legacy
// ELAND plain, extended, and multi formats, and the SAM flavours
// written by BWA, bowtie, Illumina's export2sam converter, and
// ELAND itself. A Sniffer selects the dialect of a file once, from
// its name and its SAM header or first alignment line, and a Reader
// for that dialect turns its lines into Hit values. Convert keeps
// the hits that map uniquely within a mismatch limit and turns them
// into canonical eland.Record rows, which a Merger appends to a
// single output file, in the order in which the input files are
// given.
//
// BAM files are first decoded into temporary SAM files by a Decoder,
// either by running samtools, or in-process.
package mapping
