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
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFromName(t *testing.T) {
	tests := []struct {
		path string
		want Dialect
	}{
		{"s_1_eland_multi.txt", Multi},
		{"s_1_eland_extended.txt", Extended},
		{"s_1_eland_result.txt", Plain},
		{"/data/multi/extended/s_1_export.txt", Plain},
		{"lane_multi_extended.txt", Multi},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, DialectFromName(test.path), test.path)
	}
}

func TestDialectNames(t *testing.T) {
	for d := Extended; d <= ElandSam; d++ {
		parsed, err := ParseDialect(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
	_, err := ParseDialect("bam")
	assert.Error(t, err)
	assert.False(t, Dialect(0).Valid())
	assert.True(t, BowtieSam.IsSam())
	assert.False(t, Plain.IsSam())
}

func sniff(t *testing.T, s *Sniffer, path string) (Dialect, error) {
	t.Helper()
	stream, dialect, err := s.Sniff(context.Background(), path)
	if err != nil {
		assert.Nil(t, stream)
		return 0, err
	}
	require.NoError(t, stream.Close())
	return dialect, nil
}

func TestSniffSamByProgram(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		header string
		want   Dialect
	}{
		{"@PG\tID:bwa\tPN:bwa\tVN:0.5.9", BwaSam},
		{"@PG\tID:bowtie", BowtieSam},
		{"@PG\tID:illumina_export2sam.pl", IlluminaSam},
		{"@PG\tID:1\tPN:bowtie", BowtieSam},
	}
	for _, test := range tests {
		// the first alignment carries X0, so only the header can select the dialect
		path := writeFile(t, dir, "in.sam", test.header, samLine("r", 0, "chr1", 1, "ACGT", "X0:i:1"))
		dialect, err := sniff(t, &Sniffer{}, path)
		require.NoError(t, err, test.header)
		assert.Equal(t, test.want, dialect, test.header)
	}
}

func TestSniffSamUnknownProgramFallsBackOnTags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.sam",
		"@PG\tID:samtools",
		"@PG\tID:novoalign",
		samLine("r", 0, "chr1", 1, "ACGT", "AS:i:0", "NM:i:0", "X0:i:1"),
	)
	dialect, err := sniff(t, &Sniffer{}, path)
	require.NoError(t, err)
	assert.Equal(t, ElandSam, dialect)
}

func TestSniffSamByTags(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		tags []string
		want Dialect
	}{
		{[]string{"X0:i:1"}, BwaSam},
		{[]string{"NM:i:0"}, ElandSam},
		{[]string{"XA:i:0", "X0:i:1", "NM:i:0"}, BwaSam},
		{[]string{"AS:i:0"}, BowtieSam},
	}
	for _, test := range tests {
		path := writeFile(t, dir, "in.sam", samLine("r", 0, "chr1", 1, "ACGT", test.tags...))
		dialect, err := sniff(t, &Sniffer{}, path)
		require.NoError(t, err, test.tags)
		assert.Equal(t, test.want, dialect, test.tags)
	}
}

func TestSniffSamWithoutUniquenessInformation(t *testing.T) {
	dir := t.TempDir()
	for _, lines := range [][]string{
		{samLine("r", 0, "chr1", 1, "ACGT")},
		{"@HD\tVN:1.0"},
		{},
	} {
		path := writeFile(t, dir, "plain.sam", lines...)
		_, err := sniff(t, &Sniffer{}, path)
		var unrecognized *UnrecognizedFormatError
		require.True(t, errors.As(err, &unrecognized), "%v", lines)
		assert.Equal(t, path, unrecognized.Path)
	}
}

func TestSniffSamMalformedHeader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.sam", "@HD\tVN:1.0", "@SQ\tSNchr1")
	_, err := sniff(t, &Sniffer{}, path)
	var malformed *MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Line)
}

func TestSniffLeavesFirstAlignmentToReader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.sam",
		"@HD\tVN:1.0",
		samLine("first", 0, "chr1", 1, "ACGT", "X0:i:1"),
	)
	_, hits := readHits(t, &Sniffer{}, path)
	require.Len(t, hits, 1)
	assert.Equal(t, "first", hits[0].ReadName)
}

func TestSniffExplicitDialect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "reads.txt", ">r\tACGT\t1:0:0\tchr1:1F0")
	dialect, err := sniff(t, &Sniffer{Dialect: Multi}, path)
	require.NoError(t, err)
	assert.Equal(t, Multi, dialect)

	path = writeFile(t, dir, "reads.sam", "@PG\tID:bwa", samLine("r", 0, "chr1", 1, "ACGT", "NH:i:1", "NM:i:0"))
	_, hits := readHits(t, &Sniffer{Dialect: ElandSam}, path)
	require.Len(t, hits, 1)
	assert.Equal(t, "r", hits[0].ReadName)

	bam := writeFile(t, dir, "reads.bam")
	_, err = sniff(t, &Sniffer{Dialect: Plain, Decoder: fakeDecoder{}}, bam)
	var unrecognized *UnrecognizedFormatError
	assert.True(t, errors.As(err, &unrecognized))
}

func TestSniffBamRemovesDecodedFile(t *testing.T) {
	dir, tmp := t.TempDir(), t.TempDir()
	bam := writeFile(t, dir, "lane1.bam")
	decoder := fakeDecoder{text: "@PG\tID:bwa\n" + samLine("r", 0, "chr1", 1, "ACGT", "X0:i:1", "XM:i:0") + "\n"}
	s := &Sniffer{Decoder: decoder, TempDir: tmp}

	stream, dialect, err := s.Sniff(context.Background(), bam)
	require.NoError(t, err)
	assert.Equal(t, BwaSam, dialect)
	assert.Equal(t, bam, stream.Path)
	assert.Len(t, dirEntries(t, tmp), 1)

	reader, err := NewReader(stream, dialect)
	require.NoError(t, err)
	hit, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, hit.NumBestHits)
	_, err = reader.Read()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, reader.Close())
	assert.Empty(t, dirEntries(t, tmp))
}

func TestSniffBamCleansUpOnFailure(t *testing.T) {
	dir, tmp := t.TempDir(), t.TempDir()
	bam := writeFile(t, dir, "lane1.bam")

	failure := errors.New("truncated BAM file")
	_, err := sniff(t, &Sniffer{Decoder: fakeDecoder{text: "@PG\tID:bwa\n", err: failure}, TempDir: tmp}, bam)
	var conversion *ExternalConversionError
	require.True(t, errors.As(err, &conversion))
	assert.Equal(t, bam, conversion.Path)
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, dirEntries(t, tmp))

	// decoded, but nothing to recognize
	_, err = sniff(t, &Sniffer{Decoder: fakeDecoder{text: samLine("r", 0, "chr1", 1, "ACGT") + "\n"}, TempDir: tmp}, bam)
	var unrecognized *UnrecognizedFormatError
	require.True(t, errors.As(err, &unrecognized))
	assert.Empty(t, dirEntries(t, tmp))
}

func TestSniffBamDecodeTimeout(t *testing.T) {
	dir, tmp := t.TempDir(), t.TempDir()
	bam := writeFile(t, dir, "slow.bam")
	s := &Sniffer{Decoder: blockingDecoder{}, DecodeTimeout: 20 * time.Millisecond, TempDir: tmp}

	start := time.Now()
	_, err := sniff(t, s, bam)
	assert.Less(t, time.Since(start), 10*time.Second)
	var conversion *ExternalConversionError
	require.True(t, errors.As(err, &conversion))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, dirEntries(t, tmp))
}

func TestNewDecoder(t *testing.T) {
	d, err := NewDecoder("", "")
	require.NoError(t, err)
	assert.Equal(t, SamtoolsDecoder{}, d)

	d, err = NewDecoder(SamtoolsDecoderName, "/opt/bin/samtools")
	require.NoError(t, err)
	assert.Equal(t, SamtoolsDecoder{Path: "/opt/bin/samtools"}, d)

	d, err = NewDecoder(NativeDecoderName, "")
	require.NoError(t, err)
	assert.Equal(t, NativeDecoder{}, d)

	_, err = NewDecoder("picard", "")
	assert.Error(t, err)
}

func TestNativeDecoderRejectsNonBam(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fake.bam", "not a bam file")
	var sink discard
	assert.Error(t, NativeDecoder{}.Decode(context.Background(), path, &sink))
}

type discard struct{ n int }

func (d *discard) Write(p []byte) (int, error) {
	d.n += len(p)
	return len(p), nil
}
