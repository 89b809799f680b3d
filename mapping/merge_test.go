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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outputLines(t *testing.T, path string) []string {
	t.Helper()
	text := strings.TrimSuffix(readFile(t, path), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// column returns the given 0-based column of every line.
func column(lines []string, index int) []string {
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = strings.Split(line, "\t")[index]
	}
	return result
}

func TestMergePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a_eland_multi.txt",
		">a1\tACGT\t1:0:0\tchr1:100F0",
		">a2\tACGT\t0:2:0\tchr1:200F1,300R1",
		">a3\tACGT\t0:1:0\tchr1:400R1",
	)
	b := writeFile(t, dir, "b.sam",
		"@PG\tID:bwa",
		samLine("b1", 0, "chr2", 10, "ACGT", "X0:i:1", "XM:i:0"),
		samLine("b2", 0, "chr2", 20, "ACGT", "X0:i:1", "XM:i:3"),
		samLine("b3", 16, "chr2", 30, "ACGT", "X0:i:1", "XM:i:2"),
	)
	output := filepath.Join(dir, "merged_eland.txt")

	var progress []FileCounters
	m := NewMerger(WithProgress(func(c FileCounters) { progress = append(progress, c) }))
	counters, err := m.Merge(context.Background(), output, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, AllDone, m.State())

	lines := outputLines(t, output)
	assert.Equal(t, []string{"a1", "a3", "b1", "b3"}, column(lines, 0))
	assert.Equal(t, []string{"chr1", "chr1", "chr2", "chr2"}, column(lines, 8))
	assert.Equal(t, []string{"100", "400", "10", "30"}, column(lines, 9))
	assert.Equal(t, []string{"F", "R", "F", "R"}, column(lines, 10))
	for _, line := range lines {
		assert.Len(t, strings.Split(line, "\t"), 12)
	}

	want := []FileCounters{
		{Path: a, Dialect: Multi, Seen: 3, Passed: 2},
		{Path: b, Dialect: BwaSam, Seen: 3, Passed: 2},
	}
	assert.Equal(t, want, counters)
	assert.Equal(t, want, progress)
}

func TestMergeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "s_1_eland_extended.txt",
		">r1\tACGTACGTAC\t1:2:0\tchr1.fa:1000F10,2000R4A5",
		">r2\tACGTACGTAC\t0:1:0\tchr1.fa:3000F4A5",
		">r3\tACGTACGTAC\tNM\t-",
	)
	first, second := filepath.Join(dir, "first.txt"), filepath.Join(dir, "second.txt")
	_, err := Merge(context.Background(), first, []string{input})
	require.NoError(t, err)
	_, err = Merge(context.Background(), second, []string{input})
	require.NoError(t, err)
	assert.Equal(t, readFile(t, first), readFile(t, second))
	assert.Len(t, outputLines(t, first), 2)

	// merging again into the same file replaces its content
	_, err = Merge(context.Background(), first, []string{input})
	require.NoError(t, err)
	assert.Equal(t, readFile(t, second), readFile(t, first))
}

func TestMergePlainScenario(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "s_1_eland_result.txt",
		">r1\tACGTACGTAC\tU1\t0\t1\t0\tchr1\t1000\tF\t..\t5G",
		">r2\tACGTACGTAC\tR1\t0\t2\t0",
	)
	output := filepath.Join(dir, "out.txt")
	counters, err := Merge(context.Background(), output, []string{input}, WithMismatches(2))
	require.NoError(t, err)
	lines := outputLines(t, output)
	require.Len(t, lines, 1)
	fields := strings.Split(lines[0], "\t")
	assert.Equal(t, "chr1", fields[8])
	assert.Equal(t, "1000", fields[9])
	assert.Equal(t, "U1", fields[7])
	assert.Equal(t, []FileCounters{{Path: input, Dialect: Plain, Seen: 2, Passed: 1}}, counters)
}

func TestMergeMismatchThreshold(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "bwa.sam",
		"@PG\tID:bwa",
		samLine("r1", 0, "chr1", 100, "ACGT", "X0:i:1", "XM:i:3"),
	)
	output := filepath.Join(dir, "out.txt")
	counters, err := Merge(context.Background(), output, []string{input})
	require.NoError(t, err)
	assert.Empty(t, readFile(t, output))
	assert.Equal(t, 0, counters[0].Passed)

	counters, err = Merge(context.Background(), output, []string{input}, WithMismatches(3))
	require.NoError(t, err)
	assert.Equal(t, 1, counters[0].Passed)
	assert.Len(t, outputLines(t, output), 1)
}

func TestMergePreflight(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a_multi.txt", ">a1\tACGT\t1:0:0\tchr1:100F0")
	c := writeFile(t, dir, "c_multi.txt", ">c1\tACGT\t1:0:0\tchr1:100F0")
	missing := filepath.Join(dir, "b_multi.txt")
	output := filepath.Join(dir, "out.txt")

	m := NewMerger()
	counters, err := m.Merge(context.Background(), output, []string{a, missing, c})
	var notFound *MissingInputFileError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, missing, notFound.Path)
	assert.Nil(t, counters)
	assert.Equal(t, Aborted, m.State())
	assert.NoFileExists(t, output)

	require.NoError(t, os.WriteFile(output, []byte("previous\n"), 0666))
	_, err = m.Merge(context.Background(), output, []string{missing})
	assert.Error(t, err)
	assert.Equal(t, "previous\n", readFile(t, output))

	_, err = m.Merge(context.Background(), output, []string{dir})
	assert.True(t, errors.As(err, &notFound))

	_, err = m.Merge(context.Background(), output, nil)
	assert.Error(t, err)
	assert.Equal(t, "previous\n", readFile(t, output))
}

func malformedInputs(t *testing.T, dir string) []string {
	good := writeFile(t, dir, "good_multi.txt",
		">g1\tACGT\t1:0:0\tchr1:100F0",
		">g2\tACGT\t1:0:0\tchr1:200F0",
	)
	bad := writeFile(t, dir, "bad_extended.txt",
		">x1\tACGT\t1:0:0\tchr1:100F4",
		">x2\tACGT\t1:0:0",
		">x3\tACGT\t1:0:0\tchr1:300F4",
	)
	last := writeFile(t, dir, "last_multi.txt", ">l1\tACGT\t1:0:0\tchr1:100F0")
	return []string{good, bad, last}
}

func TestMergeAbortsOnMalformedExtended(t *testing.T) {
	dir := t.TempDir()
	inputs := malformedInputs(t, dir)
	output := filepath.Join(dir, "out.txt")

	m := NewMerger()
	counters, err := m.Merge(context.Background(), output, inputs)
	var malformed *MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, inputs[1], malformed.Path)
	assert.Equal(t, 2, malformed.Line)
	assert.Equal(t, Aborted, m.State())

	require.Len(t, counters, 1)
	assert.Equal(t, inputs[0], counters[0].Path)
	// records of the files before the failure remain
	assert.Equal(t, []string{"g1", "g2", "x1"}, column(outputLines(t, output), 0))
}

func TestMergeAtomic(t *testing.T) {
	dir := t.TempDir()
	inputs := malformedInputs(t, dir)
	output := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(output, []byte("previous\n"), 0666))

	_, err := Merge(context.Background(), output, inputs, WithAtomic(true))
	require.Error(t, err)
	assert.Equal(t, "previous\n", readFile(t, output))

	_, err = Merge(context.Background(), output, []string{inputs[0]}, WithAtomic(true), WithAppend(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"previous", "g1", "g2"}, column(outputLines(t, output), 0))

	_, err = Merge(context.Background(), output, []string{inputs[2]}, WithAtomic(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, column(outputLines(t, output), 0))

	for _, name := range dirEntries(t, dir) {
		assert.False(t, strings.HasPrefix(name, ".out.txt."), name)
	}
}

func TestMergeAppend(t *testing.T) {
	dir := t.TempDir()
	inputs := malformedInputs(t, dir)
	output := filepath.Join(dir, "out.txt")
	_, err := Merge(context.Background(), output, []string{inputs[0]})
	require.NoError(t, err)
	_, err = Merge(context.Background(), output, []string{inputs[2]}, WithAppend(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "l1"}, column(outputLines(t, output), 0))
}

func TestMergeBamInput(t *testing.T) {
	dir, tmp := t.TempDir(), t.TempDir()
	bam := writeFile(t, dir, "lane.bam")
	var text bytes.Buffer
	text.WriteString("@HD\tVN:1.0\n@PG\tID:bwa\tPN:bwa\n")
	text.WriteString(samLine("r1", 0, "chr1", 5, "ACGT", "X0:i:1", "XM:i:1", "MD:Z:1G2") + "\n")
	text.WriteString(samLine("r2", 0, "chr1", 9, "ACGT", "X0:i:3") + "\n")
	output := filepath.Join(dir, "out.txt")

	counters, err := Merge(context.Background(), output, []string{bam},
		WithDecoder(fakeDecoder{text: text.String()}), WithTempDir(tmp))
	require.NoError(t, err)
	assert.Equal(t, []FileCounters{{Path: bam, Dialect: BwaSam, Seen: 2, Passed: 1}}, counters)
	assert.Equal(t, []string{"1G2"}, column(outputLines(t, output), 11))
	assert.Empty(t, dirEntries(t, tmp))

	_, err = Merge(context.Background(), output, []string{bam},
		WithDecoder(fakeDecoder{err: errors.New("samtools crashed")}), WithTempDir(tmp))
	var conversion *ExternalConversionError
	assert.True(t, errors.As(err, &conversion))
	assert.Empty(t, dirEntries(t, tmp))
}

func TestMergeExplicitDialect(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "reads.txt", ">r\tACGT\t1:0:0\tchr1:100F0")
	output := filepath.Join(dir, "out.txt")

	_, err := Merge(context.Background(), output, []string{input})
	assert.Error(t, err, "reads.txt is read as a plain result file by default")

	counters, err := Merge(context.Background(), output, []string{input}, WithDialect(Multi))
	require.NoError(t, err)
	assert.Equal(t, Multi, counters[0].Dialect)
	assert.Len(t, outputLines(t, output), 1)
}

func TestMergeCanceled(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "a_multi.txt", ">a1\tACGT\t1:0:0\tchr1:100F0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMerger()
	_, err := m.Merge(ctx, filepath.Join(dir, "out.txt"), []string{input})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, m.State())
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "preflight", Preflight.String())
	assert.Equal(t, "all done", AllDone.String())
	assert.Equal(t, "State(42)", State(42).String())
}
