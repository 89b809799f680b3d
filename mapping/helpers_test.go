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
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// readHits sniffs a file with the given sniffer and returns all of
// its hits.
func readHits(t *testing.T, s *Sniffer, path string) (Dialect, []*Hit) {
	t.Helper()
	stream, dialect, err := s.Sniff(context.Background(), path)
	require.NoError(t, err)
	reader, err := NewReader(stream, dialect)
	require.NoError(t, err)
	defer func() { require.NoError(t, reader.Close()) }()
	var hits []*Hit
	for {
		hit, err := reader.Read()
		if err == io.EOF {
			return dialect, hits
		}
		require.NoError(t, err)
		hits = append(hits, hit)
	}
}

// samLine joins the mandatory columns of an alignment with its tags.
func samLine(name string, flag int, chrom string, pos int, seq string, tags ...string) string {
	qual := strings.Repeat("I", len(seq))
	fields := []string{name, strconv.Itoa(flag), chrom, strconv.Itoa(pos), "37", strconv.Itoa(len(seq)) + "M", "*", "0", "0", seq, qual}
	return strings.Join(append(fields, tags...), "\t")
}

// fakeDecoder writes fixed SAM text instead of decoding a BAM file.
type fakeDecoder struct {
	text string
	err  error
}

func (d fakeDecoder) Decode(_ context.Context, _ string, w io.Writer) error {
	if _, err := io.WriteString(w, d.text); err != nil {
		return err
	}
	return d.err
}

// blockingDecoder never finishes on its own.
type blockingDecoder struct{}

func (blockingDecoder) Decode(ctx context.Context, _ string, w io.Writer) error {
	_, _ = io.WriteString(w, "@PG\tID:bwa\n")
	<-ctx.Done()
	return ctx.Err()
}
