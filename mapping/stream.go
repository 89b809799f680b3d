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
	"bufio"
	"io"
	"os"
	"strings"
)

const streamBufferSize = 1 << 16

// A Stream is an open mapping file, positioned at its first data
// record once the Sniffer is done with it. Closing a Stream closes
// the file and removes any temporary file it was decoded into.
type Stream struct {
	// Path is the input file name used in error messages.
	Path string

	reader  *bufio.Reader
	line    int
	pending *string
	closers []func() error
}

func openStream(path, file string) (*Stream, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	return &Stream{
		Path:    path,
		reader:  bufio.NewReaderSize(f, streamBufferSize),
		closers: []func() error{f.Close},
	}, nil
}

// Line returns the 1-based number of the line read last.
func (s *Stream) Line() int {
	return s.line
}

// readLine returns the next non-empty line without its terminator,
// or io.EOF.
func (s *Stream) readLine() (string, error) {
	if s.pending != nil {
		line := *s.pending
		s.pending = nil
		s.line++
		return line, nil
	}
	for {
		raw, err := s.reader.ReadString('\n')
		if raw == "" && err != nil {
			return "", err
		}
		if err != nil && err != io.EOF {
			return "", err
		}
		s.line++
		if line := strings.TrimRight(raw, "\r\n"); line != "" {
			return line, nil
		}
		if err == io.EOF {
			return "", io.EOF
		}
	}
}

// unreadLine pushes back the line returned by the last readLine.
func (s *Stream) unreadLine(line string) {
	s.pending = &line
	s.line--
}

// Close releases all resources of the stream. It reports the first
// error encountered, but always runs all clean-up steps.
func (s *Stream) Close() (err error) {
	for _, c := range s.closers {
		if nerr := c(); nerr != nil && err == nil {
			err = nerr
		}
	}
	s.closers = nil
	return err
}
