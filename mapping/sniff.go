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
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dnanexus/Scoring/sam"
)

// Program names in @PG header lines that select a SAM dialect.
var samPrograms = map[string]Dialect{
	"bwa":                    BwaSam,
	"bowtie":                 BowtieSam,
	"illumina_export2sam.pl": IlluminaSam,
}

// A Sniffer opens input files and determines their dialect.
//
// Files ending in .bam are decoded into a temporary SAM file first,
// which is removed again when the returned Stream is closed, or
// immediately if sniffing fails. Files ending in .bam or .sam are
// recognized by the program named in their header, or else by the
// tags of their first alignment line. All other files are legacy
// ELAND files, recognized by their names.
type Sniffer struct {
	// Decoder decodes BAM files; a SamtoolsDecoder if nil.
	Decoder Decoder

	// DecodeTimeout bounds the time spent decoding one BAM file.
	// Zero means no bound.
	DecodeTimeout time.Duration

	// TempDir receives the decoded SAM files; os.TempDir() if empty.
	TempDir string

	// Dialect, if valid, is used for every file instead of guessing
	// it. Headers of SAM files are still skipped.
	Dialect Dialect
}

// Sniff opens the given file and determines its dialect. The
// returned Stream is positioned at the first data record.
func (s *Sniffer) Sniff(ctx context.Context, path string) (stream *Stream, dialect Dialect, err error) {
	isBam := strings.HasSuffix(path, sam.BamExt)
	isSam := isBam || strings.HasSuffix(path, sam.SamExt)
	if isBam && s.Dialect.Valid() && !s.Dialect.IsSam() {
		return nil, 0, &UnrecognizedFormatError{Path: path, Reason: fmt.Sprintf("BAM file cannot be read as %v", s.Dialect)}
	}
	if isBam {
		stream, err = s.decodeBam(ctx, path)
	} else {
		stream, err = openStream(path, path)
	}
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err != nil {
			_ = stream.Close()
			stream = nil
		}
	}()
	switch {
	case s.Dialect.Valid():
		dialect = s.Dialect
		if dialect.IsSam() {
			_, err = sniffSamHeader(stream)
		}
	case isSam:
		dialect, err = sniffSam(stream)
	default:
		dialect = DialectFromName(path)
	}
	return stream, dialect, err
}

func (s *Sniffer) decodeBam(ctx context.Context, path string) (stream *Stream, err error) {
	decoder := s.Decoder
	if decoder == nil {
		decoder = SamtoolsDecoder{}
	}
	dir := s.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	artifact := filepath.Join(dir, filepath.Base(path)+"."+uuid.New().String()+sam.SamExt)
	remove := func() error {
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	defer func() {
		if err != nil {
			_ = remove()
		}
	}()
	f, err := os.Create(artifact)
	if err != nil {
		return nil, &ExternalConversionError{Path: path, Err: err}
	}
	if s.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.DecodeTimeout)
		defer cancel()
	}
	log.Printf("Decoding %v into %v.\n", path, artifact)
	w := bufio.NewWriter(f)
	err = decoder.Decode(ctx, path, w)
	if err == nil {
		err = w.Flush()
	}
	if nerr := f.Close(); err == nil {
		err = nerr
	}
	if err != nil {
		return nil, &ExternalConversionError{Path: path, Err: err}
	}
	if stream, err = openStream(path, artifact); err != nil {
		return nil, &ExternalConversionError{Path: path, Err: err}
	}
	stream.closers = append(stream.closers, remove)
	return stream, nil
}

func sniffSamHeader(stream *Stream) (*sam.Header, error) {
	hdr, lines, err := sam.ParseHeader(stream.reader)
	stream.line += lines
	if err != nil {
		return nil, &MalformedRecordError{Path: stream.Path, Line: stream.line, Err: err}
	}
	return hdr, nil
}

// sniffSam determines the dialect of a SAM file, first by the
// programs in its header, then by the tags of its first alignment.
// The header is consumed, the first alignment is not.
func sniffSam(stream *Stream) (Dialect, error) {
	hdr, err := sniffSamHeader(stream)
	if err != nil {
		return 0, err
	}
	for _, program := range hdr.Programs() {
		if dialect, found := samPrograms[program]; found {
			return dialect, nil
		}
	}
	line, err := stream.readLine()
	if err == io.EOF {
		return 0, &UnrecognizedFormatError{Path: stream.Path, Reason: "no known program in SAM header and no alignments"}
	}
	if err != nil {
		return 0, err
	}
	stream.unreadLine(line)
	fields := strings.Split(line, "\t")
	if len(fields) > sam.MandatoryFields {
		for _, field := range fields[sam.MandatoryFields:] {
			switch {
			case strings.HasPrefix(field, "X0:"):
				return BwaSam, nil
			case strings.HasPrefix(field, "NM:"):
				return ElandSam, nil
			}
		}
	}
	if len(fields) == sam.MandatoryFields {
		return 0, &UnrecognizedFormatError{Path: stream.Path, Reason: "SAM alignments without optional tags carry no uniqueness information"}
	}
	return BowtieSam, nil
}
