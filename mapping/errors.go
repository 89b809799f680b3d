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

import "fmt"

// A MissingInputFileError reports an input file that does not
// exist. Merges fail with it before the output file is touched.
type MissingInputFileError struct {
	Path string
	Err  error
}

func (e *MissingInputFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input file %v cannot be accessed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("input file %v does not exist", e.Path)
}

func (e *MissingInputFileError) Unwrap() error { return e.Err }

// An UnrecognizedFormatError reports a file whose dialect cannot be
// determined, or that carries no information about uniqueness.
type UnrecognizedFormatError struct {
	Path   string
	Reason string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("cannot determine the mapping format of %v: %v", e.Path, e.Reason)
}

// A MalformedRecordError reports a line that does not fit the schema
// of the dialect of its file. Line is 1-based.
type MalformedRecordError struct {
	Path string
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record in %v, line %v: %v", e.Path, e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// An ExternalConversionError reports a BAM file that could not be
// decoded into SAM text.
type ExternalConversionError struct {
	Path string
	Err  error
}

func (e *ExternalConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v to SAM: %v", e.Path, e.Err)
}

func (e *ExternalConversionError) Unwrap() error { return e.Err }
