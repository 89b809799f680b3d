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
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	htssam "github.com/biogo/hts/sam"

	"github.com/dnanexus/Scoring/internal"
	"github.com/dnanexus/Scoring/sam"
)

// A Decoder turns a BAM file into SAM text, header included.
// Decode must return when ctx is done.
type Decoder interface {
	Decode(ctx context.Context, path string, w io.Writer) error
}

// SamtoolsDecoder decodes BAM files by running samtools view -h.
type SamtoolsDecoder struct {
	// Path is the samtools executable; "samtools" if empty.
	Path string
}

// Decode implements the Decoder interface.
func (d SamtoolsDecoder) Decode(ctx context.Context, path string, w io.Writer) error {
	return sam.ViewBam(ctx, d.Path, path, w)
}

// NativeDecoder decodes BAM files in-process.
type NativeDecoder struct{}

// Decode implements the Decoder interface.
func (NativeDecoder) Decode(ctx context.Context, path string, w io.Writer) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer internal.Close(f, &err)
	br, err := bam.NewReader(f, 0)
	if err != nil {
		return err
	}
	defer internal.Close(br, &err)
	sw, err := htssam.NewWriter(w, br.Header(), htssam.FlagDecimal)
	if err != nil {
		return err
	}
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, err := br.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sw.Write(rec); err != nil {
			return err
		}
	}
}

// Decoder names accepted by NewDecoder.
const (
	SamtoolsDecoderName = "samtools"
	NativeDecoderName   = "native"
)

// NewDecoder returns the decoder with the given name. samtools is
// the executable used by the samtools decoder.
func NewDecoder(name, samtools string) (Decoder, error) {
	switch name {
	case "", SamtoolsDecoderName:
		return SamtoolsDecoder{Path: samtools}, nil
	case NativeDecoderName:
		return NativeDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown BAM decoder %q", name)
	}
}
