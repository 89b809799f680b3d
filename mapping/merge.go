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
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dnanexus/Scoring/internal"
)

// A State is a step in a merge.
type State int

// Merge states. AllDone and Aborted are terminal.
const (
	Preflight State = iota
	Sniffing
	Streaming
	FileDone
	AllDone
	Aborted
)

var stateNames = [...]string{
	Preflight: "preflight",
	Sniffing:  "sniffing",
	Streaming: "streaming",
	FileDone:  "file done",
	AllDone:   "all done",
	Aborted:   "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// FileCounters reports how many records of one input file were read,
// and how many of them were written to the output.
type FileCounters struct {
	Path    string  `yaml:"path"`
	Dialect Dialect `yaml:"dialect"`
	Seen    int     `yaml:"seen"`
	Passed  int     `yaml:"passed"`
}

// A Merger merges mapping files into one file of uniquely mapped
// reads. A Merger runs one merge at a time.
type Merger struct {
	mismatches   int
	sniffer      Sniffer
	appendOutput bool
	atomic       bool
	progress     func(FileCounters)
	state        State
}

// An Option configures a Merger.
type Option func(*Merger)

// WithMismatches sets the maximum number of mismatches of a kept
// hit. The default is DefaultMismatches.
func WithMismatches(n int) Option {
	return func(m *Merger) { m.mismatches = n }
}

// WithDecoder sets the decoder for BAM files.
func WithDecoder(d Decoder) Option {
	return func(m *Merger) { m.sniffer.Decoder = d }
}

// WithDecodeTimeout bounds the time spent decoding one BAM file.
func WithDecodeTimeout(timeout time.Duration) Option {
	return func(m *Merger) { m.sniffer.DecodeTimeout = timeout }
}

// WithTempDir sets the directory for decoded BAM files.
func WithTempDir(dir string) Option {
	return func(m *Merger) { m.sniffer.TempDir = dir }
}

// WithDialect reads every input file in the given dialect instead
// of sniffing it.
func WithDialect(d Dialect) Option {
	return func(m *Merger) { m.sniffer.Dialect = d }
}

// WithAppend appends to an existing output file instead of
// truncating it.
func WithAppend(appendOutput bool) Option {
	return func(m *Merger) { m.appendOutput = appendOutput }
}

// WithAtomic writes the output to a temporary file that replaces the
// output file only if the whole merge succeeds. Without it, a failed
// merge leaves the records of the files processed before the failure
// in the output file.
func WithAtomic(atomic bool) Option {
	return func(m *Merger) { m.atomic = atomic }
}

// WithProgress registers a function that receives the counters of
// each input file as soon as that file is done.
func WithProgress(f func(FileCounters)) Option {
	return func(m *Merger) { m.progress = f }
}

// NewMerger returns a Merger with the given options.
func NewMerger(options ...Option) *Merger {
	m := &Merger{mismatches: DefaultMismatches}
	for _, option := range options {
		option(m)
	}
	return m
}

// Merge merges the sources into the output file with a new Merger.
func Merge(ctx context.Context, output string, sources []string, options ...Option) ([]FileCounters, error) {
	return NewMerger(options...).Merge(ctx, output, sources)
}

// State returns the state the last merge is in, or ended in.
func (m *Merger) State() State {
	return m.state
}

func (m *Merger) setState(state State) {
	m.state = state
}

// CheckInputs verifies that all input files exist, and reports the
// first one that does not.
func CheckInputs(sources []string) error {
	for _, source := range sources {
		info, err := os.Stat(source)
		switch {
		case os.IsNotExist(err):
			return &MissingInputFileError{Path: source}
		case err != nil:
			return &MissingInputFileError{Path: source, Err: err}
		case info.IsDir():
			return &MissingInputFileError{Path: source, Err: errors.New("is a directory")}
		}
	}
	return nil
}

// Merge reads the sources in the given order and appends the
// uniquely mapped reads of each to the output file, in input order.
// It stops at the first error. Before any source is read, all of
// them are checked to exist, and the output file is not touched if
// one does not.
func (m *Merger) Merge(ctx context.Context, output string, sources []string) (counters []FileCounters, err error) {
	m.setState(Preflight)
	defer func() {
		if err != nil {
			m.setState(Aborted)
			log.Printf("Merge into %v aborted: %v\n", output, err)
		}
	}()
	if len(sources) == 0 {
		return nil, errors.New("no input files to merge")
	}
	if err = CheckInputs(sources); err != nil {
		return nil, err
	}

	out, commit, err := m.createOutput(output)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(out)
	defer func() {
		if nerr := w.Flush(); err == nil {
			err = nerr
		}
		if nerr := out.Close(); err == nil {
			err = nerr
		}
		if nerr := commit(err == nil); err == nil {
			err = nerr
		}
	}()

	for _, source := range sources {
		var c FileCounters
		c, err = m.mergeFile(ctx, w, source)
		if err != nil {
			return counters, err
		}
		m.setState(FileDone)
		log.Printf("%v: total records %v, total passed %v\n", source, c.Seen, c.Passed)
		counters = append(counters, c)
		if m.progress != nil {
			m.progress(c)
		}
	}
	m.setState(AllDone)
	return counters, nil
}

// createOutput opens the output file. commit must be called with
// the outcome of the merge once the file is closed.
func (m *Merger) createOutput(output string) (out *os.File, commit func(ok bool) error, err error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if m.appendOutput {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	if !m.atomic {
		out, err = os.OpenFile(output, flags, 0666)
		return out, func(bool) error { return nil }, err
	}
	tmp := filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+"."+uuid.New().String())
	if out, err = os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666); err != nil {
		return nil, nil, err
	}
	if m.appendOutput {
		if err = copyExisting(out, output); err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
			return nil, nil, err
		}
	}
	commit = func(ok bool) error {
		if !ok {
			return os.Remove(tmp)
		}
		return os.Rename(tmp, output)
	}
	return out, commit, nil
}

func copyExisting(w io.Writer, name string) (err error) {
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer internal.Close(f, &err)
	_, err = io.Copy(w, f)
	return err
}

// mergeFile runs one source through sniffing, reading, and
// conversion, and writes the kept records to w.
func (m *Merger) mergeFile(ctx context.Context, w io.Writer, source string) (counters FileCounters, err error) {
	counters.Path = source
	m.setState(Sniffing)
	stream, dialect, err := m.sniffer.Sniff(ctx, source)
	if err != nil {
		return counters, err
	}
	counters.Dialect = dialect
	reader, err := NewReader(stream, dialect)
	if err != nil {
		_ = stream.Close()
		return counters, err
	}
	defer internal.Close(reader, &err)
	log.Printf("Parsing %v as %v.\n", source, dialect)

	m.setState(Streaming)
	buf := internal.ReserveByteBuffer()
	defer func() { internal.ReleaseByteBuffer(buf) }()
	for {
		if counters.Seen%4096 == 0 {
			if err = ctx.Err(); err != nil {
				return counters, err
			}
		}
		var hit *Hit
		if hit, err = reader.Read(); err == io.EOF {
			return counters, nil
		} else if err != nil {
			return counters, err
		}
		counters.Seen++
		if rec, ok := Convert(hit, m.mismatches); ok {
			counters.Passed++
			buf = rec.Format(buf[:0])
			if _, err = w.Write(buf); err != nil {
				return counters, err
			}
		}
	}
}
