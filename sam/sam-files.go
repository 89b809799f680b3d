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

package sam

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/dnanexus/Scoring/utils"
)

// SAM file extensions.
const (
	SamExt = ".sam"
	BamExt = ".bam"
)

func (sc *StringScanner) ParseHeaderField() (tag, value string) {
	if sc.err != nil {
		return
	}
	tag, ok := sc.readUntil(':')
	if !ok || (len(tag) != 2) {
		sc.setErr("invalid field tag %v", tag)
		return "", ""
	}
	value, _ = sc.readUntil('\t')
	return tag, value
}

func (sc *StringScanner) ParseHeaderLine() utils.StringMap {
	if sc.err != nil {
		return nil
	}
	record := make(utils.StringMap)
	for sc.Len() > 0 {
		tag, value := sc.ParseHeaderField()
		if sc.err != nil {
			break
		}
		if !record.SetUniqueEntry(tag, value) {
			sc.setErr("duplicate field tag %v in a SAM header line", tag)
			break
		}
	}
	return record
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// ParseHeader reads the header section of a SAM file. It stops at
// the first line that does not start with '@', without consuming
// it, so that the reader is positioned at the first alignment line.
// It returns the number of header lines consumed.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	hdr = NewHeader()
	var sc StringScanner
	for {
		switch data, err := reader.Peek(1); {
		case err == io.EOF:
			return hdr, lines, nil
		case err != nil:
			return hdr, lines, err
		case data[0] != '@':
			return hdr, lines, nil
		}
		raw, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return hdr, lines, err
		}
		lines++
		line := trimEOL(raw)
		if len(line) < 3 {
			return hdr, lines, fmt.Errorf("invalid SAM header line %q", line)
		}
		code, rest := line[:3], ""
		if len(line) > 3 {
			if line[3] != '\t' {
				return hdr, lines, fmt.Errorf("header code %v not followed by a tab", code)
			}
			rest = line[4:]
		}
		sc.Reset(rest)
		switch code {
		case "@HD":
			if lines != 1 {
				return hdr, lines, errors.New("@HD line not in first line of SAM header")
			}
			hdr.HD = sc.ParseHeaderLine()
		case "@SQ":
			hdr.SQ = append(hdr.SQ, sc.ParseHeaderLine())
		case "@RG":
			hdr.RG = append(hdr.RG, sc.ParseHeaderLine())
		case "@PG":
			hdr.PG = append(hdr.PG, sc.ParseHeaderLine())
		case "@CO":
			hdr.CO = append(hdr.CO, rest)
		default:
			if !IsHeaderUserTag(code) {
				return hdr, lines, fmt.Errorf("unknown SAM record type code %v", code)
			}
			hdr.AddUserRecord(code, sc.ParseHeaderLine())
		}
		if sc.err != nil {
			return hdr, lines, sc.err
		}
	}
}

func (sc *StringScanner) ParseChar() interface{} {
	value, _ := sc.readByteUntil('\t')
	return value
}

func (sc *StringScanner) ParseInteger() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readUntil('\t')
	val, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		sc.setErr("invalid integer tag value %v", value)
	}
	return int32(val)
}

func (sc *StringScanner) ParseFloat() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readUntil('\t')
	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		sc.setErr("invalid float tag value %v", value)
	}
	return float32(val)
}

// ParseString is used for Z, H, and B tags. Byte and numeric
// arrays are kept in their textual form.
func (sc *StringScanner) ParseString() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readUntil('\t')
	return value
}

type fieldParser func(*StringScanner) interface{}

var optionalFieldParseTable = map[byte]fieldParser{
	'A': (*StringScanner).ParseChar,
	'i': (*StringScanner).ParseInteger,
	'f': (*StringScanner).ParseFloat,
	'Z': (*StringScanner).ParseString,
	'H': (*StringScanner).ParseString,
	'B': (*StringScanner).ParseString,
}

func (sc *StringScanner) ParseOptionalField() (tag utils.Symbol, value interface{}) {
	if sc.err != nil {
		return nil, nil
	}
	tagname, ok := sc.readUntil(':')
	if !ok || (len(tagname) != 2) {
		sc.setErr("invalid field tag %v in SAM alignment line", tagname)
		return nil, nil
	}
	typebyte, ok := sc.readByteUntil(':')
	if !ok {
		sc.setErr("invalid field type for tag %v in SAM alignment line", tagname)
		return nil, nil
	}
	parse, ok := optionalFieldParseTable[typebyte]
	if !ok {
		sc.setErr("unknown field type %c for tag %v in SAM alignment line", typebyte, tagname)
		return nil, nil
	}
	return utils.Intern(tagname), parse(sc)
}

func (sc *StringScanner) doString() string {
	if sc.err != nil {
		return ""
	}
	value, ok := sc.readUntil('\t')
	if !ok {
		sc.setErr("SAM alignment line has fewer than %v fields", MandatoryFields)
		return ""
	}
	return value
}

func (sc *StringScanner) doInt32(field string) int32 {
	if sc.err != nil {
		return 0
	}
	s := sc.doString()
	value, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		sc.setErr("invalid %v %q", field, s)
	}
	return int32(value)
}

func (sc *StringScanner) doUint(field string, bitSize int) uint64 {
	if sc.err != nil {
		return 0
	}
	s := sc.doString()
	value, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		sc.setErr("invalid %v %q", field, s)
	}
	return value
}

func (sc *StringScanner) ParseAlignment() *Alignment {
	aln := NewAlignment()

	aln.QNAME = sc.doString()
	aln.FLAG = uint16(sc.doUint("FLAG", 16))
	aln.RNAME = utils.Intern(sc.doString())
	aln.POS = sc.doInt32("POS")
	aln.MAPQ = byte(sc.doUint("MAPQ", 8))
	aln.CIGAR = sc.doString()
	aln.RNEXT = sc.doString()
	aln.PNEXT = sc.doInt32("PNEXT")
	aln.TLEN = sc.doInt32("TLEN")
	aln.SEQ = sc.doString()
	aln.QUAL, _ = sc.readUntil('\t')

	for sc.Len() > 0 {
		tag, value := sc.ParseOptionalField()
		if sc.err != nil {
			break
		}
		aln.TAGS.Set(tag, value)
	}

	return aln
}

// ParseAlignment parses one SAM alignment line, without its line
// terminator.
func ParseAlignment(line string) (*Alignment, error) {
	var sc StringScanner
	sc.Reset(line)
	aln := sc.ParseAlignment()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return aln, nil
}

// A MDMismatch is a mismatching base reported by an MD tag: the
// 0-based offset in the read, and the reference base.
type MDMismatch struct {
	Offset int32
	Base   byte
}

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

func isBase(char byte) bool {
	return (('A' <= char) && (char <= 'Z')) || (('a' <= char) && (char <= 'z'))
}

// ParseMD returns the mismatches described by an MD tag value.
// Deleted reference bases (^ACG) do not occupy read positions and
// are not mismatches.
func ParseMD(md string) ([]MDMismatch, error) {
	var result []MDMismatch
	var offset int32
	for i := 0; i < len(md); {
		switch c := md[i]; {
		case isDigit(c):
			j := i + 1
			for j < len(md) && isDigit(md[j]) {
				j++
			}
			n, err := strconv.ParseInt(md[i:j], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid MD tag %v: %v", md, err)
			}
			offset += int32(n)
			i = j
		case c == '^':
			for i++; i < len(md) && isBase(md[i]); i++ {
			}
		case isBase(c):
			result = append(result, MDMismatch{offset, c})
			offset++
			i++
		default:
			return nil, fmt.Errorf("invalid character %q in MD tag %v", c, md)
		}
	}
	return result, nil
}

// ViewBam runs samtools view -h on a BAM file and copies the
// resulting SAM text, header included, to w. The samtools process
// is killed when ctx is done.
func ViewBam(ctx context.Context, samtools, name string, w io.Writer) error {
	if samtools == "" {
		samtools = "samtools"
	}
	args := []string{"view", "-h", "-@", strconv.FormatInt(int64(runtime.GOMAXPROCS(0)), 10), name}
	cmd := exec.CommandContext(ctx, samtools, args...)
	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%v view %v: %w", samtools, name, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%v view %v: %v: %v", samtools, name, err, msg)
		}
		return fmt.Errorf("%v view %v: %w", samtools, name, err)
	}
	return nil
}
