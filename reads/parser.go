// elreads: a high-performance tool for dispensing sequencing reads.
// Copyright (c) 2021 imec vzw.

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

package reads

import (
	"bufio"
	"fmt"
	"io"
)

// A FormatParser splits an input stream into raw records and decodes
// them.
//
// LightParse is called with the source lock held. It fills up to b.Max()
// slots of b.A (batchA) or b.B with raw bytes, doing no more work than
// needed to find record boundaries. It returns whether the input is
// exhausted and how many reads it delimited.
//
// Finalize is called without any lock. It decodes the raw data behind
// cura into ra, and if a mate is pending, the raw data behind curb
// into rb.
//
// Reset is called when the source moves on to the next file.
type FormatParser interface {
	LightParse(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error)
	Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error
	Reset()
}

// NewParser returns the parser for the configured file format.
func NewParser(p *Params) (FormatParser, error) {
	switch p.Format {
	case Fastq:
		return newFastqParser(p), nil
	case Fasta:
		return newFastaParser(p), nil
	case FastaContinuous:
		return newFastaContinuousParser(p), nil
	case Tab5:
		return newTabbedParser(p, false), nil
	case Tab6:
		return newTabbedParser(p, true), nil
	case Raw:
		return newRawParser(p), nil
	default:
		return nil, fmt.Errorf("no file parser for read format %v", p.Format)
	}
}

// A mateParser decodes one read at a time from a cursor.
type mateParser interface {
	parseMate(r *Record, cur *Cursor, id uint64) error
}

// finalizeMates decodes ra, then rb when the twin cursor still has data
// for it.
func finalizeMates(p mateParser, ra, rb *Record, cura, curb *Cursor, id uint64) error {
	if err := p.parseMate(ra, cura, id); err != nil {
		return err
	}
	if !rb.Parsed && curb.Remaining() > 0 {
		return p.parseMate(rb, curb, id)
	}
	return nil
}

func slots(b *Batch, batchA bool) []Record {
	if batchA {
		return b.A
	}
	return b.B
}

func trimEOL(b []byte, start int) []byte {
	end := len(b)
	for end > start && (b[end-1] == '\n' || b[end-1] == '\r') {
		end--
	}
	return b[:end]
}

// readLine appends the next line of r, without its line terminator, to
// dst. It returns io.EOF only if there was nothing left to read.
func readLine(r *bufio.Reader, dst []byte) ([]byte, error) {
	line, _, err := readLineEOL(r, dst)
	return line, err
}

// readLineEOL is readLine that also reports whether the line was
// terminated by a newline.
func readLineEOL(r *bufio.Reader, dst []byte) (line []byte, terminated bool, err error) {
	start := len(dst)
	for {
		chunk, err := r.ReadSlice('\n')
		dst = append(dst, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		terminated = err == nil
		if err == io.EOF && len(dst) > start {
			err = nil
		}
		return trimEOL(dst, start), terminated, err
	}
}

// nextLine returns the line of buf starting at off, without its line
// terminator, and the offset just after it.
func nextLine(buf []byte, off int) ([]byte, int) {
	end := off
	for end < len(buf) && buf[end] != '\n' {
		end++
	}
	line := buf[off:end]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	if end < len(buf) {
		end++
	}
	return line, end
}

func prematureEnd(name []byte) error {
	return fmt.Errorf("read %s: record ended prematurely", name)
}

// readLines delimits one record per non-empty line.
func readLines(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	buf := slots(b, batchA)
	for n < len(buf) {
		line, err := readLine(r, buf[n].Raw[:0])
		if err == io.EOF {
			return true, n, nil
		} else if err != nil {
			return false, n, err
		}
		buf[n].Raw = line
		if len(line) > 0 {
			n++
		}
	}
	return false, n, nil
}
