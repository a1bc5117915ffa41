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
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	errNotFastq       = errors.New("reads file does not look like a FASTQ file")
	errFastqCutOff    = errors.New("FASTQ record cut off by end of file")
	errOddInterleaved = errors.New("interleaved FASTQ input has an odd number of records")
	errBlockOverflow  = errors.New("FASTQ block holds more records than the batch can take")
)

// fastqParser reads four-line FASTQ records.
//
// In block mode, the light parser does not look for record boundaries
// at all. It reads BlockBytes bytes into the first slot of the batch
// and assumes they contain ReadsPerBlock records, which holds for
// inputs that were written with fixed-size blocks. Only the last block
// of a file is inspected, and its record count is derived from the
// number of newlines. Finalize then walks the shared block buffer.
type fastqParser struct {
	params *Params
}

func newFastqParser(p *Params) *fastqParser {
	return &fastqParser{params: p}
}

func (p *fastqParser) Reset() {}

func (p *fastqParser) LightParse(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	switch {
	case p.params.BlockMode():
		return p.lightParseBlock(r, b, batchA)
	case p.params.Interleaved:
		return p.lightParseInterleaved(r, b)
	default:
		return p.lightParseRecords(r, slots(b, batchA))
	}
}

// readRecord appends one complete record to dst. It returns io.EOF if
// the input ends before the record starts.
func readRecord(r *bufio.Reader, dst []byte) ([]byte, error) {
	var line []byte
	var err error
	for {
		if line, err = readLine(r, dst[:0]); err != nil {
			return line, err
		}
		if len(line) > 0 {
			break
		}
	}
	if line[0] != '@' {
		return line, errNotFastq
	}
	for i := 0; i < 3; i++ {
		line = append(line, '\n')
		if line, err = readLine(r, line); err == io.EOF {
			return line, errFastqCutOff
		} else if err != nil {
			return line, err
		}
	}
	return line, nil
}

func (p *fastqParser) lightParseRecords(r *bufio.Reader, buf []Record) (done bool, n int, err error) {
	for n < len(buf) {
		raw, err := readRecord(r, buf[n].Raw)
		if err == io.EOF {
			return true, n, nil
		} else if err != nil {
			return false, n, err
		}
		buf[n].Raw = raw
		n++
	}
	return false, n, nil
}

func (p *fastqParser) lightParseInterleaved(r *bufio.Reader, b *Batch) (done bool, n int, err error) {
	for n < b.Max() {
		raw, err := readRecord(r, b.A[n].Raw)
		if err == io.EOF {
			return true, n, nil
		} else if err != nil {
			return false, n, err
		}
		b.A[n].Raw = raw
		raw, err = readRecord(r, b.B[n].Raw)
		if err == io.EOF {
			return false, n, errOddInterleaved
		} else if err != nil {
			return false, n, err
		}
		b.B[n].Raw = raw
		n++
	}
	return false, n, nil
}

func (p *fastqParser) lightParseBlock(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	slot := &slots(b, batchA)[0]
	size := p.params.BlockBytes
	if cap(slot.Raw) < size {
		slot.Raw = make([]byte, size)
	}
	slot.Raw = slot.Raw[:size]
	got, err := io.ReadFull(r, slot.Raw)
	slot.Raw = slot.Raw[:got]
	b.block = true
	switch err {
	case nil:
		n = p.params.ReadsPerBlock
	case io.EOF, io.ErrUnexpectedEOF:
		done = true
		if got == 0 {
			return true, 0, nil
		}
		// robust to a missing newline at the end
		n = (bytes.Count(slot.Raw, []byte{'\n'}) + 1) >> 2
	default:
		return false, 0, err
	}
	if n > b.Max() {
		return false, 0, errBlockOverflow
	}
	return done, n, nil
}

func (p *fastqParser) Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error {
	return finalizeMates(p, ra, rb, cura, curb, id)
}

func (p *fastqParser) parseMate(r *Record, cur *Cursor, id uint64) error {
	buf, off := cur.Buf, cur.Off
	for off < len(buf) && (buf[off] == '\n' || buf[off] == '\r') {
		off++
	}
	end := off
	for i := 0; i < 4; i++ {
		_, end = nextLine(buf, end)
	}
	// A malformed record still consumes its four lines.
	cur.Off = end
	if off >= len(buf) || buf[off] != '@' {
		return errNotFastq
	}
	var name, seq, plus, qual []byte
	name, off = nextLine(buf, off+1)
	r.Name = append(r.Name[:0], name...)
	if len(r.Name) == 0 {
		r.defaultName(id)
	}
	if off >= len(buf) {
		return prematureEnd(r.Name)
	}
	seq, off = nextLine(buf, off)
	for _, c := range seq {
		r.appendBase(c)
	}
	if off >= len(buf) {
		return prematureEnd(r.Name)
	}
	plus, off = nextLine(buf, off)
	if len(plus) == 0 || plus[0] != '+' {
		return fmt.Errorf("read %s: expected '+' line in FASTQ record", r.Name)
	}
	qual, _ = nextLine(buf, off)
	if err := p.params.appendQuals(r, qual); err != nil {
		return err
	}
	return p.params.finishMate(r)
}
