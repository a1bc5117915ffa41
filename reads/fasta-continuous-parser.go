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
	"io"
	"strconv"
	"unicode"
)

// fastaContinuousParser samples fixed-length reads from long FASTA
// sequences. A read of WindowLength bases is emitted every
// WindowFrequency bases, named after the enclosing record and the
// 0-based offset of its first base.
type fastaContinuousParser struct {
	params *Params

	prefix []byte
	window []byte
	head   int
	pos    int
}

func newFastaContinuousParser(p *Params) *fastaContinuousParser {
	return &fastaContinuousParser{
		params: p,
		window: make([]byte, p.WindowLength),
	}
}

// Reset forgets the current record name and all buffered bases.
func (p *fastaContinuousParser) Reset() {
	p.prefix = p.prefix[:0]
	p.head = 0
	p.pos = 0
}

func (p *fastaContinuousParser) readHeader(r *bufio.Reader) error {
	p.Reset()
	line, err := readLine(r, nil)
	if err != nil && err != io.EOF {
		return err
	}
	if i := bytes.IndexFunc(line, unicode.IsSpace); i >= 0 {
		line = line[:i]
	}
	p.prefix = append(p.prefix, line...)
	p.prefix = append(p.prefix, '_')
	return nil
}

func (p *fastaContinuousParser) LightParse(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	buf := slots(b, batchA)
	length := len(p.window)
	freq := p.params.WindowFrequency
	for n < len(buf) {
		c, err := r.ReadByte()
		if err == io.EOF {
			return true, n, nil
		} else if err != nil {
			return false, n, err
		}
		if c == '>' {
			if err := p.readHeader(r); err != nil {
				return false, n, err
			}
			continue
		}
		switch asc2dnacat[c] {
		case 0:
			continue
		case 1:
		default:
			c = 'N'
		}
		p.window[p.head] = c
		p.head++
		if p.head == length {
			p.head = 0
		}
		p.pos++
		if p.pos < length || (p.pos-length)%freq != 0 {
			continue
		}
		raw := append(buf[n].Raw[:0], p.prefix...)
		raw = strconv.AppendInt(raw, int64(p.pos-length), 10)
		raw = append(raw, '\t')
		raw = append(raw, p.window[p.head:]...)
		raw = append(raw, p.window[:p.head]...)
		buf[n].Raw = raw
		n++
	}
	return false, n, nil
}

var errContinuousRecord = errors.New("malformed FASTA-continuous record")

func (p *fastaContinuousParser) Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error {
	return finalizeMates(p, ra, rb, cura, curb, id)
}

func (p *fastaContinuousParser) parseMate(r *Record, cur *Cursor, _ uint64) error {
	raw := cur.Buf[cur.Off:]
	tab := bytes.IndexByte(raw, '\t')
	if tab < 0 {
		return errContinuousRecord
	}
	r.Name = append(r.Name[:0], raw[:tab]...)
	for _, c := range raw[tab+1:] {
		r.appendBase(c)
	}
	cur.Off = len(cur.Buf)
	r.fillQual()
	return p.params.finishMate(r)
}
