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
)

var errNotFasta = errors.New("reads file does not look like a FASTA file")

// fastaParser reads FASTA records. A record starts with a '>' header
// line and extends over all following lines up to the next header.
type fastaParser struct {
	params *Params
}

func newFastaParser(p *Params) *fastaParser {
	return &fastaParser{params: p}
}

func (p *fastaParser) Reset() {}

func (p *fastaParser) LightParse(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	buf := slots(b, batchA)
	for n < len(buf) {
		raw, terminated, err := readLineEOL(r, buf[n].Raw[:0])
		if err == io.EOF {
			return true, n, nil
		} else if err != nil {
			return false, n, err
		}
		if len(raw) == 0 {
			continue
		}
		if raw[0] != '>' {
			return false, n, errNotFasta
		}
		if !terminated {
			return false, n, prematureEnd(raw[1:])
		}
		for {
			next, err := r.Peek(1)
			if err == io.EOF {
				break
			} else if err != nil {
				return false, n, err
			}
			if next[0] == '>' {
				break
			}
			raw = append(raw, '\n')
			if raw, _, err = readLineEOL(r, raw); err != nil && err != io.EOF {
				return false, n, err
			}
		}
		buf[n].Raw = raw
		n++
	}
	return false, n, nil
}

func (p *fastaParser) Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error {
	return finalizeMates(p, ra, rb, cura, curb, id)
}

func (p *fastaParser) parseMate(r *Record, cur *Cursor, id uint64) error {
	header, off := nextLine(cur.Buf, cur.Off)
	if len(header) == 0 || header[0] != '>' {
		return errNotFasta
	}
	r.Name = append(r.Name[:0], bytes.TrimSpace(header[1:])...)
	if len(r.Name) == 0 {
		r.defaultName(id)
	}
	for _, c := range cur.Buf[off:] {
		r.appendBase(c)
	}
	cur.Off = len(cur.Buf)
	r.fillQual()
	return p.params.finishMate(r)
}
