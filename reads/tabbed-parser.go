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
	"fmt"
)

// tabbedParser reads one read or pair per line, with tab-separated
// fields. tab5 lines hold name, sequence and qualities, followed by
// the sequence and qualities of the second mate for pairs. tab6 pairs
// repeat the name for the second mate.
type tabbedParser struct {
	params *Params
	six    bool
}

func newTabbedParser(p *Params, six bool) *tabbedParser {
	return &tabbedParser{params: p, six: six}
}

func (p *tabbedParser) Reset() {}

func (p *tabbedParser) LightParse(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	return readLines(r, b, batchA)
}

func (p *tabbedParser) parseFields(r *Record, name, seq, qual []byte, id uint64) error {
	r.Name = append(r.Name[:0], name...)
	if len(r.Name) == 0 {
		r.defaultName(id)
	}
	for _, c := range seq {
		r.appendBase(c)
	}
	if err := p.params.appendQuals(r, qual); err != nil {
		return err
	}
	return p.params.finishMate(r)
}

// Finalize decodes both mates from cura. The line for a pair is in a
// single raw slot.
func (p *tabbedParser) Finalize(ra, rb *Record, cura, _ *Cursor, id uint64) error {
	line := cura.Buf[cura.Off:]
	cura.Off = len(cura.Buf)
	fields := bytes.Split(line, []byte{'\t'})
	switch {
	case len(fields) == 3:
		return p.parseFields(ra, fields[0], fields[1], fields[2], id)
	case len(fields) == 5 && !p.six:
		if err := p.parseFields(ra, fields[0], fields[1], fields[2], id); err != nil {
			return err
		}
		return p.parseFields(rb, fields[0], fields[3], fields[4], id)
	case len(fields) == 6 && p.six:
		if err := p.parseFields(ra, fields[0], fields[1], fields[2], id); err != nil {
			return err
		}
		return p.parseFields(rb, fields[3], fields[4], fields[5], id)
	default:
		return fmt.Errorf("read %s: wrong number of fields (%v) in tabbed record", fields[0], len(fields))
	}
}
