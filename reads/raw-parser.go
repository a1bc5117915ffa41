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

import "bufio"

// rawParser reads one bare sequence per line. Reads are named after
// their id and get default qualities.
type rawParser struct {
	params *Params
}

func newRawParser(p *Params) *rawParser {
	return &rawParser{params: p}
}

func (p *rawParser) Reset() {}

func (p *rawParser) LightParse(r *bufio.Reader, b *Batch, batchA bool) (done bool, n int, err error) {
	return readLines(r, b, batchA)
}

func (p *rawParser) Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error {
	return finalizeMates(p, ra, rb, cura, curb, id)
}

func (p *rawParser) parseMate(r *Record, cur *Cursor, id uint64) error {
	for _, c := range cur.Buf[cur.Off:] {
		r.appendBase(c)
	}
	cur.Off = len(cur.Buf)
	r.defaultName(id)
	r.fillQual()
	return p.params.finishMate(r)
}
