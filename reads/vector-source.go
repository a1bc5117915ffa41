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
	"bytes"
	"strconv"
	"sync"
)

// A VectorSource dispenses reads given literally as SEQ or SEQ:QUALS
// strings. Reads are named after their position in the list. Missing
// qualities default to DefaultQual.
type VectorSource struct {
	params *Params

	mu   sync.Mutex
	seqs []string
	next int
}

// NewVectorSource returns a source for the given literal reads.
func NewVectorSource(seqs []string, p *Params) *VectorSource {
	return &VectorSource{params: p, seqs: seqs}
}

// NextBatch copies up to b.Max() literals into the batch, each prefixed
// with its index and a tab.
func (src *VectorSource) NextBatch(b *Batch, batchA bool) (done bool, n int, err error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	buf := slots(b, batchA)
	for n < len(buf) && src.next < len(src.seqs) {
		raw := strconv.AppendInt(buf[n].Raw[:0], int64(src.next), 10)
		raw = append(raw, '\t')
		buf[n].Raw = append(raw, src.seqs[src.next]...)
		src.next++
		n++
	}
	return src.next >= len(src.seqs), n, nil
}

// Finalize decodes a literal read.
func (src *VectorSource) Finalize(ra, _ *Record, cura, _ *Cursor, _ uint64) error {
	raw := cura.Buf[cura.Off:]
	cura.Off = len(cura.Buf)
	name, lit, _ := bytes.Cut(raw, []byte{'\t'})
	ra.Name = append(ra.Name[:0], name...)
	seq, qual, hasQual := bytes.Cut(lit, []byte{':'})
	for _, c := range seq {
		ra.appendBase(c)
	}
	if hasQual {
		if err := src.params.appendQuals(ra, qual); err != nil {
			return err
		}
	} else {
		ra.fillQual()
	}
	return src.params.finishMate(ra)
}

// ReadCount returns the number of literals dispensed so far.
func (src *VectorSource) ReadCount() uint64 {
	src.mu.Lock()
	defer src.mu.Unlock()
	return uint64(src.next)
}
