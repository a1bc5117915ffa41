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

// A PerThread consumer walks the batches a Composer hands out. It is
// owned by a single goroutine; only pulling a new batch synchronizes
// with other consumers.
type PerThread struct {
	composer Composer
	params   *Params
	batch    *Batch
	last     bool
}

// NewPerThread returns a consumer for c.
func NewPerThread(c Composer, p *Params) *PerThread {
	size := p.BatchSize
	if p.BlockMode() && p.ReadsPerBlock > size {
		size = p.ReadsPerBlock
	}
	return &PerThread{
		composer: c,
		params:   p,
		batch:    NewBatch(size),
	}
}

// ReadA returns the current read, or the first mate of the current pair.
func (pt *PerThread) ReadA() *Record {
	return pt.batch.readA()
}

// ReadB returns the second mate of the current pair. It is only valid
// if Paired returns true.
func (pt *PerThread) ReadB() *Record {
	return pt.batch.readB()
}

// Paired returns true if the current read has a mate.
func (pt *PerThread) Paired() bool {
	return pt.batch.readB().Parsed
}

// ID returns the id of the current read or pair.
func (pt *PerThread) ID() uint64 {
	return pt.batch.rdid + uint64(pt.batch.cur)
}

// NextReadPair advances to the next read or pair and decodes it. found
// is false when there is nothing left. done is true for the very last
// read of the input.
func (pt *PerThread) NextReadPair() (found, done bool, err error) {
	b := pt.batch
	if b.exhausted() {
		last, err := pt.composer.NextBatch(b)
		if err != nil {
			return false, false, err
		}
		pt.last = last
		if b.n == 0 {
			return false, true, nil
		}
	} else {
		b.cur++
	}
	b.position()
	ra, rb := b.readA(), b.readB()
	id := b.rdid + uint64(b.cur)
	if err = b.src.Finalize(ra, rb, &b.cura, &b.curb, id); err != nil {
		return false, false, err
	}
	ra.ID = id
	if rb.Parsed {
		rb.ID = id
		ra.Mate = Mate1
		rb.Mate = Mate2
		if pt.params.FixName {
			ra.FixMateName(1)
			rb.FixMateName(2)
		}
		rb.Seed = RandSeed(rb.Seq, rb.Qual, rb.Name, pt.params.Seed)
	}
	ra.Seed = RandSeed(ra.Seq, ra.Qual, ra.Name, pt.params.Seed)
	return true, pt.last && b.cur == b.n-1, nil
}
