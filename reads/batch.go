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

// A Cursor tracks how far Finalize has decoded a raw buffer.
type Cursor struct {
	Buf []byte
	Off int
}

// Remaining returns the number of bytes not yet consumed.
func (cur *Cursor) Remaining() int {
	return len(cur.Buf) - cur.Off
}

// A Batch is the per-consumer staging area that a Source fills under
// its lock. Slots in A hold single reads or mate 1 reads, slots in B
// hold mate 2 reads. A Batch is owned by exactly one consumer.
type Batch struct {
	A, B []Record

	cur  int
	n    int
	rdid uint64
	src  Source

	// block is set when a single raw buffer in A[0] (and B[0]) holds
	// all the records of the batch.
	block bool

	cura, curb Cursor
}

// NewBatch returns a batch with room for size reads or pairs.
func NewBatch(size int) *Batch {
	if size < 1 {
		size = 1
	}
	return &Batch{
		A: make([]Record, size),
		B: make([]Record, size),
	}
}

// Max returns the capacity of the batch.
func (b *Batch) Max() int {
	return len(b.A)
}

// Len returns the number of reads or pairs in the current batch.
func (b *Batch) Len() int {
	return b.n
}

// ReadID returns the id of the first read of the batch.
func (b *Batch) ReadID() uint64 {
	return b.rdid
}

// SetReadID sets the id of the first read of the batch.
func (b *Batch) SetReadID(id uint64) {
	b.rdid = id
}

// reset clears all slots before a light parse.
func (b *Batch) reset() {
	for i := range b.A {
		b.A[i].Reset()
		b.B[i].Reset()
	}
	b.cur = 0
	b.n = 0
	b.block = false
	b.src = nil
	b.cura = Cursor{}
	b.curb = Cursor{}
}

// exhausted returns true if every read of the batch has been handed out.
func (b *Batch) exhausted() bool {
	return b.cur+1 >= b.n
}

// readA and readB return the records at the current position.
func (b *Batch) readA() *Record {
	return &b.A[b.cur]
}

func (b *Batch) readB() *Record {
	return &b.B[b.cur]
}

// position places the parse cursors on the raw data of the current
// read. In block mode the cursors keep walking the shared buffers.
func (b *Batch) position() {
	if b.block {
		if b.cur == 0 {
			b.cura = Cursor{Buf: b.A[0].Raw}
			b.curb = Cursor{Buf: b.B[0].Raw}
		}
		return
	}
	b.cura = Cursor{Buf: b.A[b.cur].Raw}
	b.curb = Cursor{Buf: b.B[b.cur].Raw}
}
