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

package output

import "github.com/exascience/elreads/internal"

// A Mark is an output slot that has been started and must be finished.
// Producers append the output text to Buf.
type Mark struct {
	q   *Queue
	id  uint64
	tid int
	Buf []byte
}

// Mark starts the output for id on thread tid.
func (q *Queue) Mark(id uint64, tid int) *Mark {
	q.BeginRead(id, tid)
	return &Mark{q: q, id: id, tid: tid, Buf: internal.ReserveByteBuffer()}
}

// Finish hands the text in Buf to the queue. It must be called exactly
// once.
func (m *Mark) Finish() error {
	err := m.q.FinishRead(m.Buf, m.id, m.tid)
	internal.ReleaseByteBuffer(m.Buf)
	m.Buf = nil
	return err
}

// Produce runs f to produce the output for id on thread tid. The slot
// for id is finished however f returns, including by panicking, so
// that a failing producer never stalls ordered output. When f fails,
// its output is dropped.
func (q *Queue) Produce(id uint64, tid int, f func(out []byte) ([]byte, error)) (err error) {
	m := q.Mark(id, tid)
	defer func() {
		nerr := m.Finish()
		if err == nil {
			err = nerr
		}
	}()
	out, err := f(m.Buf)
	if err != nil {
		return err
	}
	m.Buf = out
	return nil
}
