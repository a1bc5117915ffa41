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

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/willf/bitset"

	"github.com/exascience/elreads/internal"
)

// Default queue parameters.
const (
	DefaultPerThreadBufSize = 64
	DefaultFlushLimit       = 8
	DefaultWriteBufferSize  = 64 * 1024
	initialWindowSize       = 1024
)

// Options configures a Queue.
type Options struct {
	// Reorder requires output in strictly increasing read id order.
	Reorder bool `toml:"reorder"`

	// NThreads is the number of producer threads. Thread ids passed to
	// the queue must be in [0, NThreads).
	NThreads int `toml:"nr-of-threads"`

	// PerThreadBufSize is the number of records each thread stages
	// before taking the queue lock. Values below 2 disable staging.
	PerThreadBufSize int `toml:"per-thread-buffer"`

	// FlushLimit bounds the number of records written per finished
	// record by an opportunistic flush.
	FlushLimit int `toml:"flush-limit"`

	// WriteBufferSize is the size of the output write buffer. A
	// non-positive size writes unbuffered.
	WriteBufferSize int `toml:"output-buffer-size"`
}

// DefaultOptions returns options for strictly ordered output.
func DefaultOptions(nthreads int) Options {
	return Options{
		Reorder:          true,
		NThreads:         nthreads,
		PerThreadBufSize: DefaultPerThreadBufSize,
		FlushLimit:       DefaultFlushLimit,
		WriteBufferSize:  DefaultWriteBufferSize,
	}
}

type staged struct {
	id   uint64
	tid  int
	text []byte
}

type slot struct {
	tid  int
	text []byte
}

// threadState is owned by one producer thread. Its counters are read
// by other goroutines only for progress reporting.
type threadState struct {
	started  atomic.Uint64
	finished atomic.Uint64
	flushed  atomic.Uint64
	staged   []staged
}

// A Queue collects the output text of reads produced by many threads,
// and writes it to a single stream, optionally in read id order.
//
// For every read id, a producer calls BeginRead and later FinishRead
// from the same thread. In ordered mode, text is held back in a window
// until all lower ids have been written.
type Queue struct {
	w      io.Writer
	bw     *bufio.Writer
	closer io.Closer

	reorder    bool
	stageSize  int
	flushLimit int
	threads    []threadState

	mutex    sync.Mutex
	err      error
	base     uint64
	slots    []slot
	started  *bitset.BitSet
	finished *bitset.BitSet
}

// NewQueue returns a queue that writes to w.
func NewQueue(w io.Writer, opts Options) *Queue {
	if opts.NThreads < 1 {
		opts.NThreads = 1
	}
	if opts.FlushLimit < 1 {
		opts.FlushLimit = DefaultFlushLimit
	}
	q := &Queue{
		reorder:    opts.Reorder,
		stageSize:  opts.PerThreadBufSize,
		flushLimit: opts.FlushLimit,
		threads:    make([]threadState, opts.NThreads),
		slots:      make([]slot, initialWindowSize),
		started:    bitset.New(initialWindowSize),
		finished:   bitset.New(initialWindowSize),
	}
	if opts.WriteBufferSize > 0 {
		q.bw = bufio.NewWriterSize(w, opts.WriteBufferSize)
		q.w = q.bw
	} else {
		log.Printf("Warning: Invalid output buffer size %v; writing output unbuffered.", opts.WriteBufferSize)
		q.w = w
	}
	if q.staging() {
		for i := range q.threads {
			q.threads[i].staged = make([]staged, 0, q.stageSize)
		}
	}
	return q
}

func (q *Queue) staging() bool {
	return q.stageSize > 1
}

func (q *Queue) thread(tid int) *threadState {
	if tid < 0 || tid >= len(q.threads) {
		log.Panicf("invalid thread id %v", tid)
	}
	return &q.threads[tid]
}

// grow makes room in the window for id, keeping every live slot.
func (q *Queue) grow(id uint64) {
	oldSize := uint64(len(q.slots))
	newSize := oldSize
	for id-q.base >= newSize {
		newSize *= 2
	}
	slots := make([]slot, newSize)
	started := bitset.New(uint(newSize))
	finished := bitset.New(uint(newSize))
	for k := uint64(0); k < oldSize; k++ {
		rid := q.base + k
		old := uint(rid % oldSize)
		if !q.started.Test(old) {
			continue
		}
		i := uint(rid % newSize)
		slots[i] = q.slots[old]
		started.Set(i)
		if q.finished.Test(old) {
			finished.Set(i)
		}
	}
	q.slots, q.started, q.finished = slots, started, finished
}

// index returns the window position for id, growing the window if
// necessary.
func (q *Queue) index(id uint64) uint {
	if id < q.base {
		log.Panicf("read id %v was already flushed", id)
	}
	if id-q.base >= uint64(len(q.slots)) {
		q.grow(id)
	}
	return uint(id % uint64(len(q.slots)))
}

func (q *Queue) beginLocked(id uint64) {
	i := q.index(id)
	if q.started.Test(i) {
		log.Panicf("read id %v was started twice", id)
	}
	q.started.Set(i)
}

func (q *Queue) finishLocked(text []byte, id uint64, tid int) {
	i := q.index(id)
	if !q.started.Test(i) {
		log.Panicf("read id %v was finished without being started", id)
	}
	if q.finished.Test(i) {
		log.Panicf("read id %v was finished twice", id)
	}
	q.slots[i] = slot{tid: tid, text: text}
	q.finished.Set(i)
}

// write sends text to the output and returns its buffer to the pool.
// After the first write error, nothing more is written.
func (q *Queue) write(text []byte, tid int) {
	if q.err == nil {
		if _, err := q.w.Write(text); err != nil {
			q.err = fmt.Errorf("%w, while writing output", err)
		}
	}
	internal.ReleaseByteBuffer(text)
	q.threads[tid].flushed.Add(1)
}

// flushLocked writes the finished prefix of the window, at most limit
// records if limit is positive.
func (q *Queue) flushLocked(limit int) {
	size := uint64(len(q.slots))
	for n := 0; limit <= 0 || n < limit; n++ {
		i := uint(q.base % size)
		if !q.started.Test(i) || !q.finished.Test(i) {
			return
		}
		s := q.slots[i]
		q.slots[i] = slot{}
		q.started.Clear(i)
		q.finished.Clear(i)
		q.base++
		q.write(s.text, s.tid)
	}
}

// drainLocked moves the staged records of a thread into the window, or
// straight to the output if order does not matter.
func (q *Queue) drainLocked(t *threadState) {
	for _, s := range t.staged {
		if q.reorder {
			q.beginLocked(s.id)
			q.finishLocked(s.text, s.id, s.tid)
		} else {
			q.write(s.text, s.tid)
		}
	}
	t.staged = t.staged[:0]
}

// BeginRead announces that thread tid is producing output for id.
func (q *Queue) BeginRead(id uint64, tid int) {
	t := q.thread(tid)
	t.started.Add(1)
	if q.staging() || !q.reorder {
		return
	}
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.beginLocked(id)
}

// FinishRead hands over the output text for id. The text is copied, so
// the caller can reuse it. FinishRead returns the first error that
// occurred while writing output, if any.
func (q *Queue) FinishRead(text []byte, id uint64, tid int) error {
	t := q.thread(tid)
	buf := append(internal.ReserveByteBuffer(), text...)
	t.finished.Add(1)
	if q.staging() {
		t.staged = append(t.staged, staged{id: id, tid: tid, text: buf})
		if len(t.staged) < q.stageSize {
			return nil
		}
		q.mutex.Lock()
		defer q.mutex.Unlock()
		n := len(t.staged)
		q.drainLocked(t)
		if q.reorder {
			q.flushLocked(n * q.flushLimit)
		}
		return q.err
	}
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.reorder {
		q.finishLocked(buf, id, tid)
		q.flushLocked(q.flushLimit)
	} else {
		q.write(buf, tid)
	}
	return q.err
}

// Flush writes what can be written. With force set, it first drains
// the staging buffers of all threads, writes the complete finished
// prefix of the window, and flushes the write buffer. A forced flush
// must not run concurrently with producers.
func (q *Queue) Flush(force bool) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if force {
		for i := range q.threads {
			q.drainLocked(&q.threads[i])
		}
		q.flushLocked(0)
		if q.bw != nil && q.err == nil {
			if err := q.bw.Flush(); err != nil {
				q.err = fmt.Errorf("%w, while flushing output", err)
			}
		}
	} else {
		q.flushLocked(q.flushLimit)
	}
	return q.err
}

// Pending returns the number of records held in the window because a
// lower id has not been finished yet.
func (q *Queue) Pending() uint64 {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return uint64(q.started.Count())
}

func (q *Queue) sum(counter func(t *threadState) *atomic.Uint64) (total uint64) {
	for i := range q.threads {
		total += counter(&q.threads[i]).Load()
	}
	return total
}

// NumStarted returns the number of reads announced with BeginRead.
func (q *Queue) NumStarted() uint64 {
	return q.sum(func(t *threadState) *atomic.Uint64 { return &t.started })
}

// NumFinished returns the number of reads handed over with FinishRead.
func (q *Queue) NumFinished() uint64 {
	return q.sum(func(t *threadState) *atomic.Uint64 { return &t.finished })
}

// NumFlushed returns the number of reads written to the output.
func (q *Queue) NumFlushed() uint64 {
	return q.sum(func(t *threadState) *atomic.Uint64 { return &t.flushed })
}

// Close flushes everything and closes the underlying file, if the
// queue owns one. It reports an error if reads were started but never
// written.
func (q *Queue) Close() (err error) {
	err = q.Flush(true)
	if q.closer != nil {
		if nerr := q.closer.Close(); err == nil {
			err = nerr
		}
	}
	if err == nil {
		if started, flushed := q.NumStarted(), q.NumFlushed(); started > flushed {
			err = fmt.Errorf("%v reads were started but never written", started-flushed)
		}
	}
	return err
}
