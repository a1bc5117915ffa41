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
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// A Fetcher produces reads from a remote or computed origin, one tab6
// line at a time (name, sequence and qualities, and the same again for
// the second mate of a pair). It returns io.EOF when there are no more
// reads.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// ReaderFetcher is a Fetcher that reads tab6 lines from an io.Reader.
type ReaderFetcher struct {
	r *bufio.Reader
}

// NewReaderFetcher returns a Fetcher for the tab6 lines of r.
func NewReaderFetcher(r io.Reader) *ReaderFetcher {
	return &ReaderFetcher{r: bufio.NewReader(r)}
}

// Fetch returns the next non-empty line.
func (f *ReaderFetcher) Fetch(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := readLine(f.r, nil)
		if err != nil || len(line) > 0 {
			return line, err
		}
	}
}

// A RingSource prefetches reads from a Fetcher in a background
// goroutine into a bounded buffer, and dispenses them in batches.
type RingSource struct {
	parser  *tabbedParser
	fetcher Fetcher
	ring    chan []byte
	cancel context.CancelFunc
	group  *errgroup.Group

	mu        sync.Mutex
	readCount uint64
	done      bool
}

// RingCapacityPerThread is the number of prefetched lines per
// consumer thread.
const RingCapacityPerThread = 4096

// NewRingSource starts prefetching from f. The buffer holds up to
// p.NThreads*RingCapacityPerThread lines.
func NewRingSource(ctx context.Context, f Fetcher, p *Params) *RingSource {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	nthreads := p.NThreads
	if nthreads < 1 {
		nthreads = 1
	}
	src := &RingSource{
		parser:  newTabbedParser(p, true),
		fetcher: f,
		ring:    make(chan []byte, nthreads*RingCapacityPerThread),
		cancel:  cancel,
		group:   group,
	}
	group.Go(func() error {
		defer close(src.ring)
		for {
			line, err := f.Fetch(ctx)
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			select {
			case src.ring <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	return src
}

// NextBatch waits for enough prefetched lines to fill the batch, or
// for the fetcher to finish.
func (src *RingSource) NextBatch(b *Batch, batchA bool) (done bool, n int, err error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.done {
		return true, 0, nil
	}
	buf := slots(b, batchA)
	for n < len(buf) {
		line, ok := <-src.ring
		if !ok {
			src.done = true
			if err = src.group.Wait(); errors.Is(err, context.Canceled) {
				err = nil
			}
			src.readCount += uint64(n)
			return true, n, err
		}
		buf[n].Raw = append(buf[n].Raw[:0], line...)
		n++
	}
	src.readCount += uint64(n)
	return false, n, nil
}

// Finalize decodes a tab6 line.
func (src *RingSource) Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error {
	return src.parser.Finalize(ra, rb, cura, curb, id)
}

// ReadCount returns the number of reads or pairs dispensed so far.
func (src *RingSource) ReadCount() uint64 {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.readCount
}

// Close stops prefetching, closes the fetcher if it is an io.Closer,
// and waits for the background goroutine. Fetch errors are reported by
// NextBatch, not by Close.
func (src *RingSource) Close() (err error) {
	src.cancel()
	if closer, ok := src.fetcher.(io.Closer); ok {
		err = closer.Close()
	}
	for range src.ring {
	}
	_ = src.group.Wait()
	return err
}

// NewStreamComposer returns a composer that dispenses the reads of f,
// prefetched by a RingSource.
func NewStreamComposer(ctx context.Context, f Fetcher, p *Params) (Composer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return NewSoloComposer([]Source{NewRingSource(ctx, f, p)}), nil
}
