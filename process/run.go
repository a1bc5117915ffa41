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

package process

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elreads/output"
	"github.com/exascience/elreads/reads"
)

// An Aligner produces the output text for a read, or for a pair when
// rb is not nil, by appending to out.
type Aligner func(ra, rb *reads.Record, out []byte) ([]byte, error)

// Options configures Run.
type Options struct {
	// NThreads is the number of worker goroutines. Thread ids in the
	// output queue range over [0, NThreads).
	NThreads int

	// ProgressInterval enables periodic progress logging when positive.
	ProgressInterval time.Duration
}

// Stats summarizes a run.
type Stats struct {
	Unpaired uint64
	Pairs    uint64
	Written  uint64
}

// Reads returns the total number of reads processed, counting both
// mates of a pair.
func (s Stats) Reads() uint64 {
	return s.Unpaired + 2*s.Pairs
}

type counters struct {
	unpaired, pairs atomic.Uint64
}

func logProgress(q *output.Queue) {
	log.Printf("%v reads started, %v finished, %v written", q.NumStarted(), q.NumFinished(), q.NumFlushed())
}

func worker(ctx context.Context, tid int, c reads.Composer, q *output.Queue, p *reads.Params, align Aligner, cnt *counters) error {
	pt := reads.NewPerThread(c, p)
	for ctx.Err() == nil {
		found, _, err := pt.NextReadPair()
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		ra := pt.ReadA()
		var rb *reads.Record
		if pt.Paired() {
			rb = pt.ReadB()
			cnt.pairs.Add(1)
		} else {
			cnt.unpaired.Add(1)
		}
		if err = q.Produce(pt.ID(), tid, func(out []byte) ([]byte, error) {
			return align(ra, rb, out)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Run has opts.NThreads workers pull reads from c, pass them to align,
// and hand the results to q. The first error stops all workers and is
// returned. Everything that was produced is flushed before Run
// returns.
func Run(ctx context.Context, c reads.Composer, q *output.Queue, p *reads.Params, opts Options, align Aligner) (stats Stats, err error) {
	nthreads := opts.NThreads
	if nthreads < 1 {
		nthreads = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if opts.ProgressInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(opts.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					logProgress(q)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	var cnt counters
	var once sync.Once
	var firstErr error
	parallel.Range(0, nthreads, nthreads, func(low, high int) {
		for tid := low; tid < high; tid++ {
			if err := worker(ctx, tid, c, q, p, align, &cnt); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
		}
	})
	err = firstErr
	if err == nil {
		err = ctx.Err()
	}
	cancel()
	wg.Wait()

	if nerr := q.Flush(true); err == nil {
		err = nerr
	}
	if opts.ProgressInterval > 0 {
		logProgress(q)
	}
	stats = Stats{
		Unpaired: cnt.unpaired.Load(),
		Pairs:    cnt.pairs.Load(),
		Written:  q.NumFlushed(),
	}
	return stats, err
}
