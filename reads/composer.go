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
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// Errors reported while composing reads from several sources.
var (
	ErrFewerMate1   = errors.New("fewer reads in file specified with -1 than in file specified with -2")
	ErrFewerMate2   = errors.New("fewer reads in file specified with -2 than in file specified with -1")
	ErrNoValidInput = errors.New("no input file could be opened")
)

// A Source hands out batches of raw reads and decodes them.
//
// NextBatch light-parses into b.A (batchA) or b.B and returns whether
// the source is exhausted and how many reads it delimited. Finalize
// decodes a read delimited by a previous NextBatch call.
type Source interface {
	NextBatch(b *Batch, batchA bool) (done bool, n int, err error)
	Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error
	ReadCount() uint64
}

// A Composer fills batches from one or more sources in order, and
// assigns every read a globally unique id. Ids increase monotonically
// in the order in which reads are pulled, across sources and files.
//
// NextBatch returns done when the batch it filled is the last one. The
// batch may be empty in that case.
type Composer interface {
	NextBatch(b *Batch) (done bool, err error)
	Close() error
}

// composer holds what solo and dual composers share. The lock covers
// pulling from the current source and assigning the batch its ids.
type composer struct {
	mu     sync.Mutex
	cur    atomic.Int64
	nextID uint64
}

// advance moves on from source index from. Only one caller performs a
// given advance.
func (c *composer) advance(from int64) {
	c.cur.CompareAndSwap(from, from+1)
}

func (c *composer) assign(b *Batch, src Source, n int) {
	b.n = n
	b.src = src
	b.rdid = c.nextID
	c.nextID += uint64(n)
}

func closeSources(srcs []Source) (err error) {
	for _, src := range srcs {
		if closer, ok := src.(io.Closer); ok {
			if nerr := closer.Close(); err == nil {
				err = nerr
			}
		}
	}
	return err
}

// A SoloComposer dispenses unpaired reads, or pairs held within a
// single source.
type SoloComposer struct {
	composer
	srcs []Source
}

// NewSoloComposer returns a composer for the given sources.
func NewSoloComposer(srcs []Source) *SoloComposer {
	return &SoloComposer{srcs: srcs}
}

// NextBatch fills b from the current source, moving on to the next
// source when the current one is used up.
func (c *SoloComposer) NextBatch(b *Batch) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		b.reset()
		cur := c.cur.Load()
		if cur >= int64(len(c.srcs)) {
			return true, nil
		}
		src := c.srcs[cur]
		done, n, err := src.NextBatch(b, true)
		if err != nil {
			return false, err
		}
		if done {
			c.advance(cur)
		}
		if n == 0 {
			continue
		}
		c.assign(b, src, n)
		return done && cur+1 == int64(len(c.srcs)), nil
	}
}

// Close closes all sources.
func (c *SoloComposer) Close() error {
	return closeSources(c.srcs)
}

// A DualComposer dispenses pairs from matching mate 1 and mate 2
// sources. A nil mate 2 source means the corresponding mate 1 source
// provides whole pairs or unpaired reads by itself.
type DualComposer struct {
	composer
	srca, srcb []Source
}

// NewDualComposer returns a composer for the given source pairs.
// srca and srcb must have the same length.
func NewDualComposer(srca, srcb []Source) *DualComposer {
	if len(srca) != len(srcb) {
		log.Panic("mismatched mate source lists")
	}
	return &DualComposer{srca: srca, srcb: srcb}
}

// NextBatch fills b.A and b.B from the current pair of sources under a
// single lock, so the mates of a pair always end up in the same slot.
func (c *DualComposer) NextBatch(b *Batch) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		b.reset()
		cur := c.cur.Load()
		if cur >= int64(len(c.srca)) {
			return true, nil
		}
		srca, srcb := c.srca[cur], c.srcb[cur]
		donea, na, err := srca.NextBatch(b, true)
		if err != nil {
			return false, err
		}
		doneb, nb := donea, na
		if srcb != nil {
			if doneb, nb, err = srcb.NextBatch(b, false); err != nil {
				return false, err
			}
			if na < nb {
				return false, ErrFewerMate1
			} else if na > nb {
				return false, ErrFewerMate2
			}
		}
		done := donea && doneb
		if done {
			c.advance(cur)
		}
		if na == 0 {
			continue
		}
		c.assign(b, srca, na)
		return done && cur+1 == int64(len(c.srca)), nil
	}
}

// Close closes all sources.
func (c *DualComposer) Close() error {
	err := closeSources(c.srca)
	if nerr := closeSources(c.srcb); err == nil {
		err = nerr
	}
	return err
}

func fileSources(names []string, p *Params) ([]Source, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if !p.FileParallel {
		src, err := NewFileSource(names, p)
		if err != nil {
			return nil, err
		}
		return []Source{src}, nil
	}
	srcs := make([]Source, 0, len(names))
	for _, name := range names {
		src, err := NewFileSource([]string{name}, p)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// SetupComposer creates the sources for all inputs and the composer
// that dispenses them: mates12 holds files with both mates of each
// pair, mates1 and mates2 hold matching files of first and second
// mates, singles holds files of unpaired reads, and literals holds
// reads given as SEQ[:QUALS] strings. Inputs are dispensed in that
// order.
func SetupComposer(singles, mates1, mates2, mates12, literals []string, p *Params) (Composer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(mates1) != len(mates2) {
		return nil, fmt.Errorf("%v mate files/sequences were specified with -1, but %v mate files/sequences were specified with -2; the same number of mate files/sequences must be specified with -1 and -2", len(mates1), len(mates2))
	}
	if len(mates1) > 0 && (p.Format == Tab5 || p.Format == Tab6) {
		return nil, fmt.Errorf("-1 and -2 cannot be used with %v input, which holds pairs on a single line", p.Format)
	}
	if len(mates12) > 0 {
		switch p.Format {
		case Fastq, Tab5, Tab6:
		default:
			return nil, fmt.Errorf("--12 cannot be used with %v input, which holds no pairs", p.Format)
		}
	}
	var srca, srcb []Source
	paired := false
	if len(mates12) > 0 {
		p12 := *p
		if p12.Format == Fastq {
			p12.Interleaved = true
			p12.BlockBytes, p12.ReadsPerBlock = 0, 0
		}
		srcs, err := fileSources(mates12, &p12)
		if err != nil {
			return nil, err
		}
		srca = append(srca, srcs...)
		srcb = append(srcb, make([]Source, len(srcs))...)
		paired = true
	}
	if len(mates1) > 0 {
		srcs1, err := fileSources(mates1, p)
		if err != nil {
			return nil, err
		}
		srcs2, err := fileSources(mates2, p)
		if err != nil {
			return nil, err
		}
		srca = append(srca, srcs1...)
		srcb = append(srcb, srcs2...)
		paired = true
	}
	if len(singles) > 0 {
		srcs, err := fileSources(singles, p)
		if err != nil {
			return nil, err
		}
		srca = append(srca, srcs...)
		srcb = append(srcb, make([]Source, len(srcs))...)
	}
	if len(literals) > 0 {
		srca = append(srca, NewVectorSource(literals, p))
		srcb = append(srcb, nil)
	}
	if len(srca) == 0 {
		return nil, ErrNoValidInput
	}
	if paired {
		return NewDualComposer(srca, srcb), nil
	}
	return NewSoloComposer(srca), nil
}
