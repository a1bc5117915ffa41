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
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/exascience/pargo/parallel"
	"github.com/klauspost/pgzip"
)

func expectedOutput(n int) string {
	var buf strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%v\n", i)
	}
	return buf.String()
}

func newTestQueue(w io.Writer, reorder bool, stageSize, nthreads int) *Queue {
	opts := DefaultOptions(nthreads)
	opts.Reorder = reorder
	opts.PerThreadBufSize = stageSize
	return NewQueue(w, opts)
}

func TestOrderedOutput(t *testing.T) {
	for _, stageSize := range []int{0, 1, 7, DefaultPerThreadBufSize} {
		var out bytes.Buffer
		q := newTestQueue(&out, true, stageSize, 4)
		produceShuffledLines(t, q, 5000, 4)
		if err := q.Close(); err != nil {
			t.Error(err)
		}
		if out.String() != expectedOutput(5000) {
			t.Errorf("ordered output with staging %v failed", stageSize)
		}
		if q.NumStarted() != 5000 || q.NumFinished() != 5000 || q.NumFlushed() != 5000 {
			t.Errorf("ordered counters with staging %v failed: %v %v %v", stageSize, q.NumStarted(), q.NumFinished(), q.NumFlushed())
		}
	}
}

// produceShuffledLines has nthreads threads produce the lines for ids
// 0..n-1 in random order.
func produceShuffledLines(t *testing.T, q *Queue, n, nthreads int) {
	ids := rand.Perm(n)
	parallel.Range(0, nthreads, nthreads, func(low, high int) {
		for tid := low; tid < high; tid++ {
			for i := tid; i < n; i += nthreads {
				id := uint64(ids[i])
				if err := q.Produce(id, tid, func(out []byte) ([]byte, error) {
					out = strconv.AppendUint(out, id, 10)
					return append(out, '\n'), nil
				}); err != nil {
					t.Error(err)
					return
				}
			}
		}
	})
}

func TestUnorderedOutput(t *testing.T) {
	for _, stageSize := range []int{1, DefaultPerThreadBufSize} {
		var out bytes.Buffer
		q := newTestQueue(&out, false, stageSize, 4)
		produceShuffledLines(t, q, 3000, 4)
		if err := q.Flush(true); err != nil {
			t.Error(err)
		}
		lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		if len(lines) != 3000 {
			t.Fatalf("unordered output has %v lines", len(lines))
		}
		ids := make([]int, len(lines))
		for i, line := range lines {
			id, err := strconv.Atoi(line)
			if err != nil {
				t.Fatal(err)
			}
			ids[i] = id
		}
		sort.Ints(ids)
		for i, id := range ids {
			if id != i {
				t.Fatalf("unordered output misses or repeats id %v", i)
			}
		}
		if q.NumFlushed() != 3000 {
			t.Errorf("unordered flushed count: %v", q.NumFlushed())
		}
	}
}

func TestWindowGrowth(t *testing.T) {
	var out bytes.Buffer
	q := newTestQueue(&out, true, 0, 1)
	const n = 3 * initialWindowSize
	for id := uint64(0); id < n; id++ {
		q.BeginRead(id, 0)
	}
	for id := uint64(n); id > 1; id-- {
		if err := q.FinishRead([]byte(strconv.Itoa(int(id-1))+"\n"), id-1, 0); err != nil {
			t.Fatal(err)
		}
	}
	if out.Len() != 0 || q.Pending() != n {
		t.Error("output written before id 0 was finished")
	}
	if err := q.FinishRead([]byte("0\n"), 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := q.Flush(true); err != nil {
		t.Fatal(err)
	}
	if out.String() != expectedOutput(n) {
		t.Error("output after window growth failed")
	}
	if q.Pending() != 0 {
		t.Error("window not empty after forced flush")
	}
}

func TestProducePanic(t *testing.T) {
	var out bytes.Buffer
	q := newTestQueue(&out, true, 0, 1)
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was not propagated")
			}
		}()
		_ = q.Produce(0, 0, func(out []byte) ([]byte, error) {
			panic("producer failed")
		})
	}()
	failure := errors.New("producer error")
	if err := q.Produce(1, 0, func(out []byte) ([]byte, error) {
		return append(out, "dropped\n"...), failure
	}); err != failure {
		t.Errorf("Produce returned %v", err)
	}
	if err := q.Produce(2, 0, func(out []byte) ([]byte, error) {
		return append(out, "two\n"...), nil
	}); err != nil {
		t.Error(err)
	}
	if err := q.Close(); err != nil {
		t.Error(err)
	}
	if out.String() != "two\n" {
		t.Errorf("output after failing producers: %q", out.String())
	}
	if q.NumFlushed() != 3 {
		t.Error("failing producers stalled the queue")
	}
}

func TestMark(t *testing.T) {
	var out bytes.Buffer
	q := newTestQueue(&out, true, 4, 1)
	m1 := q.Mark(1, 0)
	m0 := q.Mark(0, 0)
	m1.Buf = append(m1.Buf, "b"...)
	m0.Buf = append(m0.Buf, "a"...)
	if err := m1.Finish(); err != nil {
		t.Error(err)
	}
	if err := m0.Finish(); err != nil {
		t.Error(err)
	}
	if err := q.Flush(true); err != nil {
		t.Error(err)
	}
	if out.String() != "ab" {
		t.Errorf("marks wrote %q", out.String())
	}
}

func TestCloseUnfinished(t *testing.T) {
	for _, stageSize := range []int{0, DefaultPerThreadBufSize} {
		var out bytes.Buffer
		q := newTestQueue(&out, true, stageSize, 1)
		q.BeginRead(0, 0)
		if err := q.FinishRead([]byte("0\n"), 0, 0); err != nil {
			t.Fatal(err)
		}
		q.BeginRead(1, 0)
		if err := q.Close(); err == nil {
			t.Errorf("unfinished read not reported with staging %v", stageSize)
		}
		if out.String() != "0\n" {
			t.Errorf("output before unfinished read with staging %v: %q", stageSize, out.String())
		}
	}
}

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) {
	return 0, errDiskFull
}

func TestWriteError(t *testing.T) {
	opts := DefaultOptions(1)
	opts.Reorder = false
	opts.PerThreadBufSize = 0
	opts.WriteBufferSize = 0
	q := NewQueue(failingWriter{}, opts)
	q.BeginRead(0, 0)
	if err := q.FinishRead([]byte("x"), 0, 0); !errors.Is(err, errDiskFull) {
		t.Errorf("write error not reported: %v", err)
	}
	if err := q.Flush(true); err == nil {
		t.Error("write error forgotten")
	}
}

func TestCreateGzip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.txt.gz")
	q, err := Create(name, DefaultOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	for id := uint64(0); id < 100; id++ {
		if err := q.Produce(id, 0, func(out []byte) ([]byte, error) {
			return append(strconv.AppendUint(out, id, 10), '\n'), nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	gz, err := pgzip.NewReader(file)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != expectedOutput(100) {
		t.Error("compressed output failed")
	}
	if _, err := Create(filepath.Join(t.TempDir(), "missing", "out.txt"), DefaultOptions(1)); err == nil {
		t.Error("Create in missing directory succeeded")
	}
}
