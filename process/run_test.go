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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/exascience/elreads/output"
	"github.com/exascience/elreads/reads"
)

func writeFastq(t *testing.T, dir, name, prefix string, from, to int) (string, string) {
	t.Helper()
	var buf strings.Builder
	for i := from; i < to; i++ {
		fmt.Fprintf(&buf, "@%v%v\nACGTTGCA\n+\nIIII####\n", prefix, i)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, buf.String()
}

func TestRunOrdered(t *testing.T) {
	dir := t.TempDir()
	var names []string
	var expected strings.Builder
	for i, n := range []int{400, 0, 350, 250} {
		name, contents := writeFastq(t, dir, fmt.Sprintf("in%v.fq", i), "r", i*1000, i*1000+n)
		names = append(names, name)
		expected.WriteString(contents)
	}
	p := reads.DefaultParams()
	p.BatchSize = 7
	c, err := reads.SetupComposer(names, nil, nil, nil, nil, &p)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	var out bytes.Buffer
	opts := output.DefaultOptions(4)
	opts.PerThreadBufSize = 16
	q := output.NewQueue(&out, opts)
	stats, err := Run(context.Background(), c, q, &p, Options{NThreads: 4}, FormatFastq)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Unpaired != 1000 || stats.Pairs != 0 || stats.Written != 1000 || stats.Reads() != 1000 {
		t.Errorf("ordered run stats: %+v", stats)
	}
	if out.String() != expected.String() {
		t.Error("ordered run output differs from input")
	}
}

func TestRunPairs(t *testing.T) {
	dir := t.TempDir()
	m1, _ := writeFastq(t, dir, "m1.fq", "p", 0, 123)
	m2, _ := writeFastq(t, dir, "m2.fq", "p", 0, 123)
	p := reads.DefaultParams()
	p.FixName = true
	p.Trim3 = 4
	c, err := reads.SetupComposer(nil, []string{m1}, []string{m2}, nil, nil, &p)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	q := output.NewQueue(&out, output.DefaultOptions(3))
	stats, err := Run(context.Background(), c, q, &p, Options{NThreads: 3}, FormatTab6)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pairs != 123 || stats.Reads() != 246 {
		t.Errorf("paired run stats: %+v", stats)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 123 {
		t.Fatalf("expected 123 lines, got %v", len(lines))
	}
	for i, line := range lines {
		if expected := fmt.Sprintf("p%v/1\tACGT\tIIII\tp%v/2\tACGT\tIIII", i, i); line != expected {
			t.Errorf("pair line %v: %q", i, line)
			break
		}
	}
}

func TestRunUnordered(t *testing.T) {
	dir := t.TempDir()
	name, _ := writeFastq(t, dir, "in.fq", "u", 0, 500)
	p := reads.DefaultParams()
	p.BatchSize = 3
	c, err := reads.SetupComposer([]string{name}, nil, nil, nil, nil, &p)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	opts := output.DefaultOptions(4)
	opts.Reorder = false
	q := output.NewQueue(&out, opts)
	if _, err = Run(context.Background(), c, q, &p, Options{NThreads: 4}, FormatTab6); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	sort.Strings(lines)
	var expected []string
	for i := 0; i < 500; i++ {
		expected = append(expected, fmt.Sprintf("u%v\tACGTTGCA\tIIII####", i))
	}
	sort.Strings(expected)
	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Error("unordered run lost or duplicated reads")
	}
}

func TestRunError(t *testing.T) {
	dir := t.TempDir()
	name, _ := writeFastq(t, dir, "in.fq", "e", 0, 1000)
	p := reads.DefaultParams()
	c, err := reads.SetupComposer([]string{name}, nil, nil, nil, nil, &p)
	if err != nil {
		t.Fatal(err)
	}
	failure := errors.New("aligner failed")
	var out bytes.Buffer
	q := output.NewQueue(&out, output.DefaultOptions(4))
	_, err = Run(context.Background(), c, q, &p, Options{NThreads: 4}, func(ra, rb *reads.Record, out []byte) ([]byte, error) {
		if ra.ID == 100 {
			return out, failure
		}
		return FormatTab6(ra, rb, out)
	})
	if !errors.Is(err, failure) {
		t.Errorf("Run returned %v", err)
	}
}

func TestFormatter(t *testing.T) {
	if _, err := Formatter("tab6"); err != nil {
		t.Error(err)
	}
	if _, err := Formatter("fastq"); err != nil {
		t.Error(err)
	}
	if _, err := Formatter("sam"); err == nil {
		t.Error("unknown output format accepted")
	}
}
