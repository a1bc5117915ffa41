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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type collected struct {
	id                 uint64
	name, seq, qual    string
	mate               Mate
	paired             bool
	nameB, seqB, qualB string
	seed               uint32
	done               bool
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, c Composer, p *Params) (result []collected) {
	t.Helper()
	pt := NewPerThread(c, p)
	for {
		found, done, err := pt.NextReadPair()
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			if !done {
				t.Error("NextReadPair reported neither found nor done")
			}
			return result
		}
		ra := pt.ReadA()
		r := collected{
			id:     pt.ID(),
			name:   string(ra.Name),
			seq:    ra.SeqString(),
			qual:   string(ra.Qual),
			mate:   ra.Mate,
			paired: pt.Paired(),
			seed:   ra.Seed,
			done:   done,
		}
		if r.paired {
			rb := pt.ReadB()
			r.nameB, r.seqB, r.qualB = string(rb.Name), rb.SeqString(), string(rb.Qual)
		}
		result = append(result, r)
	}
}

func composeFiles(t *testing.T, p *Params, contents ...string) Composer {
	t.Helper()
	dir := t.TempDir()
	var names []string
	for i, c := range contents {
		names = append(names, writeFile(t, dir, "in"+string(rune('a'+i)), c))
	}
	c, err := SetupComposer(names, nil, nil, nil, nil, p)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func checkLastDone(t *testing.T, reads []collected) {
	t.Helper()
	for i, r := range reads {
		if r.done != (i == len(reads)-1) {
			t.Errorf("done flag wrong for read %v", i)
		}
	}
}

const fastqInput = "@r1\nACGT\n+\nIIII\n\n@r2\nAC.G\n+\nABCD\n@r3\ntttt\n+\n!!!!"

func TestFastq(t *testing.T) {
	p := DefaultParams()
	p.BatchSize = 2
	reads := collect(t, composeFiles(t, &p, fastqInput), &p)
	if len(reads) != 3 {
		t.Fatalf("expected 3 reads, got %v", len(reads))
	}
	expected := []collected{
		{id: 0, name: "r1", seq: "ACGT", qual: "IIII"},
		{id: 1, name: "r2", seq: "ACNG", qual: "ABCD"},
		{id: 2, name: "r3", seq: "TTTT", qual: "!!!!"},
	}
	for i, r := range reads {
		e := expected[i]
		if r.id != e.id || r.name != e.name || r.seq != e.seq || r.qual != e.qual {
			t.Errorf("FASTQ read %v: got %+v", i, r)
		}
		if r.paired || r.mate != MateNone {
			t.Errorf("FASTQ read %v should be unpaired", i)
		}
	}
	checkLastDone(t, reads)
}

func TestFastqErrors(t *testing.T) {
	p := DefaultParams()
	pt := NewPerThread(composeFiles(t, &p, ">r1\nACGT\n"), &p)
	if _, _, err := pt.NextReadPair(); err == nil {
		t.Error("FASTA input accepted as FASTQ")
	}
	pt = NewPerThread(composeFiles(t, &p, "@r1\nACGT\n+\n"), &p)
	if _, _, err := pt.NextReadPair(); err == nil {
		t.Error("truncated FASTQ record accepted")
	}
	pt = NewPerThread(composeFiles(t, &p, "@r1\nACGT\n+\nIII\n"), &p)
	if _, _, err := pt.NextReadPair(); err == nil || !strings.Contains(err.Error(), "more read characters than quality values") {
		t.Errorf("missing quality not reported: %v", err)
	}
	pt = NewPerThread(composeFiles(t, &p, "@r1\nACGT\n+\nII I\n"), &p)
	if _, _, err := pt.NextReadPair(); err == nil || !strings.Contains(err.Error(), "spaces") {
		t.Errorf("space in qualities not reported: %v", err)
	}
}

func TestFastqBlock(t *testing.T) {
	var input strings.Builder
	for i := 0; i < 5; i++ {
		input.WriteString("@r")
		input.WriteByte(byte('0' + i))
		input.WriteString("\nACGT\n+\nIIII\n")
	}
	p := DefaultParams()
	p.BlockBytes = 32
	p.ReadsPerBlock = 2
	reads := collect(t, composeFiles(t, &p, input.String()), &p)
	if len(reads) != 5 {
		t.Fatalf("expected 5 reads, got %v", len(reads))
	}
	for i, r := range reads {
		if r.id != uint64(i) || r.name != "r"+string(rune('0'+i)) || r.seq != "ACGT" || r.qual != "IIII" {
			t.Errorf("block read %v: got %+v", i, r)
		}
	}
	checkLastDone(t, reads)
}

func TestFastqBlockBadRecord(t *testing.T) {
	input := "@r0\nACGT\n+\nIIII\n@r1\nACGT\n-\nIIII\n@r2\nACGT\n+\nIIII\n@r3\nACGT\n+\nIIII\n"
	p := DefaultParams()
	p.BlockBytes = 64
	p.ReadsPerBlock = 4
	pt := NewPerThread(composeFiles(t, &p, input), &p)
	if found, _, err := pt.NextReadPair(); !found || err != nil || string(pt.ReadA().Name) != "r0" {
		t.Fatalf("first block read failed: %v %v", found, err)
	}
	if _, _, err := pt.NextReadPair(); err == nil {
		t.Error("record without '+' line accepted")
	}
	for _, name := range []string{"r2", "r3"} {
		found, _, err := pt.NextReadPair()
		if !found || err != nil {
			t.Fatalf("read %v after a bad record: %v %v", name, found, err)
		}
		if got := string(pt.ReadA().Name); got != name {
			t.Errorf("expected read %v after a bad record, got %v", name, got)
		}
	}
}

func TestFastqInterleaved(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pairs.fq", "@p1\nAAAA\n+\nIIII\n@p1\nCCCC\n+\nJJJJ\n@p2\nGG\n+\nII\n@p2\nTT\n+\nJJ\n")
	p := DefaultParams()
	p.FixName = true
	c, err := SetupComposer(nil, nil, nil, []string{path}, nil, &p)
	if err != nil {
		t.Fatal(err)
	}
	reads := collect(t, c, &p)
	if len(reads) != 2 {
		t.Fatalf("expected 2 pairs, got %v", len(reads))
	}
	if r := reads[0]; !r.paired || r.mate != Mate1 || r.name != "p1/1" || r.nameB != "p1/2" || r.seq != "AAAA" || r.seqB != "CCCC" || r.qualB != "JJJJ" {
		t.Errorf("interleaved pair 1: got %+v", r)
	}
	if r := reads[1]; !r.paired || r.id != 1 || r.seq != "GG" || r.seqB != "TT" {
		t.Errorf("interleaved pair 2: got %+v", r)
	}

	path = writeFile(t, dir, "odd.fq", "@p1\nAAAA\n+\nIIII\n")
	if c, err = SetupComposer(nil, nil, nil, []string{path}, nil, &p); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewPerThread(c, &p).NextReadPair(); err == nil {
		t.Error("odd interleaved input accepted")
	}
}

func TestFasta(t *testing.T) {
	p := DefaultParams()
	p.Format = Fasta
	reads := collect(t, composeFiles(t, &p, ">s1 first\nACGT\nRYac\n\n>\nGG\n>s3\n"), &p)
	if len(reads) != 3 {
		t.Fatalf("expected 3 reads, got %v", len(reads))
	}
	if r := reads[0]; r.name != "s1 first" || r.seq != "ACGTNNAC" || r.qual != "IIIIIIII" {
		t.Errorf("FASTA read 1: got %+v", r)
	}
	if r := reads[1]; r.name != "1" || r.seq != "GG" {
		t.Errorf("FASTA read 2: got %+v", r)
	}
	if r := reads[2]; r.name != "s3" || r.seq != "" || r.qual != "" {
		t.Errorf("FASTA read 3: got %+v", r)
	}
	checkLastDone(t, reads)

	pt := NewPerThread(composeFiles(t, &p, ">s1\nACGT\n>s2"), &p)
	if _, _, err := pt.NextReadPair(); err == nil || !strings.Contains(err.Error(), "prematurely") {
		t.Errorf("FASTA header at end of file not reported: %v", err)
	}
	pt = NewPerThread(composeFiles(t, &p, "ACGT\n"), &p)
	if _, _, err := pt.NextReadPair(); err == nil {
		t.Error("headerless FASTA accepted")
	}
}

func TestFastaContinuous(t *testing.T) {
	p := DefaultParams()
	p.Format = FastaContinuous
	p.WindowLength = 4
	p.WindowFrequency = 2
	p.BatchSize = 3
	reads := collect(t, composeFiles(t, &p, ">chr1 some description\nACGTA\nCGTAC\n>chr2\nAC-GT\n"), &p)
	expected := []collected{
		{name: "chr1_0", seq: "ACGT"},
		{name: "chr1_2", seq: "GTAC"},
		{name: "chr1_4", seq: "ACGT"},
		{name: "chr1_6", seq: "GTAC"},
		{name: "chr2_0", seq: "ACGT"},
	}
	if len(reads) != len(expected) {
		t.Fatalf("expected %v reads, got %v", len(expected), len(reads))
	}
	for i, r := range reads {
		e := expected[i]
		if r.id != uint64(i) || r.name != e.name || r.seq != e.seq || r.qual != "IIII" {
			t.Errorf("FASTA-continuous read %v: got %+v", i, r)
		}
	}
}

func TestTrim(t *testing.T) {
	p := DefaultParams()
	p.Trim5 = 1
	p.Trim3 = 2
	reads := collect(t, composeFiles(t, &p, "@r1\nACGTA\n+\nABCDE\n@r2\nAC\n+\nAB\n"), &p)
	if len(reads) != 2 {
		t.Fatalf("expected 2 reads, got %v", len(reads))
	}
	if r := reads[0]; r.seq != "CG" || r.qual != "BC" {
		t.Errorf("trim 1: got %+v", r)
	}
	if r := reads[1]; r.seq != "" || r.qual != "" {
		t.Errorf("trim 2: got %+v", r)
	}

	var rec Record
	for _, c := range []byte("ACGTA") {
		rec.appendBase(c)
	}
	rec.Qual = append(rec.Qual, "ABCDE"...)
	rec.trim(3, 5)
	if len(rec.Seq) != 0 || rec.Trimmed5 != 3 || rec.Trimmed3 != 2 {
		t.Error("trim amounts failed")
	}
}

func TestTabbed(t *testing.T) {
	p := DefaultParams()
	p.Format = Tab5
	reads := collect(t, composeFiles(t, &p, "u1\tACGT\tIIII\n\np1\tAAA\tBBB\tCC\tDD\n"), &p)
	if len(reads) != 2 {
		t.Fatalf("expected 2 tab5 records, got %v", len(reads))
	}
	if r := reads[0]; r.paired || r.name != "u1" || r.seq != "ACGT" {
		t.Errorf("tab5 single: got %+v", r)
	}
	if r := reads[1]; !r.paired || r.name != "p1" || r.nameB != "p1" || r.seqB != "CC" || r.qualB != "DD" || r.mate != Mate1 {
		t.Errorf("tab5 pair: got %+v", r)
	}

	p.Format = Tab6
	reads = collect(t, composeFiles(t, &p, "a/1\tAAA\tBBB\ta/2\tCC\tDD\n"), &p)
	if len(reads) != 1 || !reads[0].paired || reads[0].name != "a/1" || reads[0].nameB != "a/2" {
		t.Errorf("tab6 pair: got %+v", reads)
	}

	pt := NewPerThread(composeFiles(t, &p, "a\tAAA\n"), &p)
	if _, _, err := pt.NextReadPair(); err == nil {
		t.Error("tabbed record with too few fields accepted")
	}
}

func TestRaw(t *testing.T) {
	p := DefaultParams()
	p.Format = Raw
	reads := collect(t, composeFiles(t, &p, "ACGT\n\nggnn\n"), &p)
	if len(reads) != 2 {
		t.Fatalf("expected 2 raw reads, got %v", len(reads))
	}
	if r := reads[0]; r.name != "0" || r.seq != "ACGT" || r.qual != "IIII" {
		t.Errorf("raw read 1: got %+v", r)
	}
	if r := reads[1]; r.name != "1" || r.seq != "GGNN" {
		t.Errorf("raw read 2: got %+v", r)
	}
}

func TestVectorSource(t *testing.T) {
	p := DefaultParams()
	c, err := SetupComposer(nil, nil, nil, nil, []string{"ACGT", "AC:5?"}, &p)
	if err != nil {
		t.Fatal(err)
	}
	reads := collect(t, c, &p)
	if len(reads) != 2 {
		t.Fatalf("expected 2 literal reads, got %v", len(reads))
	}
	if r := reads[0]; r.name != "0" || r.seq != "ACGT" || r.qual != "IIII" {
		t.Errorf("literal 1: got %+v", r)
	}
	if r := reads[1]; r.name != "1" || r.seq != "AC" || r.qual != "5?" {
		t.Errorf("literal 2: got %+v", r)
	}
	checkLastDone(t, reads)
}
