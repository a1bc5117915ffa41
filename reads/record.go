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

import "strconv"

// Mate identifies the role of a read in a pair.
type Mate uint8

// Mate roles.
const (
	MateNone Mate = iota
	Mate1
	Mate2
)

// Alphabet codes for the bases in Record.Seq.
const (
	BaseA byte = iota
	BaseC
	BaseG
	BaseT
	BaseN
)

// DefaultQual is the Phred+33 quality used when an input format carries
// no qualities.
const DefaultQual = 'I'

var (
	// asc2dna maps ASCII characters to alphabet codes; all letters other
	// than ACGT map to N.
	asc2dna [256]byte

	// asc2dnacat is 1 for unambiguous bases, 2 for IUPAC ambiguity codes,
	// and 0 for everything else.
	asc2dnacat [256]byte

	// dna2asc maps alphabet codes back to upper case characters.
	dna2asc = [5]byte{'A', 'C', 'G', 'T', 'N'}
)

func init() {
	for c := 0; c < 256; c++ {
		asc2dna[c] = BaseN
	}
	for i, b := range "ACGT" {
		asc2dna[b] = byte(i)
		asc2dna[b+'a'-'A'] = byte(i)
		asc2dnacat[b] = 1
		asc2dnacat[b+'a'-'A'] = 1
	}
	for _, b := range "NRYMKWSBDHV" {
		asc2dnacat[b] = 2
		asc2dnacat[b+'a'-'A'] = 2
	}
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// A Record is one sequencing read.
//
// Raw holds the bytes delimited by the light parser. Finalize decodes
// Raw into the remaining fields. Seq holds alphabet codes, not ASCII;
// use SeqString to decode it.
type Record struct {
	Name     []byte
	Seq      []byte
	Qual     []byte
	Mate     Mate
	Trimmed5 int
	Trimmed3 int
	ID       uint64
	Seed     uint32
	Raw      []byte
	Parsed   bool
}

// Reset clears the record for reuse, keeping allocated capacity.
func (r *Record) Reset() {
	r.Name = r.Name[:0]
	r.Seq = r.Seq[:0]
	r.Qual = r.Qual[:0]
	r.Mate = MateNone
	r.Trimmed5 = 0
	r.Trimmed3 = 0
	r.ID = 0
	r.Seed = 0
	r.Raw = r.Raw[:0]
	r.Parsed = false
}

// Empty returns true if nothing was parsed into the record.
func (r *Record) Empty() bool {
	return len(r.Name) == 0 && len(r.Seq) == 0 && len(r.Qual) == 0
}

// AppendSeq appends the upper case ASCII rendering of the sequence to out.
func (r *Record) AppendSeq(out []byte) []byte {
	for _, b := range r.Seq {
		out = append(out, dna2asc[b])
	}
	return out
}

// SeqString returns the upper case ASCII rendering of the sequence.
func (r *Record) SeqString() string {
	return string(r.AppendSeq(make([]byte, 0, len(r.Seq))))
}

// FixMateName appends /1 or /2 to the name unless it already ends that way.
func (r *Record) FixMateName(mate int) {
	suffix := [2]byte{'/', byte('0' + mate)}
	n := len(r.Name)
	if n >= 2 && r.Name[n-2] == suffix[0] && r.Name[n-1] == suffix[1] {
		return
	}
	r.Name = append(r.Name, suffix[:]...)
}

// defaultName installs the decimal representation of id as the name.
func (r *Record) defaultName(id uint64) {
	r.Name = strconv.AppendUint(r.Name[:0], id, 10)
}

// appendBase adds one sequence character to r.Seq. Non-alphabetic
// characters are skipped and '.' counts as N. It returns true if the
// character was a base.
func (r *Record) appendBase(c byte) bool {
	if c == '.' {
		c = 'N'
	}
	if !isAlpha(c) {
		return false
	}
	r.Seq = append(r.Seq, asc2dna[c])
	return true
}

// fillQual sets the qualities to DefaultQual, one per base.
func (r *Record) fillQual() {
	r.Qual = r.Qual[:0]
	for range r.Seq {
		r.Qual = append(r.Qual, DefaultQual)
	}
}

// trim drops the first trim5 bases and then the last trim3 bases of what
// remains, from both the sequence and the qualities, and records the
// amounts actually trimmed. Callers must have checked that Seq and Qual
// have equal lengths.
func (r *Record) trim(trim5, trim3 int) {
	n := len(r.Seq)
	t5 := trim5
	if t5 > n {
		t5 = n
	}
	n -= t5
	t3 := trim3
	if t3 > n {
		t3 = n
	}
	r.Seq = r.Seq[:copy(r.Seq, r.Seq[t5:t5+n-t3])]
	r.Qual = r.Qual[:copy(r.Qual, r.Qual[t5:t5+n-t3])]
	r.Trimmed5 = t5
	r.Trimmed3 = t3
}
