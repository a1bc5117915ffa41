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
	"runtime"
)

// Format names an input read format.
type Format string

// Supported input formats.
const (
	Fastq           Format = "fastq"
	Fasta           Format = "fasta"
	FastaContinuous Format = "fasta-continuous"
	Tab5            Format = "tab5"
	Tab6            Format = "tab6"
	Raw             Format = "raw"
	Literal         Format = "literal"
)

// Params configures how reads are parsed and dispensed.
type Params struct {
	Format Format `toml:"format"`

	// Trim5 and Trim3 are the number of bases removed from the 5' and
	// 3' ends of every read.
	Trim5 int `toml:"trim5"`
	Trim3 int `toml:"trim3"`

	// Quality encoding. Phred+33 if none of these are set.
	Phred64  bool `toml:"phred64"`
	Solexa64 bool `toml:"solexa-quals"`
	IntQuals bool `toml:"int-quals"`

	// Seed is mixed into the per-read pseudo-random seeds.
	Seed uint32 `toml:"seed"`

	// FixName appends /1 and /2 to the names of paired mates.
	FixName bool `toml:"fix-names"`

	// Interleaved FASTQ files hold both mates of a pair consecutively.
	Interleaved bool `toml:"interleaved"`

	// BlockBytes and ReadsPerBlock enable the FASTQ block fast path when
	// both are positive: every block of BlockBytes bytes is assumed to
	// hold exactly ReadsPerBlock records.
	BlockBytes    int `toml:"block-bytes"`
	ReadsPerBlock int `toml:"reads-per-block"`

	// WindowLength and WindowFrequency configure FASTA-continuous
	// sampling: reads of WindowLength bases every WindowFrequency bases.
	WindowLength    int `toml:"window-length"`
	WindowFrequency int `toml:"window-frequency"`

	// FileParallel creates one source per input file instead of one
	// source for all of them.
	FileParallel bool `toml:"file-parallel"`

	// BatchSize is the maximum number of reads (or pairs) per batch.
	BatchSize int `toml:"batch-size"`

	// BufferSize is the read buffer size for each input file.
	BufferSize int `toml:"buffer-size"`

	// NThreads is the number of consumers, used to size prefetch buffers.
	NThreads int `toml:"nr-of-threads"`
}

// Default parameter values.
const (
	DefaultBatchSize  = 16
	DefaultBufferSize = 64 * 1024
)

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Format:          Fastq,
		WindowLength:    50,
		WindowFrequency: 10,
		BatchSize:       DefaultBatchSize,
		BufferSize:      DefaultBufferSize,
		NThreads:        runtime.GOMAXPROCS(0),
	}
}

// BlockMode returns true if the FASTQ block fast path is enabled.
func (p *Params) BlockMode() bool {
	return p.Format == Fastq && p.BlockBytes > 0 && p.ReadsPerBlock > 0
}

// Validate checks the parameters for consistency.
func (p *Params) Validate() error {
	switch p.Format {
	case Fastq, Fasta, FastaContinuous, Tab5, Tab6, Raw, Literal:
	default:
		return fmt.Errorf("unknown read format %v", p.Format)
	}
	if p.Trim5 < 0 || p.Trim3 < 0 {
		return errors.New("trim lengths must not be negative")
	}
	if p.Phred64 && p.Solexa64 {
		return errors.New("phred64 and solexa qualities are mutually exclusive")
	}
	if p.BatchSize < 1 {
		return fmt.Errorf("invalid batch size %v", p.BatchSize)
	}
	if p.BufferSize < 16 {
		return fmt.Errorf("invalid input buffer size %v", p.BufferSize)
	}
	if p.Format == FastaContinuous {
		if p.WindowLength < 1 {
			return fmt.Errorf("invalid window length %v", p.WindowLength)
		}
		if p.WindowFrequency < 1 {
			return fmt.Errorf("invalid window frequency %v", p.WindowFrequency)
		}
	}
	if (p.BlockBytes > 0) != (p.ReadsPerBlock > 0) {
		return errors.New("block-bytes and reads-per-block must be used together")
	}
	if p.BlockMode() && p.Interleaved {
		return errors.New("the FASTQ block fast path does not support interleaved input")
	}
	if p.Interleaved && p.Format != Fastq {
		return errors.New("interleaved input is only supported for FASTQ")
	}
	if p.NThreads < 1 {
		p.NThreads = 1
	}
	return nil
}
