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
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/pgzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// A FileSource dispenses reads from an ordered list of files. The name
// "-" stands for standard input. Gzip-compressed files are detected by
// their magic bytes and decompressed transparently.
//
// Files that cannot be opened are skipped with a warning.
type FileSource struct {
	params *Params
	parser FormatParser
	names  []string

	mu        sync.Mutex
	next      int
	name      string
	file      *os.File
	gz        *pgzip.Reader
	reader    *bufio.Reader
	exhausted bool
	readCount uint64
}

// NewFileSource opens the first readable file of names. It fails with
// ErrNoValidInput if none of them can be opened.
func NewFileSource(names []string, p *Params) (*FileSource, error) {
	parser, err := NewParser(p)
	if err != nil {
		return nil, err
	}
	src := &FileSource{params: p, parser: parser, names: names}
	if err = src.openNext(); err != nil {
		return nil, err
	}
	if src.reader == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoValidInput, strings.Join(names, ", "))
	}
	return src, nil
}

func (src *FileSource) closeCurrent() (err error) {
	if src.gz != nil {
		err = src.gz.Close()
		src.gz = nil
	}
	if src.file != nil && src.file != os.Stdin {
		if nerr := src.file.Close(); err == nil {
			err = nerr
		}
	}
	src.file = nil
	src.reader = nil
	return err
}

// openNext closes the current file and opens the next readable one.
// It leaves src.reader nil when the list is used up.
func (src *FileSource) openNext() error {
	if err := src.closeCurrent(); err != nil {
		return err
	}
	for src.next < len(src.names) {
		name := src.names[src.next]
		src.next++
		var file *os.File
		if name == "-" {
			file = os.Stdin
		} else {
			f, err := os.Open(name)
			if err != nil {
				log.Printf("Warning: Could not open read file \"%v\" for reading; skipping...", name)
				continue
			}
			file = f
			fadviseSequential(file)
		}
		reader := bufio.NewReaderSize(file, src.params.BufferSize)
		if magic, _ := reader.Peek(2); bytes.Equal(magic, gzipMagic) {
			gz, err := pgzip.NewReader(reader)
			if err != nil {
				if file != os.Stdin {
					_ = file.Close()
				}
				return fmt.Errorf("%v, while opening gzip input %v", err, name)
			}
			src.gz = gz
			reader = bufio.NewReaderSize(gz, src.params.BufferSize)
		}
		src.name = name
		src.file = file
		src.reader = reader
		src.parser.Reset()
		return nil
	}
	return nil
}

// NextBatch light-parses the next batch of reads. When a file runs
// out, it moves on to the next one. Once every file is used up, it
// keeps returning (true, 0).
func (src *FileSource) NextBatch(b *Batch, batchA bool) (done bool, n int, err error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	for !src.exhausted {
		done, n, err = src.parser.LightParse(src.reader, b, batchA)
		if err != nil {
			return false, 0, fmt.Errorf("%w, while reading %v", err, src.name)
		}
		src.readCount += uint64(n)
		if !done {
			return false, n, nil
		}
		if err = src.openNext(); err != nil {
			return false, 0, err
		}
		if src.reader == nil {
			src.exhausted = true
			return true, n, nil
		}
		if n > 0 {
			return false, n, nil
		}
	}
	return true, 0, nil
}

// Finalize decodes the raw reads delimited by NextBatch.
func (src *FileSource) Finalize(ra, rb *Record, cura, curb *Cursor, id uint64) error {
	return src.parser.Finalize(ra, rb, cura, curb, id)
}

// ReadCount returns the number of reads or pairs delimited so far.
func (src *FileSource) ReadCount() uint64 {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.readCount
}

// Close closes the file that is currently open, if any.
func (src *FileSource) Close() error {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.exhausted = true
	src.next = len(src.names)
	return src.closeCurrent()
}

var _ io.Closer = (*FileSource)(nil)
