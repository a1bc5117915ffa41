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
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
)

// GzipExt is the file name extension that selects compressed output.
const GzipExt = ".gz"

type gzipFile struct {
	gz   *pgzip.Writer
	file *os.File
}

func (f *gzipFile) Write(p []byte) (int, error) {
	return f.gz.Write(p)
}

func (f *gzipFile) Close() (err error) {
	err = f.gz.Close()
	if nerr := f.file.Close(); err == nil {
		err = nerr
	}
	return err
}

// Create returns a queue that writes to the named file.
//
// If the name is empty, "-" or "/dev/stdout", then the output is
// written to os.Stdout. If the name ends in .gz, the output is
// compressed.
func Create(name string, opts Options) (*Queue, error) {
	if name == "" || name == "-" || name == "/dev/stdout" {
		return NewQueue(os.Stdout, opts), nil
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	var wc io.WriteCloser = file
	if filepath.Ext(name) == GzipExt {
		wc = &gzipFile{gz: pgzip.NewWriter(file), file: file}
	}
	q := NewQueue(wc, opts)
	q.closer = wc
	return q, nil
}
