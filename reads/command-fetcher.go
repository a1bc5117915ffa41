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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
)

// A CommandFetcher runs an external command and fetches tab6 lines
// from its standard output. Its standard error is passed through.
type CommandFetcher struct {
	*ReaderFetcher
	cmd    *exec.Cmd
	stdout io.ReadCloser
	eof    atomic.Bool
}

// NewCommandFetcher starts the command given by args.
func NewCommandFetcher(args []string) (*CommandFetcher, error) {
	if len(args) == 0 {
		return nil, errors.New("missing stream command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%v, while starting stream command %v", err, strings.Join(args, " "))
	}
	return &CommandFetcher{
		ReaderFetcher: NewReaderFetcher(stdout),
		cmd:           cmd,
		stdout:        stdout,
	}, nil
}

// Fetch returns the next non-empty line of the command's output.
func (f *CommandFetcher) Fetch(ctx context.Context) ([]byte, error) {
	line, err := f.ReaderFetcher.Fetch(ctx)
	if err == io.EOF {
		f.eof.Store(true)
	}
	return line, err
}

// Close waits for the command to exit, and reports whether it failed.
// If its output was not read to the end, the command is killed first.
func (f *CommandFetcher) Close() error {
	if !f.eof.Load() {
		_ = f.cmd.Process.Kill()
		_ = f.stdout.Close()
		_ = f.cmd.Wait()
		return nil
	}
	if err := f.cmd.Wait(); err != nil {
		return fmt.Errorf("%v, while running stream command %v", err, strings.Join(f.cmd.Args, " "))
	}
	return nil
}
