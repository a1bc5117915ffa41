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
	"fmt"

	"github.com/exascience/elreads/reads"
)

func appendTab6(out []byte, r *reads.Record) []byte {
	out = append(out, r.Name...)
	out = append(out, '\t')
	out = r.AppendSeq(out)
	out = append(out, '\t')
	return append(out, r.Qual...)
}

// FormatTab6 echoes reads as tab6 lines.
func FormatTab6(ra, rb *reads.Record, out []byte) ([]byte, error) {
	out = appendTab6(out, ra)
	if rb != nil {
		out = append(out, '\t')
		out = appendTab6(out, rb)
	}
	return append(out, '\n'), nil
}

func appendFastq(out []byte, r *reads.Record) []byte {
	out = append(out, '@')
	out = append(out, r.Name...)
	out = append(out, '\n')
	out = r.AppendSeq(out)
	out = append(out, "\n+\n"...)
	out = append(out, r.Qual...)
	return append(out, '\n')
}

// FormatFastq echoes reads as FASTQ records, the second mate directly
// after the first.
func FormatFastq(ra, rb *reads.Record, out []byte) ([]byte, error) {
	out = appendFastq(out, ra)
	if rb != nil {
		out = appendFastq(out, rb)
	}
	return out, nil
}

// Formatter returns the aligner stand-in for the named output format.
func Formatter(format string) (Aligner, error) {
	switch format {
	case "tab6":
		return FormatTab6, nil
	case "fastq":
		return FormatFastq, nil
	default:
		return nil, fmt.Errorf("unknown output format %v", format)
	}
}
