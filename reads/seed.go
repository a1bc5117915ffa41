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

// RandSeed derives a per-read pseudo-random seed from the bases, the
// qualities, the name up to the first '/', and the global seed. Equal
// reads always get equal seeds, independent of which goroutine parsed
// them.
func RandSeed(seq, qual, name []byte, seed uint32) uint32 {
	rseed := (seed + 101) * 59 * 61 * 67 * 71 * 73 * 79 * 83
	for i, b := range seq {
		rseed ^= uint32(b) << ((uint(i) & 15) << 1)
	}
	for i := range seq {
		if i >= len(qual) {
			break
		}
		rseed ^= uint32(qual[i]) << ((uint(i) & 3) << 3)
	}
	for i, c := range name {
		if c == '/' {
			break
		}
		rseed ^= uint32(c) << ((uint(i) & 3) << 3)
	}
	return rseed
}
