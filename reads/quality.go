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
	"bytes"
	"fmt"
	"math"
	"strconv"
)

const maxPhred = 93

// solexaToPhred converts a Solexa-scaled quality to a Phred-scaled one.
func solexaToPhred(sol int) int {
	if sol < -10 {
		return 0
	}
	return int(10*math.Log10(1+math.Pow(10, float64(sol)/10)) + .5)
}

// charToPhred33 decodes one ASCII quality character according to the
// configured encoding and returns it as a Phred+33 character.
func (p *Params) charToPhred33(c byte, name []byte) (byte, error) {
	if c == ' ' {
		return 0, wrongQualityFormat(name)
	}
	switch {
	case p.Solexa64:
		cc := solexaToPhred(int(c)-64) + 33
		if cc < 33 {
			return 0, fmt.Errorf("saw ASCII character %v in read %s but expected 64-based Solexa qual", int(c), name)
		}
		return byte(cc), nil
	case p.Phred64:
		if c < 64 {
			return 0, fmt.Errorf("saw ASCII character %v in read %s but expected 64-based Phred qual", int(c), name)
		}
		return c - (64 - 33), nil
	default:
		if c < 33 {
			return 0, fmt.Errorf("saw ASCII character %v in read %s but expected 33-based Phred qual", int(c), name)
		}
		return c, nil
	}
}

// intToPhred33 converts an integer quality to a Phred+33 character.
func (p *Params) intToPhred33(q int) byte {
	if p.Solexa64 {
		q = solexaToPhred(q)
	}
	if q < 0 {
		q = 0
	} else if q > maxPhred {
		q = maxPhred
	}
	return byte(q + 33)
}

// appendQuals decodes a complete quality field into r.Qual.
func (p *Params) appendQuals(r *Record, field []byte) error {
	if p.IntQuals {
		for _, tok := range bytes.Fields(field) {
			q, err := strconv.Atoi(string(tok))
			if err != nil {
				return fmt.Errorf("%v, while parsing integer qualities for read %s", err, r.Name)
			}
			r.Qual = append(r.Qual, p.intToPhred33(q))
		}
		return nil
	}
	for _, c := range field {
		q, err := p.charToPhred33(c, r.Name)
		if err != nil {
			return err
		}
		r.Qual = append(r.Qual, q)
	}
	return nil
}

// finishMate checks that sequence and qualities line up and applies
// trimming.
func (p *Params) finishMate(r *Record) error {
	if len(r.Seq) > len(r.Qual) {
		return tooFewQualities(r.Name)
	} else if len(r.Qual) > len(r.Seq) {
		return tooManyQualities(r.Name)
	}
	r.trim(p.Trim5, p.Trim3)
	r.Parsed = true
	return nil
}

func wrongQualityFormat(name []byte) error {
	return fmt.Errorf("encountered one or more spaces while parsing the quality string for read %s; if this is a FASTQ file with integer (non-ASCII-encoded) qualities, try re-running with the --int-quals option", name)
}

func tooFewQualities(name []byte) error {
	return fmt.Errorf("read %s has more read characters than quality values", name)
}

func tooManyQualities(name []byte) error {
	return fmt.Errorf("read %s has more quality values than read characters", name)
}
