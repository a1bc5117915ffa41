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

package cmd

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/exascience/elreads/output"
	"github.com/exascience/elreads/reads"
)

// convertConfig holds everything that can be set in a configuration
// file for the convert command.
//
//	output-format = "fastq"
//
//	[reads]
//	format = "fasta-continuous"
//	window-length = 100
//
//	[output]
//	reorder = false
type convertConfig struct {
	OutputFormat string         `toml:"output-format"`
	Verbose      bool           `toml:"verbose"`
	Reads        reads.Params   `toml:"reads"`
	Output       output.Options `toml:"output"`
}

func defaultConvertConfig() convertConfig {
	params := reads.DefaultParams()
	return convertConfig{
		OutputFormat: "tab6",
		Reads:        params,
		Output:       output.DefaultOptions(params.NThreads),
	}
}

// uint32Value is a flag.Value for uint32 variables.
type uint32Value uint32

func (v *uint32Value) String() string {
	return strconv.FormatUint(uint64(*v), 10)
}

func (v *uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*v = uint32Value(n)
	return nil
}

// loadConfig reads the TOML file into cfg. Flags that were given
// explicitly on the command line keep their values.
func loadConfig(flags *flag.FlagSet, filename string, cfg *convertConfig) error {
	explicit := make(map[string]string)
	flags.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	if _, err := toml.DecodeFile(filename, cfg); err != nil {
		return fmt.Errorf("%v, while reading configuration file %v", err, filename)
	}
	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
