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
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/exascience/elreads/internal"
	"github.com/exascience/elreads/output"
	"github.com/exascience/elreads/process"
	"github.com/exascience/elreads/reads"
)

// ConvertHelp is the help string for this command.
const ConvertHelp = "convert parameters:\n" +
	"elreads convert output-file\n" +
	"[--reads files]\n" +
	"[--1 files --2 files]\n" +
	"[--12 files]\n" +
	"[--literal sequences]\n" +
	"[--stream command]\n" +
	"[--format fastq | fasta | fasta-continuous | tab5 | tab6 | raw]\n" +
	"[--trim5 nr-of-bases]\n" +
	"[--trim3 nr-of-bases]\n" +
	"[--phred64]\n" +
	"[--solexa-quals]\n" +
	"[--int-quals]\n" +
	"[--seed number]\n" +
	"[--fix-names]\n" +
	"[--interleaved]\n" +
	"[--block-bytes nr-of-bytes --reads-per-block nr-of-reads]\n" +
	"[--window-length nr-of-bases]\n" +
	"[--window-frequency nr-of-bases]\n" +
	"[--file-parallel]\n" +
	"[--batch-size nr-of-reads]\n" +
	"[--input-buffer-size nr-of-bytes]\n" +
	"[--output-format tab6 | fastq]\n" +
	"[--unordered]\n" +
	"[--output-buffer-size nr-of-bytes]\n" +
	"[--per-thread-buffer nr-of-reads]\n" +
	"[--nr-of-threads number]\n" +
	"[--config toml-file]\n" +
	"[--verbose]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"Lists of files and sequences are comma-separated. Directories are\n" +
	"replaced by the files they contain, and - stands for standard input.\n" +
	"A stream command writes tab6 lines to its standard output; it cannot\n" +
	"be combined with other inputs.\n" +
	"Use /dev/stdout as output-file to write to standard output.\n"

const progressInterval = 10 * time.Second

// Convert implements the elreads convert command.
func Convert() error {
	cfg := defaultConvertConfig()

	var (
		singles, mates1, mates2, mates12, literals string
		stream                                     string
		unordered                                  bool
		configFile                                 string
		timed                                      bool
		logPath                                    string
	)

	var flags flag.FlagSet

	flags.StringVar(&singles, "reads", "", "files with unpaired reads")
	flags.StringVar(&mates1, "1", "", "files with first mates")
	flags.StringVar(&mates2, "2", "", "files with second mates, matching the files given with --1")
	flags.StringVar(&mates12, "12", "", "files with both mates of each pair")
	flags.StringVar(&literals, "literal", "", "reads given as SEQ or SEQ:QUALS")
	flags.StringVar(&stream, "stream", "", "command that writes tab6 reads to its standard output")
	flags.StringVar((*string)(&cfg.Reads.Format), "format", string(cfg.Reads.Format), "format of the input files")
	flags.IntVar(&cfg.Reads.Trim5, "trim5", cfg.Reads.Trim5, "trim bases from the 5' end of each read")
	flags.IntVar(&cfg.Reads.Trim3, "trim3", cfg.Reads.Trim3, "trim bases from the 3' end of each read")
	flags.BoolVar(&cfg.Reads.Phred64, "phred64", cfg.Reads.Phred64, "qualities are Phred+64")
	flags.BoolVar(&cfg.Reads.Solexa64, "solexa-quals", cfg.Reads.Solexa64, "qualities are Solexa-scaled with offset 64")
	flags.BoolVar(&cfg.Reads.IntQuals, "int-quals", cfg.Reads.IntQuals, "qualities are space-separated integers")
	flags.Var((*uint32Value)(&cfg.Reads.Seed), "seed", "seed for the per-read pseudo-random seeds")
	flags.BoolVar(&cfg.Reads.FixName, "fix-names", cfg.Reads.FixName, "append /1 and /2 to the names of paired mates")
	flags.BoolVar(&cfg.Reads.Interleaved, "interleaved", cfg.Reads.Interleaved, "FASTQ files given with --reads hold both mates of each pair")
	flags.IntVar(&cfg.Reads.BlockBytes, "block-bytes", cfg.Reads.BlockBytes, "size of fixed FASTQ input blocks")
	flags.IntVar(&cfg.Reads.ReadsPerBlock, "reads-per-block", cfg.Reads.ReadsPerBlock, "number of reads in each fixed FASTQ input block")
	flags.IntVar(&cfg.Reads.WindowLength, "window-length", cfg.Reads.WindowLength, "length of reads sampled from fasta-continuous input")
	flags.IntVar(&cfg.Reads.WindowFrequency, "window-frequency", cfg.Reads.WindowFrequency, "distance between reads sampled from fasta-continuous input")
	flags.BoolVar(&cfg.Reads.FileParallel, "file-parallel", cfg.Reads.FileParallel, "read each input file as a separate source")
	flags.IntVar(&cfg.Reads.BatchSize, "batch-size", cfg.Reads.BatchSize, "number of reads each thread takes at once")
	flags.IntVar(&cfg.Reads.BufferSize, "input-buffer-size", cfg.Reads.BufferSize, "read buffer size for each input file")
	flags.StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "format of the output file")
	flags.BoolVar(&unordered, "unordered", false, "write output in any order")
	flags.IntVar(&cfg.Output.WriteBufferSize, "output-buffer-size", cfg.Output.WriteBufferSize, "write buffer size for the output file")
	flags.IntVar(&cfg.Output.PerThreadBufSize, "per-thread-buffer", cfg.Output.PerThreadBufSize, "number of output records each thread stages")
	flags.IntVar(&cfg.Reads.NThreads, "nr-of-threads", cfg.Reads.NThreads, "number of worker threads")
	flags.StringVar(&configFile, "config", "", "read options from a TOML file")
	flags.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log progress periodically")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 3, ConvertHelp)

	outputFile := getFilename(os.Args[2], ConvertHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	if configFile != "" {
		if !checkExist("--config", configFile) {
			sanityChecksFailed = true
		} else if err := loadConfig(&flags, configFile, &cfg); err != nil {
			log.Println("Error:", err)
			sanityChecksFailed = true
		}
	}
	if unordered {
		cfg.Output.Reorder = false
	}
	cfg.Output.NThreads = cfg.Reads.NThreads

	inputs := make(map[string][]string)
	for _, list := range []struct {
		parameter string
		value     string
	}{
		{"--reads", singles},
		{"--1", mates1},
		{"--2", mates2},
		{"--12", mates12},
	} {
		files, err := internal.ExpandInputs(splitList(list.value))
		if err != nil {
			log.Printf("Error: %v for command line parameter %v.\n", err, list.parameter)
			sanityChecksFailed = true
			continue
		}
		if len(files) > 0 && !checkAnyExist(list.parameter, files) {
			sanityChecksFailed = true
		}
		inputs[list.parameter] = files
	}
	literalReads := splitList(literals)

	nInputs := len(inputs["--reads"]) + len(inputs["--1"]) + len(inputs["--12"]) + len(literalReads)

	var streamArgs []string
	if stream != "" {
		var err error
		if streamArgs, err = shellquote.Split(stream); err != nil || len(streamArgs) == 0 {
			log.Printf("Error: Invalid command %q for command line parameter --stream.\n", stream)
			sanityChecksFailed = true
		}
		if nInputs > 0 {
			log.Println("Error: --stream cannot be combined with other inputs.")
			sanityChecksFailed = true
		}
	} else if nInputs == 0 {
		log.Println("Error: No input reads specified.")
		sanityChecksFailed = true
	}

	if len(inputs["--1"]) != len(inputs["--2"]) {
		log.Println("Error: The same number of files must be specified with --1 and --2.")
		sanityChecksFailed = true
	}

	if err := cfg.Reads.Validate(); err != nil {
		log.Println("Error:", err)
		sanityChecksFailed = true
	}

	align, err := process.Formatter(cfg.OutputFormat)
	if err != nil {
		log.Println("Error:", err)
		sanityChecksFailed = true
	}

	if cfg.Reads.NThreads < 1 {
		log.Println("Error: Invalid nr-of-threads: ", cfg.Reads.NThreads)
		sanityChecksFailed = true
	}

	if !checkCreate("", outputFile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, ConvertHelp)
		os.Exit(1)
	}

	// output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " convert ", outputFile)
	flags.Visit(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			fmt.Fprint(&command, " --", f.Name)
		} else {
			fmt.Fprint(&command, " --", f.Name, " ", f.Value)
		}
	})

	runtime.GOMAXPROCS(cfg.Reads.NThreads)

	// executing command

	log.Println("Executing command:\n", command.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return timedRun(timed, "Converting reads.", func() (err error) {
		composer, err := setupComposer(ctx, inputs, literalReads, streamArgs, &cfg.Reads)
		if err != nil {
			return err
		}
		defer func() {
			nerr := composer.Close()
			if err == nil {
				err = nerr
			}
		}()
		queue, err := output.Create(outputFile, cfg.Output)
		if err != nil {
			return err
		}
		defer func() {
			nerr := queue.Close()
			if err == nil {
				err = nerr
			}
		}()
		opts := process.Options{NThreads: cfg.Reads.NThreads}
		if cfg.Verbose {
			opts.ProgressInterval = progressInterval
		}
		stats, err := process.Run(ctx, composer, queue, &cfg.Reads, opts, align)
		log.Printf("Processed %v reads (%v pairs, %v unpaired reads), wrote %v records.\n", stats.Reads(), stats.Pairs, stats.Unpaired, stats.Written)
		return err
	})
}

func setupComposer(ctx context.Context, inputs map[string][]string, literals, streamArgs []string, p *reads.Params) (reads.Composer, error) {
	if streamArgs == nil {
		return reads.SetupComposer(inputs["--reads"], inputs["--1"], inputs["--2"], inputs["--12"], literals, p)
	}
	fetcher, err := reads.NewCommandFetcher(streamArgs)
	if err != nil {
		return nil, err
	}
	composer, err := reads.NewStreamComposer(ctx, fetcher, p)
	if err != nil {
		_ = fetcher.Close()
		return nil, err
	}
	return composer, nil
}
