// Package reads is a library for dispensing sequencing reads from
// FASTQ, FASTA, tabbed and raw files to many consumer goroutines at
// once.
//
// Reading happens in two phases. A Source light-parses a batch of
// reads while holding its lock, doing only as much work as needed to
// find where each record starts and ends. Each consumer then decodes
// its own batch without any synchronization. A Composer pulls batches
// from one or more sources in order and assigns every read an id that
// is unique and increases monotonically across all sources, so that
// output can later be put back into input order.
//
// A PerThread consumer is the intended entry point: create one per
// goroutine for a shared Composer returned by SetupComposer, and call
// NextReadPair until it reports that nothing was found.
package reads
