// Package process drives a pool of worker goroutines that pull reads
// from a reads.Composer, pass each read or pair to an aligner, and
// collect the results in an output.Queue.
package process
