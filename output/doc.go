// Package output collects per-read output text from many producer
// goroutines and writes it to a single stream.
//
// A Queue can either preserve read id order, holding text back in a
// growable window until all lower ids have been written, or write text
// as soon as it arrives. Each producer thread stages a few records
// locally before taking the queue lock. Use Produce, or Mark and
// Finish, to guarantee that every started read is also finished.
package output
