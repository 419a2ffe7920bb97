// Package sharedring implements a cross-process single-producer,
// single-consumer ring buffer backed by a memory-mapped file. It
// reuses the same claim/publish/consume protocol as package ring,
// supplying mmap-backed Sequence and buffer implementations in place
// of the in-process heap-backed ones.
package sharedring
