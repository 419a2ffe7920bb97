// Package ring implements a lock-free ring buffer in the LMAX Disruptor
// tradition: a fixed-capacity slot array coordinated by a sequence
// protocol rather than locks. It supports all four producer/consumer
// cardinalities (SPSC, MPSC, SPMC, MPMC) and is the shared foundation
// for both the cross-process shared ring (package sharedring) and the
// reliable UDP transport (package rudp).
package ring
