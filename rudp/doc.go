// Package rudp implements a NAK-based reliable delivery protocol over
// UDP: a sliding send window retained for retransmission, a hybrid
// (bounded ring + overflow map) receive reassembly window, NAK/ACK
// control-plane signalling, and AIMD congestion control. The send
// window is built on package ring's sequence protocol; the receive
// window is its own seq-indexed slot array plus overflow map.
package rudp
