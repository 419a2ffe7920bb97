package rudp

import (
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// lossyRelay forwards UDP packets between two fixed endpoints, letting
// a predicate decide which of the sender's packets to drop. It exists
// purely to give the Transport integration tests a socket that
// actually loses packets, since loopback UDP otherwise never does.
type lossyRelay struct {
	toReceiver *net.UDPConn // used to read sender traffic, write it to the receiver
	toSender   *net.UDPConn // used to read receiver traffic, write it to the sender
	senderAddr *net.UDPAddr
	recvAddr   *net.UDPAddr
	dropData   func(seq int) bool
	closeCh    chan struct{}
}

func newLossyRelay(t *testing.T, senderAddr, recvAddr string, dropData func(seq int) bool) *lossyRelay {
	t.Helper()
	toReceiver, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	toSender, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	sAddr, err := net.ResolveUDPAddr("udp", senderAddr)
	require.NoError(t, err)
	rAddr, err := net.ResolveUDPAddr("udp", recvAddr)
	require.NoError(t, err)

	r := &lossyRelay{
		toReceiver: toReceiver,
		toSender:   toSender,
		senderAddr: sAddr,
		recvAddr:   rAddr,
		dropData:   dropData,
		closeCh:    make(chan struct{}),
	}
	go r.pump(r.toReceiver, r.toSender, r.recvAddr, true)
	go r.pump(r.toSender, r.toReceiver, r.senderAddr, false)
	return r
}

// SenderFacingAddr is the address the sender's Transport should dial
// as its remote peer.
func (r *lossyRelay) SenderFacingAddr() string { return r.toReceiver.LocalAddr().String() }

// ReceiverFacingAddr is the address the receiver's Transport should
// dial as its remote peer.
func (r *lossyRelay) ReceiverFacingAddr() string { return r.toSender.LocalAddr().String() }

func (r *lossyRelay) pump(in, out *net.UDPConn, forwardTo *net.UDPAddr, fromSender bool) {
	buf := make([]byte, DefaultMTU)
	for {
		in.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := in.Read(buf)
		select {
		case <-r.closeCh:
			return
		default:
		}
		if err != nil {
			continue
		}
		if fromSender && r.dropData != nil {
			if p, derr := Decode(buf[:n]); derr == nil && p.Flag == FlagData && r.dropData(int(p.Seq)) {
				continue
			}
		}
		out.WriteToUDP(buf[:n], forwardTo)
	}
}

func (r *lossyRelay) Close() {
	close(r.closeCh)
	r.toReceiver.Close()
	r.toSender.Close()
}

func pumpUntil(t *testing.T, deadline time.Duration, step func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if step() {
			return
		}
	}
	t.Fatal("condition not met before deadline")
}

// reserveUDPAddr briefly opens a UDP socket to learn a free loopback
// port, then releases it — good enough to break the chicken-and-egg
// problem of two Dial'd Transports each needing the other's address
// up front.
func reserveUDPAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())
	return addr
}

func TestTransportRoundTripNoLoss(t *testing.T) {
	senderAddr := reserveUDPAddr(t)
	receiverAddr := reserveUDPAddr(t)

	sender, err := New(senderAddr, receiverAddr, WithWindowSize(16))
	require.NoError(t, err)
	defer sender.Close()

	receiver, err := New(receiverAddr, senderAddr, WithWindowSize(16))
	require.NoError(t, err)
	defer receiver.Close()

	const n = 20
	sent := 0
	var delivered []byte
	pumpUntil(t, 2*time.Second, func() bool {
		for sent < n {
			if err := sender.Send([]byte{byte(sent)}); err != nil {
				break
			}
			sent++
		}
		receiver.Pump(5 * time.Millisecond)
		sender.Pump(5 * time.Millisecond)
		receiver.ReceiveBatchWith(n, func(p []byte) { delivered = append(delivered, p...) })
		return len(delivered) == n
	})

	require.Len(t, delivered, n)
	for i := 0; i < n; i++ {
		require.Equal(t, byte(i), delivered[i])
	}

	st := sender.Stats()
	require.EqualValues(t, n, st.Sent)
	require.EqualValues(t, 0, st.Retransmitted)
}

func TestTransportLossRecovery(t *testing.T) {
	senderAddr := reserveUDPAddr(t)
	receiverAddr := reserveUDPAddr(t)

	const dropEvery = 10
	relay := newLossyRelay(t, senderAddr, receiverAddr, func(seq int) bool {
		return seq > 0 && seq%dropEvery == 0
	})
	defer relay.Close()

	sender, err := New(senderAddr, relay.SenderFacingAddr(), WithWindowSize(32), WithNakThresholdPackets(2))
	require.NoError(t, err)
	defer sender.Close()

	receiver, err := New(receiverAddr, relay.ReceiverFacingAddr(), WithWindowSize(32), WithNakThresholdPackets(2))
	require.NoError(t, err)
	defer receiver.Close()

	const n = 100
	sent := 0
	var delivered []byte

	pumpUntil(t, 5*time.Second, func() bool {
		for sent < n {
			if err := sender.Send([]byte{byte(sent)}); err != nil {
				break
			}
			sent++
		}
		sender.Pump(5 * time.Millisecond)
		receiver.Pump(5 * time.Millisecond)
		receiver.ReceiveBatchWith(n, func(p []byte) { delivered = append(delivered, p...) })
		return len(delivered) == n
	})

	require.Len(t, delivered, n)
	for i := 0; i < n; i++ {
		require.Equalf(t, byte(i), delivered[i], "sequence %d delivered out of order", i)
	}

	st := sender.Stats()
	require.Greater(t, st.Retransmitted, uint64(0), "dropped packets should have triggered at least one retransmit")
}

// TestTransportRTORecoversTailLoss drops only the very last packet of a
// burst, so the receiver never sees anything past it and never has a
// gap to NAK (highestSeen stops at the packet before the drop). Only
// the sender's own retransmit timeout can recover a loss like this.
func TestTransportRTORecoversTailLoss(t *testing.T) {
	senderAddr := reserveUDPAddr(t)
	receiverAddr := reserveUDPAddr(t)

	const n = 4
	const dropSeq = n - 1
	dropOnce := true
	relay := newLossyRelay(t, senderAddr, receiverAddr, func(seq int) bool {
		if seq == dropSeq && dropOnce {
			dropOnce = false
			return true
		}
		return false
	})
	defer relay.Close()

	mock := clock.NewMock()
	sender, err := New(senderAddr, relay.SenderFacingAddr(), WithWindowSize(8), WithClock(mock), WithRTOMin(10*time.Millisecond))
	require.NoError(t, err)
	defer sender.Close()

	receiver, err := New(receiverAddr, relay.ReceiverFacingAddr(), WithWindowSize(8))
	require.NoError(t, err)
	defer receiver.Close()

	for i := 0; i < n; i++ {
		require.NoError(t, sender.Send([]byte{byte(i)}))
	}

	var delivered []byte
	pumpUntil(t, 2*time.Second, func() bool {
		mock.Add(20 * time.Millisecond) // age the oldest unacked past rtoMin
		sender.Pump(5 * time.Millisecond)
		receiver.Pump(5 * time.Millisecond)
		receiver.ReceiveBatchWith(n, func(p []byte) { delivered = append(delivered, p...) })
		sender.Pump(5 * time.Millisecond) // pick up the receiver's cumulative ack
		return len(delivered) == n
	})

	require.Len(t, delivered, n)
	for i := 0; i < n; i++ {
		require.Equal(t, byte(i), delivered[i])
	}

	st := sender.Stats()
	require.Greater(t, st.Retransmitted, uint64(0), "tail loss is only recoverable via the retransmit timeout, not a NAK")
}

func TestTransportReorderNoNak(t *testing.T) {
	w, err := newRecvWindow(16, 8)
	require.NoError(t, err)

	for _, seq := range []uint32{0, 1, 3, 2, 4} {
		w.Receive(Packet{Seq: seq, Flag: FlagData})
	}
	require.Empty(t, w.PendingNaks(4), "packets arriving within jitter tolerance should not trigger a NAK")

	var order []uint32
	w.DeliverInOrder(func(p Packet) { order = append(order, p.Seq) })
	require.Equal(t, []uint32{0, 1, 2, 3, 4}, order)
}
