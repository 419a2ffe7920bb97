package rudp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jbenet/goprocess"
	tec "github.com/jbenet/go-temp-err-catcher"
	"go.uber.org/zap"
)

// Transport is one end of a NAK-based reliable UDP connection to a
// single fixed peer. Its public API is single-threaded: either the
// caller drives it by calling Pump repeatedly, or it calls
// RunBackground once to hand receive/retransmit duty to two internal
// goroutines. The two modes are mutually exclusive on one instance.
type Transport struct {
	id   uuid.UUID
	conn *net.UDPConn
	cfg  *config

	sendWin *sendWindow
	recvWin *recvWindow
	cong    *congestionController
	stats   *stats

	errCatcher tec.TempErrCatcher

	mu      sync.Mutex
	timeout time.Duration

	proc   goprocess.Process
	closed chan struct{}
}

// New dials remoteAddr from localAddr and returns a ready Transport.
// Nothing is sent or received until the caller starts pumping or calls
// RunBackground.
func New(localAddr, remoteAddr string, opts ...Option) (*Transport, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, err
	}

	sendWin, err := newSendWindow(uint64(cfg.windowSize))
	if err != nil {
		conn.Close()
		return nil, err
	}
	recvWin, err := newRecvWindow(cfg.windowSize, cfg.overflowMax)
	if err != nil {
		conn.Close()
		return nil, err
	}

	sendWin.SetClock(cfg.clock)

	st := &stats{}
	if cfg.registry != nil {
		st.metrics = newPromMetrics(cfg.registry, cfg.metricsNamespace)
	}

	t := &Transport{
		id:      uuid.New(),
		conn:    conn,
		cfg:     cfg,
		sendWin: sendWin,
		recvWin: recvWin,
		cong:    newCongestionController(4, 2, cfg.windowSize, cfg.clock),
		stats:   st,
		closed:  make(chan struct{}),
	}
	cfg.logger.Info("transport opened",
		zap.String("id", t.id.String()),
		zap.String("local", localAddr),
		zap.String("remote", remoteAddr),
		zap.Uint32("window_size", cfg.windowSize),
	)
	return t, nil
}

// ID returns the transport's diagnostic correlation id.
func (t *Transport) ID() uuid.UUID { return t.id }

// SetTimeout records d on the transport. No method reads it:
// ReceiveBatchWith never waits, and Pump takes its own per-call
// timeout argument.
func (t *Transport) SetTimeout(d time.Duration) {
	t.mu.Lock()
	t.timeout = d
	t.mu.Unlock()
}

func (t *Transport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Send submits payload for reliable delivery. It returns ErrWindowFull
// (not a fatal error) when the congestion window or the retained send
// window is saturated; the caller retries once capacity frees up.
func (t *Transport) Send(payload []byte) error {
	if t.isClosed() {
		return ErrClosed
	}
	if len(payload) > t.cfg.mtu-HeaderSize {
		return ErrPayloadTooLarge
	}
	if !t.cong.CanSend() {
		return ErrWindowFull
	}
	seq, ok, err := t.sendWin.TrySend(payload)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWindowFull
	}
	t.cong.OnSend()

	buf, err := Encode(Packet{Seq: seq, Flag: FlagData, Payload: payload}, t.cfg.mtu)
	if err != nil {
		return err
	}
	if _, err := t.conn.Write(buf); err != nil {
		return err
	}
	t.stats.onSent()
	t.stats.setCwnd(t.cong.Window())
	return nil
}

// SendBatch submits each payload in order, stopping at the first one
// that doesn't fit (window saturation is not an error: it reports how
// many were accepted). A fatal send error is returned immediately.
func (t *Transport) SendBatch(payloads [][]byte) (int, error) {
	for i, p := range payloads {
		if err := t.Send(p); err != nil {
			if errors.Is(err, ErrWindowFull) {
				return i, nil
			}
			return i, err
		}
	}
	return len(payloads), nil
}

// ReceiveBatchWith delivers up to max in-order payloads already
// reassembled by prior Pump/RunBackground activity, invoking fn for
// each. It never blocks or performs I/O itself — call Pump first (or
// run in background mode) to feed the receive window.
func (t *Transport) ReceiveBatchWith(max int, fn func([]byte)) int {
	delivered := 0
	for delivered < max {
		p, ok := t.recvWin.PopNext()
		if !ok {
			break
		}
		fn(p.Payload)
		delivered++
	}
	if delivered > 0 {
		t.sendAck()
	}
	return delivered
}

// Pump performs one bounded receive + control-plane + retransmit pass.
// It is the single-threaded alternative to RunBackground: the caller
// is responsible for calling it repeatedly (e.g. in its own event
// loop). A read timeout is not an error — it just means no packet
// arrived within timeout.
func (t *Transport) Pump(timeout time.Duration) error {
	if t.isClosed() {
		return ErrClosed
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	buf := make([]byte, t.cfg.mtu)
	n, err := t.conn.Read(buf)
	switch {
	case err == nil:
		if herr := t.handleIncoming(buf[:n]); herr != nil {
			return herr
		}
	case isTimeout(err):
		// no data this pass
	case t.errCatcher.IsTemporary(err):
		// transient socket error, retry next pass
	default:
		return err
	}
	t.checkRetransmits()
	t.checkRTO()
	return nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (t *Transport) handleIncoming(raw []byte) error {
	p, err := Decode(raw)
	if err != nil {
		return err
	}
	switch p.Flag {
	case FlagAck:
		seq, ok := DecodeAck(p)
		if !ok {
			return nil
		}
		if _, sentAt, pending := t.sendWin.OldestUnacked(); pending && !sentAt.IsZero() {
			t.cong.UpdateRTT(t.cfg.clock.Now().Sub(sentAt))
		}
		t.cong.OnAck()
		t.stats.setCwnd(t.cong.Window())
		return t.sendWin.OnAck(seq)

	case FlagNak:
		start, end, ok := DecodeNak(p)
		if !ok {
			return nil
		}
		t.stats.onNakIn()
		t.cong.OnLoss()
		t.stats.setCwnd(t.cong.Window())
		return t.retransmitRange(start, end)

	default:
		t.stats.onReceived()
		outcome := t.recvWin.Receive(p)
		if outcome == outcomeDuplicate {
			t.stats.onDuplicate()
		}
		return nil
	}
}

func (t *Transport) retransmitRange(start, end uint32) error {
	for seq := start; ; seq++ {
		if pkt, ok := t.sendWin.Peek(seq); ok {
			buf, err := Encode(pkt, t.cfg.mtu)
			if err != nil {
				return err
			}
			if _, err := t.conn.Write(buf); err != nil {
				return err
			}
			t.stats.onRetransmitted()
		}
		if seq == end {
			break
		}
	}
	return nil
}

// checkRetransmits emits NAKs for any gap that has aged past the
// configured threshold. This receiver-driven NAK is the main loss
// recovery path; the sender's single oldest-unacked timer (checkRTO)
// covers the losses a receiver cannot see.
func (t *Transport) checkRetransmits() {
	for _, r := range t.recvWin.PendingNaks(t.cfg.nakThresholdPackets) {
		nak := EncodeNak(r[0], r[1])
		buf, err := Encode(nak, t.cfg.mtu)
		if err != nil {
			continue
		}
		if _, err := t.conn.Write(buf); err == nil {
			t.recvWin.ResetGapAge(r[0], r[1])
		}
	}
}

// rto returns the current retransmit timeout: twice the RTT estimate,
// floored at the configured minimum so a still-warming-up RTT estimate
// (seeded at 1ms, see newCongestionController) can't fire a timeout
// before any real round trip has been observed.
func (t *Transport) rto() time.Duration {
	if d := t.cong.RTT() * 2; d > t.cfg.rtoMin {
		return d
	}
	return t.cfg.rtoMin
}

// checkRTO is the sender-side counterpart to checkRetransmits: if the
// oldest unacked packet has sat in flight longer than the retransmit
// timeout, treat it as lost — halve the congestion window once (via the
// same RTT-gated OnLoss used for NAKs) and resend forward from it, up to
// the new window's worth of packets. This is what recovers the window's
// own tail loss, which a NAK alone cannot: the receiver's recvWindow
// never saw those sequences at all, so it has no gap to notice.
func (t *Transport) checkRTO() {
	seq, sentAt, ok := t.sendWin.OldestUnacked()
	if !ok || sentAt.IsZero() {
		return
	}
	if t.cfg.clock.Since(sentAt) < t.rto() {
		return
	}
	t.cong.OnLoss()
	t.stats.setCwnd(t.cong.Window())
	t.resendFrom(seq, t.cong.Window())
}

// resendFrom retransmits up to count packets starting at the oldest
// unacked wire sequence, stopping early if the window has fewer
// still-retained packets than count.
func (t *Transport) resendFrom(start uint32, count uint32) {
	seq := start
	for i := uint32(0); i < count; i++ {
		pkt, ok := t.sendWin.Peek(seq)
		if !ok {
			break
		}
		buf, err := Encode(pkt, t.cfg.mtu)
		if err == nil {
			if _, werr := t.conn.Write(buf); werr == nil {
				t.stats.onRetransmitted()
				t.sendWin.MarkSent(seq)
			}
		}
		seq++
	}
}

func (t *Transport) sendAck() {
	cumulative, ok := t.recvWin.CumulativeAck()
	if !ok {
		return
	}
	ack := EncodeAck(cumulative)
	buf, err := Encode(ack, t.cfg.mtu)
	if err != nil {
		return
	}
	if _, err := t.conn.Write(buf); err == nil {
		t.stats.onAckOut()
	}
}

// RunBackground starts the two auxiliary goroutines (socket receive,
// timer-driven retransmit/ack) under a goprocess tree rooted at the
// transport, so Close cancels both deterministically. Do not call Pump
// concurrently with a running background transport.
func (t *Transport) RunBackground(deliver func([]byte)) {
	t.proc = goprocess.WithParent(goprocess.Background())

	t.proc.Go(func(proc goprocess.Process) {
		for {
			select {
			case <-proc.Closing():
				return
			default:
			}
			if err := t.Pump(50 * time.Millisecond); err != nil {
				if t.isClosed() {
					return
				}
				t.cfg.logger.Warn("pump error", zap.Error(err))
			}
			t.ReceiveBatchWith(int(t.cfg.windowSize), deliver)
		}
	})

	t.proc.Go(func(proc goprocess.Process) {
		ticker := t.cfg.clock.Ticker(t.cfg.ackPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-proc.Closing():
				return
			case <-ticker.C:
				t.sendAck()
				t.checkRTO()
			}
		}
	})
}

// Stats returns a snapshot of the transport's counters.
func (t *Transport) Stats() Stats {
	return t.stats.snapshot(t.cong.Window())
}

// Close tears down the transport: background goroutines (if running)
// are stopped and the socket is closed. Afterwards Send, SendBatch and
// Pump return ErrClosed and a repeated Close returns nil;
// ReceiveBatchWith, Stats, SetTimeout and ID have no error result and
// do not report the closed state.
func (t *Transport) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
		close(t.closed)
	}
	if t.proc != nil {
		t.proc.Close()
	}
	t.cfg.logger.Info("transport closed", zap.String("id", t.id.String()))
	return t.conn.Close()
}
