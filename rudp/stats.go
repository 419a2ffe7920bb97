package rudp

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time snapshot of a Transport's counters.
type Stats struct {
	Sent           uint64
	Received       uint64
	Retransmitted  uint64
	AcksOut        uint64
	NaksIn         uint64
	Duplicates     uint64
	CongestionWindow uint32
}

// stats holds the live counters backing Stats snapshots, and
// optionally mirrors them onto caller-supplied Prometheus metrics.
// There is no package-level registry: a Transport that doesn't want
// Prometheus exposition simply never calls WithRegistry.
type stats struct {
	sent          atomic.Uint64
	received      atomic.Uint64
	retransmitted atomic.Uint64
	acksOut       atomic.Uint64
	naksIn        atomic.Uint64
	duplicates    atomic.Uint64

	metrics *promMetrics
}

type promMetrics struct {
	sent          prometheus.Counter
	received      prometheus.Counter
	retransmitted prometheus.Counter
	acksOut       prometheus.Counter
	naksIn        prometheus.Counter
	duplicates    prometheus.Counter
	cwnd          prometheus.Gauge
}

// newPromMetrics registers a fixed set of counters/gauges on reg under
// the given namespace. Each Transport instance must use a distinct
// namespace (or its own *prometheus.Registry) to avoid a duplicate
// registration panic — the caller owns that choice, per the "no global
// registry" rule.
func newPromMetrics(reg prometheus.Registerer, namespace string) *promMetrics {
	m := &promMetrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_sent_total",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_received_total",
		}),
		retransmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_retransmitted_total",
		}),
		acksOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acks_sent_total",
		}),
		naksIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "naks_received_total",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "duplicate_packets_total",
		}),
		cwnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "congestion_window_packets",
		}),
	}
	reg.MustRegister(m.sent, m.received, m.retransmitted, m.acksOut, m.naksIn, m.duplicates, m.cwnd)
	return m
}

func (s *stats) onSent() {
	s.sent.Add(1)
	if s.metrics != nil {
		s.metrics.sent.Inc()
	}
}

func (s *stats) onReceived() {
	s.received.Add(1)
	if s.metrics != nil {
		s.metrics.received.Inc()
	}
}

func (s *stats) onRetransmitted() {
	s.retransmitted.Add(1)
	if s.metrics != nil {
		s.metrics.retransmitted.Inc()
	}
}

func (s *stats) onAckOut() {
	s.acksOut.Add(1)
	if s.metrics != nil {
		s.metrics.acksOut.Inc()
	}
}

func (s *stats) onNakIn() {
	s.naksIn.Add(1)
	if s.metrics != nil {
		s.metrics.naksIn.Inc()
	}
}

func (s *stats) onDuplicate() {
	s.duplicates.Add(1)
	if s.metrics != nil {
		s.metrics.duplicates.Inc()
	}
}

func (s *stats) setCwnd(v uint32) {
	if s.metrics != nil {
		s.metrics.cwnd.Set(float64(v))
	}
}

func (s *stats) snapshot(cwnd uint32) Stats {
	return Stats{
		Sent:             s.sent.Load(),
		Received:         s.received.Load(),
		Retransmitted:    s.retransmitted.Load(),
		AcksOut:          s.acksOut.Load(),
		NaksIn:           s.naksIn.Load(),
		Duplicates:       s.duplicates.Load(),
		CongestionWindow: cwnd,
	}
}
