package ring

// Mode selects one of the four producer/consumer cardinalities a Ring
// supports. SPMC/MPMC are fan-out: every registered consumer observes
// every published sequence, not a competing-consumer split.
type Mode uint8

const (
	// SPSC is single-producer, single-consumer.
	SPSC Mode = iota
	// MPSC is multi-producer, single-consumer.
	MPSC
	// SPMC is single-producer, multi-consumer (fan-out).
	SPMC
	// MPMC is multi-producer, multi-consumer (fan-out).
	MPMC
)

func (m Mode) String() string {
	switch m {
	case SPSC:
		return "SPSC"
	case MPSC:
		return "MPSC"
	case SPMC:
		return "SPMC"
	case MPMC:
		return "MPMC"
	default:
		return "unknown"
	}
}

func (m Mode) multiProducer() bool { return m == MPSC || m == MPMC }
func (m Mode) multiConsumer() bool { return m == SPMC || m == MPMC }
