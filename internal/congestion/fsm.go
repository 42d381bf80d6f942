// Package congestion implements the backward congestion-signalling state
// machine: it watches the tap→sock queue for sustained high fullness and,
// instead of waiting for real packet loss, fabricates bursts of duplicate
// TCP ACKs toward the tap side so the local sender backs off the way it
// would on TCP Reno's triple-dup-ACK signal.
//
// The five states (IDLE, ARMED, COUNTING, CAPTURING_ACK, SPOOFING(k)) are a
// tagged variant here rather than a small-integer encoding: each is named
// explicitly rather than packed into one shared int field.
package congestion

import (
	"github.com/acktun/acktun/internal/packet"
)

// State names a position in the congestion-signal state machine.
type State int

const (
	Idle State = iota
	Armed
	Counting
	CapturingACK
	Spoofing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Counting:
		return "counting"
	case CapturingACK:
		return "capturing_ack"
	case Spoofing:
		return "spoofing"
	default:
		return "unknown"
	}
}

// Machine holds all state for one endpoint's reverse-path congestion
// signalling. It is not safe for concurrent use; the event loop driving it
// is single-threaded by design.
type Machine struct {
	state State

	hasTrigger bool
	triggerSeq uint32

	pktCount int // packets counted during the single COUNTING window
	round    int // k in SPOOFING(k); meaningful only when state == Spoofing

	// template is an owned copy of the captured pure-ACK, independent of
	// whatever queue slot it arrived in. Aliasing a queue-owned buffer here
	// instead would risk a use-after-free once the queue's normal release
	// path ran on the same memory.
	template []byte
}

// New returns a machine starting in IDLE.
func New() *Machine { return &Machine{} }

// State reports the current state.
func (m *Machine) State() State { return m.state }

// TriggerSeq reports the latched trigger sequence number, if any.
func (m *Machine) TriggerSeq() (seq uint32, ok bool) { return m.triggerSeq, m.hasTrigger }

// OnTapEnqueued is called after a tap-inbound packet has been accepted into
// the tap→sock queue. If the machine is IDLE and fullness has crossed
// highWater, it latches seq as the trigger sequence and arms.
func (m *Machine) OnTapEnqueued(fullness, highWater int, seq uint32) {
	if m.state == Idle && fullness > highWater {
		m.triggerSeq = seq
		m.hasTrigger = true
		m.state = Armed
	}
}

// OnTapInbound is called for every packet read off tap, before it is
// considered for enqueue. It reports whether the packet should be dropped
// silently (suppressed as an assumed retransmission of the packet that
// triggered the current spoofing episode) and, while COUNTING, advances the
// round's packet estimate.
func (m *Machine) OnTapInbound(buf []byte) (drop bool) {
	if m.hasTrigger {
		if seq, err := packet.TCPSeq(buf); err == nil && seq == m.triggerSeq {
			return true
		}
	}
	if m.state == Counting {
		m.pktCount++
	}
	return false
}

// HandleReverseWrite drives one reverse-path (sock→tap) write opportunity.
// p is the packet dequeued from Qsock for this opportunity. It returns the
// packets that should actually be written to tap, in order: ordinarily just
// p itself, but a burst of fabricated dup-ACKs while SPOOFING, or nothing at
// all if p is consumed without being forwarded.
func (m *Machine) HandleReverseWrite(p []byte) ([][]byte, error) {
	switch m.state {
	case Idle:
		return [][]byte{p}, nil

	case Armed:
		// The next reverse-path write after arming begins the single-tick
		// RTT-estimate window.
		m.state = Counting
		m.pktCount = 0
		return [][]byte{p}, nil

	case Counting:
		// COUNTING exits on the *next* scheduled tap write: a one-write
		// window. Whether that's an intentional RTT probe or an accident of
		// the design is unclear, but the behaviour is kept as-is either way.
		m.state = CapturingACK
		return [][]byte{p}, nil

	case CapturingACK:
		if packet.IsPureTCPACK(p) {
			m.template = append([]byte(nil), p...)
			m.state = Spoofing
			m.round = 1
		}
		return [][]byte{p}, nil

	case Spoofing:
		return m.handleSpoofingWrite(p)

	default:
		return [][]byte{p}, nil
	}
}

func (m *Machine) handleSpoofingWrite(p []byte) ([][]byte, error) {
	if ackSeq, ok := packet.TCPAckSeq(p); ok && m.hasTrigger && seqGE(ackSeq, m.triggerSeq) {
		m.reset()
		return [][]byte{p}, nil
	}

	tsval, err := packet.TimestampVal(p)
	if err != nil {
		// p isn't spoofable-template compatible; still consumed by this
		// round (not forwarded), since a packet examined mid-spoof is never
		// forwarded unless it clears the trigger.
		tsval = 0
	}

	k := m.round
	n := m.pktCount
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		plus := uint16(k*n - n + i + 1)
		dup, buildErr := packet.BuildDupACK(m.template, plus, tsval)
		if buildErr != nil {
			continue
		}
		out = append(out, dup)
	}
	m.round++
	return out, nil
}

func (m *Machine) reset() {
	m.state = Idle
	m.hasTrigger = false
	m.triggerSeq = 0
	m.pktCount = 0
	m.round = 0
	m.template = nil
}

// seqGE reports whether a is at or after b in the 32-bit TCP sequence
// space, handling wraparound the way RFC 793 section 3.3 describes.
func seqGE(a, b uint32) bool {
	return int32(a-b) >= 0
}
