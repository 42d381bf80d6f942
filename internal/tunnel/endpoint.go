// Package tunnel wires the packet, queue, scheduler, and congestion
// packages into a single-threaded event loop: read from and write to the
// tap and carrier fds, enqueue and dequeue, and invoke the congestion-signal
// machine at the transitions it cares about.
package tunnel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/acktun/acktun/internal/congestion"
	"github.com/acktun/acktun/internal/packet"
	"github.com/acktun/acktun/internal/queue"
	"github.com/acktun/acktun/internal/scheduler"
	"github.com/acktun/acktun/internal/trace"
	"github.com/acktun/acktun/internal/wire"
)

// FD is the minimal file-descriptor surface the event loop needs from the
// tap device and the carrier socket: a raw fd for the scheduler to poll,
// plus blocking Read/Write/Close. internal/device.FD satisfies this.
type FD interface {
	Fd() int
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
}

// Endpoint is one side of the tunnel: a tap/tun fd, a carrier socket fd,
// the two queues, the scheduler pacing both directions, and the
// congestion-signal machine guarding the reverse path.
type Endpoint struct {
	tap  FD
	sock FD

	qtap  *queue.Queue // tap-inbound, destined for sock (forward path)
	qsock *queue.Queue // sock-inbound, destined for tap (reverse path)

	sched     *scheduler.Scheduler
	fsm       *congestion.Machine
	highWater int

	log   *slog.Logger
	trace *trace.Tracer
}

// New builds an Endpoint. capacity is the per-queue capacity and interval is
// the pacing period shared by both directions; highWater is the Qtap
// fullness threshold that arms the congestion-signal machine. tr may be nil
// (see internal/trace's nil-is-valid contract).
func New(tap, sock FD, capacity int, highWater int, interval time.Duration, log *slog.Logger, tr *trace.Tracer) *Endpoint {
	return &Endpoint{
		tap:       tap,
		sock:      sock,
		qtap:      queue.New(capacity, "qtap"),
		qsock:     queue.New(capacity, "qsock"),
		sched:     scheduler.New(tap.Fd(), sock.Fd(), interval),
		fsm:       congestion.New(),
		highWater: highWater,
		log:       log,
		trace:     tr,
	}
}

// Run drives the event loop until a fatal I/O error occurs (carrier EOF,
// tap or socket read/write failure). There is no reconnection and no
// cancellation; the loop runs forever otherwise.
func (e *Endpoint) Run() error {
	for {
		if err := e.iterate(); err != nil {
			return err
		}
	}
}

func (e *Endpoint) iterate() error {
	now := time.Now()
	ready, err := e.sched.Tick(now)
	if err != nil {
		return fmt.Errorf("tunnel: scheduler tick: %w", err)
	}

	if ready.Has(scheduler.TapReadable) {
		if err := e.readTap(); err != nil {
			return err
		}
	}
	if ready.Has(scheduler.SockReadable) {
		if err := e.readSock(); err != nil {
			return err
		}
	}
	if ready.Has(scheduler.SockOutOK) {
		if err := e.writeSock(); err != nil {
			return err
		}
	}
	if ready.Has(scheduler.TapOutOK) {
		if err := e.writeTap(); err != nil {
			return err
		}
	}
	// *_OVERRUN flags are diagnostic only: the scheduler already withheld
	// the deadline advance, so the write is retried on the next tick with
	// no action needed here.
	return nil
}

// readTap reads one frame from the tap device, runs it through the
// congestion machine's retransmission-suppression hook, and enqueues it
// into Qtap unless suppressed or the queue is full.
func (e *Endpoint) readTap() error {
	buf := make([]byte, packet.MaxLength)
	n, err := e.tap.Read(buf)
	if err != nil {
		return fmt.Errorf("tunnel: tap read: %w", err)
	}
	buf = buf[:n]

	if e.fsm.OnTapInbound(buf) {
		e.trace.Dropf("tap: suppressed retransmission of trigger segment")
		return nil
	}

	e.trace.Packet(trace.TapToSock, buf, time.Now())
	p := packet.New(buf)
	if err := e.qtap.Enqueue(p); err != nil {
		e.trace.Dropf("tap: qtap overflow, dropping packet")
		return nil
	}
	if seq, err := packet.TCPSeq(buf); err == nil {
		e.fsm.OnTapEnqueued(e.qtap.Fullness(), e.highWater, seq)
	}
	return nil
}

// readSock reads one length-prefixed frame from the carrier and enqueues
// it into Qsock unless the queue is full.
func (e *Endpoint) readSock() error {
	buf, err := wire.ReadFrame(e.sock)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("tunnel: carrier closed: %w", err)
		}
		return fmt.Errorf("tunnel: sock read: %w", err)
	}

	e.trace.Packet(trace.SockToTap, buf, time.Now())
	p := packet.New(buf)
	if err := e.qsock.Enqueue(p); err != nil {
		e.trace.Dropf("sock: qsock overflow, dropping packet")
		return nil
	}
	return nil
}

// writeSock dequeues Qtap's head packet and writes it, length-prefixed, to
// the carrier. An empty Qtap releases the tap pacing deadline so the
// scheduler can block indefinitely while the forward path is idle.
func (e *Endpoint) writeSock() error {
	p, ok := e.qtap.Dequeue()
	if !ok {
		e.sched.ReleaseTapDeadline()
		return nil
	}
	if err := wire.WriteFrame(e.sock, p.Data); err != nil {
		return fmt.Errorf("tunnel: sock write: %w", err)
	}
	return nil
}

// writeTap dequeues Qsock's head packet and drives it through the
// congestion-signal machine's reverse-path dispatch, writing whatever
// packets that dispatch decides belong on tap (ordinarily just the packet
// itself; a burst of fabricated dup-ACKs while spoofing; or nothing while
// a packet is consumed mid-spoof without being forwarded).
func (e *Endpoint) writeTap() error {
	p, ok := e.qsock.Dequeue()
	if !ok {
		e.sched.ReleaseSockDeadline()
		return nil
	}
	out, err := e.fsm.HandleReverseWrite(p.Data)
	if err != nil {
		return fmt.Errorf("tunnel: congestion dispatch: %w", err)
	}
	for _, frame := range out {
		if _, err := e.tap.Write(frame); err != nil {
			return fmt.Errorf("tunnel: tap write: %w", err)
		}
		e.trace.Packet(trace.SockToTap, frame, time.Now())
	}
	return nil
}
