// Package scheduler implements the paced I/O scheduler at the heart of the
// tunnel event loop: given the tap and carrier-socket file descriptors, it
// decides on each tick when to read, when to write, and when an output
// deadline has been missed, enforcing at least T microseconds between
// successive writes on each side.
package scheduler

import (
	"time"

	"golang.org/x/sys/unix"
)

// Ready is the bitset of actions a Tick call reports as due.
type Ready uint8

const (
	TapReadable  Ready = 1 << iota // tap has a packet to read into Qtap
	SockReadable                   // sock has a frame to read into Qsock
	SockOutOK                      // write Qtap's head packet to sock now
	TapOutOK                       // write Qsock's head packet to tap now
	SockOutOverrun
	TapOutOverrun
)

func (r Ready) Has(f Ready) bool { return r&f != 0 }

// unset is the sentinel deadline value meaning "queue idle, no deadline
// active".
var unset = time.Time{}

// Scheduler holds the two pacing deadlines and the fixed inter-write
// interval T. It is not safe for concurrent use; the event loop driving it
// is single-threaded by design (see the concurrency model).
type Scheduler struct {
	interval time.Duration

	tapNextOut  time.Time // earliest instant Qtap may be written to sock
	sockNextOut time.Time // earliest instant Qsock may be written to tap

	tapFd  int
	sockFd int
}

// New builds a scheduler pacing both directions at interval, watching tapFd
// and sockFd.
func New(tapFd, sockFd int, interval time.Duration) *Scheduler {
	return &Scheduler{interval: interval, tapFd: tapFd, sockFd: sockFd}
}

// ArmTapDeadline sets tap_next_out to now+T if it isn't already armed. Tick
// calls this the moment the tap fd becomes readable (the first packet's
// pacing deadline is set at arrival, not at enqueue). Pacing after a
// successful tap-to-sock write signal is done by Tick itself, which moves
// the deadline to now+T directly.
func (s *Scheduler) ArmTapDeadline(now time.Time) {
	if s.tapNextOut.IsZero() {
		s.tapNextOut = now.Add(s.interval)
	}
}

// ArmSockDeadline is the reverse-direction counterpart of ArmTapDeadline.
func (s *Scheduler) ArmSockDeadline(now time.Time) {
	if s.sockNextOut.IsZero() {
		s.sockNextOut = now.Add(s.interval)
	}
}

// ReleaseTapDeadline returns tap_next_out to the sentinel. The event loop
// calls this when Qtap drains to empty so the scheduler can block
// indefinitely while both queues are idle.
func (s *Scheduler) ReleaseTapDeadline() { s.tapNextOut = unset }

// ReleaseSockDeadline is the reverse-direction counterpart.
func (s *Scheduler) ReleaseSockDeadline() { s.sockNextOut = unset }

func remaining(deadline, now time.Time) (d time.Duration, active bool) {
	if deadline.IsZero() {
		return 0, false
	}
	remain := deadline.Sub(now)
	if remain < 0 {
		remain = 0
	}
	return remain, true
}

// side names which deadline owns the shorter (or sole) wait, for the
// writability probe in step 5.
type side int

const (
	sideNone side = iota
	sideTap  // tap_next_out is the (shorter) active deadline
	sideSock // sock_next_out is the (shorter) active deadline
)

// Tick blocks until one of the fds becomes readable or a pacing deadline
// fires, then reports which actions are due. now is supplied by the caller
// so tests can control it; production callers pass time.Now().
func (s *Scheduler) Tick(now time.Time) (Ready, error) {
	tapRemain, tapActive := remaining(s.tapNextOut, now)
	sockRemain, sockActive := remaining(s.sockNextOut, now)

	// useNullTimeout defaults to true (wait indefinitely) and is only
	// cleared once a deadline is known to be active. Initialising it
	// unconditionally up front avoids leaving it unset on some branches.
	useNullTimeout := true
	var timeout time.Duration
	which := sideNone

	switch {
	case tapActive && sockActive:
		useNullTimeout = false
		if tapRemain <= sockRemain {
			timeout, which = tapRemain, sideTap
		} else {
			timeout, which = sockRemain, sideSock
		}
	case tapActive:
		useNullTimeout = false
		timeout, which = tapRemain, sideTap
	case sockActive:
		useNullTimeout = false
		timeout, which = sockRemain, sideSock
	}

	pollTimeout := -1
	if !useNullTimeout {
		pollTimeout = int(timeout / time.Millisecond)
	}

	fds := []unix.PollFd{
		{Fd: int32(s.tapFd), Events: unix.POLLIN},
		{Fd: int32(s.sockFd), Events: unix.POLLIN},
	}
	n, err := unix.Poll(fds, pollTimeout)
	if err != nil && err != unix.EINTR {
		return 0, err
	}

	var ready Ready
	if n > 0 {
		if fds[0].Revents&unix.POLLIN != 0 {
			ready |= TapReadable
			s.ArmTapDeadline(now)
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			ready |= SockReadable
			s.ArmSockDeadline(now)
		}
		return ready, nil
	}

	// n == 0: the poll returned because a deadline fired (or, conceivably,
	// because it was told to wait indefinitely and got EINTR with nothing
	// ready; in that case which is sideNone and there's nothing to probe).
	if which == sideNone {
		return ready, nil
	}

	// tap_next_out firing means Qtap's head packet is due to be written to
	// sock, so it's sock's writability we probe (and vice versa).
	probeFd := s.sockFd
	if which == sideSock {
		probeFd = s.tapFd
	}
	probe := []unix.PollFd{{Fd: int32(probeFd), Events: unix.POLLOUT}}
	if _, err := unix.Poll(probe, 0); err != nil && err != unix.EINTR {
		return 0, err
	}

	writable := probe[0].Revents&unix.POLLOUT != 0
	switch which {
	case sideTap:
		if writable {
			ready |= SockOutOK
			s.tapNextOut = now.Add(s.interval) // pace the next tap→sock write
		} else {
			ready |= SockOutOverrun
		}
	case sideSock:
		if writable {
			ready |= TapOutOK
			s.sockNextOut = now.Add(s.interval) // pace the next sock→tap write
		} else {
			ready |= TapOutOverrun
		}
	}
	return ready, nil
}
