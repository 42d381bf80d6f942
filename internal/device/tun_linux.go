//go:build linux

// Package device implements tun/tap allocation and carrier socket setup.
// The event loop in internal/tunnel treats both as opaque file descriptors,
// but something has to produce them for the binary to run.
package device

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TUN driver ioctl constants. golang.org/x/sys/unix doesn't expose these:
// they're specific to the Linux tun/tap character device, not general
// socket flags, so they're named here directly.
const (
	iffTUN   = 0x0001
	iffTAP   = 0x0002
	iffNoPI  = 0x1000
	tunSetIFF = 0x400454ca
)

// ifReq mirrors struct ifreq's layout for the TUNSETIFF ioctl: a 16-byte
// interface name followed by a union whose first two bytes we use as the
// flags field.
type ifReq struct {
	name  [16]byte
	flags uint16
	_     [22]byte
}

// Mode selects the local interface type. ACK spoofing is only defined over
// tun (IPv4) traffic; Tap is accepted for plain forwarding but the
// congestion-signal machinery is meaningless against an Ethernet frame.
type Mode int

const (
	Tun Mode = iota
	Tap
)

// OpenTun allocates (or attaches to) the named tun/tap interface and
// returns a raw, blocking file descriptor ready for the scheduler.
func OpenTun(name string, mode Mode) (FD, error) {
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR, 0)
	if err != nil {
		return FD{}, fmt.Errorf("device: open /dev/net/tun: %w", err)
	}

	var req ifReq
	copy(req.name[:], name)
	req.flags = iffNoPI
	switch mode {
	case Tun:
		req.flags |= iffTUN
	case Tap:
		req.flags |= iffTAP
	}

	if _, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		uintptr(fd),
		uintptr(tunSetIFF),
		uintptr(unsafe.Pointer(&req)),
	); errno != 0 {
		unix.Close(fd)
		return FD{}, fmt.Errorf("device: TUNSETIFF %q: %w", name, errno)
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return FD{}, fmt.Errorf("device: set blocking mode: %w", err)
	}

	return FD{fd: fd}, nil
}
