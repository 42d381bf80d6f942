package device

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// DialCarrier connects to a server peer as the client role ("-c <ip>").
func DialCarrier(ip string, port int) (FD, error) {
	addr, err := inet4(ip)
	if err != nil {
		return FD{}, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return FD{}, fmt.Errorf("device: socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrInet4{Addr: addr, Port: port}); err != nil {
		unix.Close(fd)
		return FD{}, fmt.Errorf("device: connect %s:%d: %w", ip, port, err)
	}
	return FD{fd: fd}, nil
}

// ListenAndAccept binds and listens as the server role ("-s") and blocks for
// exactly one peer connection. This tunnel has no reconnection logic, so one
// carrier per process lifetime is all it ever needs.
func ListenAndAccept(port int) (FD, error) {
	lfd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return FD{}, fmt.Errorf("device: socket: %w", err)
	}
	defer unix.Close(lfd)

	if err := unix.SetsockoptInt(lfd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return FD{}, fmt.Errorf("device: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(lfd, &unix.SockaddrInet4{Port: port}); err != nil {
		return FD{}, fmt.Errorf("device: bind :%d: %w", port, err)
	}
	if err := unix.Listen(lfd, 1); err != nil {
		return FD{}, fmt.Errorf("device: listen: %w", err)
	}

	cfd, _, err := unix.Accept(lfd)
	if err != nil {
		return FD{}, fmt.Errorf("device: accept: %w", err)
	}
	return FD{fd: cfd}, nil
}

func inet4(ip string) (addr [4]byte, err error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return addr, fmt.Errorf("device: invalid ip %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return addr, fmt.Errorf("device: not an ipv4 address: %q (IPv6 is not supported)", ip)
	}
	copy(addr[:], v4)
	return addr, nil
}
