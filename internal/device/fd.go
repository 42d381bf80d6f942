package device

import "golang.org/x/sys/unix"

// FD wraps a raw, blocking file descriptor so the scheduler can poll it and
// the event loop can read/write it directly, without going through Go's
// netpoller-integrated os.File/net.Conn wrappers. The scheduler's own
// poll-based readiness model (internal/scheduler) replaces that.
type FD struct {
	fd int
}

// NewFD wraps an already-open file descriptor.
func NewFD(fd int) FD { return FD{fd: fd} }

// Fd returns the underlying file descriptor.
func (f FD) Fd() int { return f.fd }

// Read reads into buf via the raw syscall.
func (f FD) Read(buf []byte) (int, error) { return unix.Read(f.fd, buf) }

// Write writes buf via the raw syscall.
func (f FD) Write(buf []byte) (int, error) { return unix.Write(f.fd, buf) }

// Close closes the underlying descriptor.
func (f FD) Close() error { return unix.Close(f.fd) }
