// Package trace implements the "-d" debug tracing collaborator: a
// rate-limited mirror of both directions' packets to a pcap file, plus
// structured debug-level log lines. It is deliberately decoupled from the
// event loop's hot path. A nil *Tracer is valid and every method on it is a
// no-op, so cmd/acktun can pass one unconditionally and callers never branch
// on whether tracing is enabled.
package trace

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/acktun/acktun/internal/pcap"
)

// Direction labels which fd a traced packet came from, for the log line.
type Direction string

const (
	TapToSock Direction = "tap->sock"
	SockToTap Direction = "sock->tap"
)

// defaultRate caps tracing overhead at 200 packets/s with a small burst
// allowance: enough to see a representative sample of a line-rate flood
// without the trace path itself becoming the bottleneck the ACK-spoof
// machinery exists to avoid.
const defaultRate = rate.Limit(200)
const defaultBurst = 20

// Tracer mirrors packets to a pcap stream and to a *slog.Logger, both
// throttled by a shared token bucket. The zero value is not usable;
// construct with New. A nil *Tracer is valid and silently discards.
type Tracer struct {
	log     *slog.Logger
	pcap    *pcap.Writer
	limiter *rate.Limiter
}

// New wraps out as a pcap stream (writing the global header immediately,
// DLT_RAW since tun-mode captures have no link-layer header) and returns a
// Tracer that mirrors at most defaultRate packets/s to it, logging every
// traced packet at debug level via log. Packets the rate limiter turns
// away are neither written nor logged.
func New(out io.Writer, log *slog.Logger) (*Tracer, error) {
	w := pcap.NewWriter(out)
	if err := w.WriteFileHeader(65535, pcap.LinkTypeRaw); err != nil {
		return nil, fmt.Errorf("trace: write pcap header: %w", err)
	}
	return &Tracer{
		log:     log,
		pcap:    w,
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
	}, nil
}

// Packet mirrors one packet if the Tracer is non-nil and the token bucket
// has capacity; otherwise it is a silent, cheap no-op. Errors writing the
// pcap record are logged, not returned: tracing must never be able to
// bring down the event loop.
func (t *Tracer) Packet(dir Direction, data []byte, when time.Time) {
	if t == nil {
		return
	}
	if !t.limiter.Allow() {
		return
	}
	t.log.Debug("trace: packet", "dir", string(dir), "bytes", len(data))
	ci := pcap.CaptureInfo{Timestamp: when, CaptureLength: len(data), Length: len(data)}
	if err := t.pcap.WritePacket(ci, data); err != nil {
		t.log.Debug("trace: pcap write failed", "err", err)
	}
}

// Dropf logs a debug-level diagnostic for a non-fatal event (queue
// overflow, suppressed retransmission), unthrottled: these are already
// implicitly rate-limited by how often they can occur relative to line
// rate.
func (t *Tracer) Dropf(format string, args ...any) {
	if t == nil {
		return
	}
	t.log.Debug(fmt.Sprintf(format, args...))
}
