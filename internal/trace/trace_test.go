package trace

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWritesPcapHeader(t *testing.T) {
	var buf bytes.Buffer
	if _, err := New(&buf, discardLogger()); err != nil {
		t.Fatalf("New: %v", err)
	}
	if buf.Len() != 24 {
		t.Errorf("after New(), buf.Len() = %d, want 24 (global pcap header)", buf.Len())
	}
}

func TestPacketAppendsRecord(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(&buf, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := buf.Len()
	tr.Packet(TapToSock, []byte("hello"), time.Unix(0, 0))
	if buf.Len() <= before {
		t.Errorf("Packet() did not append a record: before=%d after=%d", before, buf.Len())
	}
}

func TestNilTracerIsNoOp(t *testing.T) {
	var tr *Tracer
	tr.Packet(TapToSock, []byte("hello"), time.Now())
	tr.Dropf("queue overflow on %s", "tap")
}

func TestPacketRespectsRateLimit(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(&buf, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < defaultBurst; i++ {
		tr.Packet(TapToSock, []byte("x"), time.Now())
	}
	afterBurst := buf.Len()
	tr.Packet(TapToSock, []byte("x"), time.Now())
	if buf.Len() != afterBurst {
		t.Errorf("Packet() beyond the burst allowance wrote a record immediately; want it throttled")
	}
}
