package wire

import (
	"bytes"
	"io"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello tunnel")
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ReadFrame() = %q, want %q", got, payload)
	}
}

func TestReadFrameMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	frames := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for _, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame() = %q, want %q", got, want)
		}
	}
}

func TestReadFrameCleanEOFBetweenFrames(t *testing.T) {
	var buf bytes.Buffer
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame() on empty reader = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("abcdef")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buf.Bytes()[:4] // length prefix says 6 bytes, only 2 present
	if _, err := ReadFrame(bytes.NewReader(truncated)); err == nil {
		t.Errorf("ReadFrame() on truncated frame = nil error, want an error")
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, 1501)
	if err := WriteFrame(&buf, oversized); err == nil {
		t.Errorf("WriteFrame() with oversized payload = nil error, want an error")
	}
}
