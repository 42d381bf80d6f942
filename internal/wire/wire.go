// Package wire implements the carrier connection's framing: every datagram
// crossing the single peer-to-peer TCP connection is preceded by a 16-bit
// big-endian length prefix. There is no reliable framing beyond this prefix:
// no checksums, no resynchronisation if the stream desyncs.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/acktun/acktun/internal/packet"
)

const lengthPrefixSize = 2

// WriteFrame writes the 2-byte big-endian length prefix for data followed
// by data itself. data must be no longer than packet.MaxLength.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > packet.MaxLength {
		return fmt.Errorf("wire: frame too large: %d bytes", len(data))
	}
	var hdr [lengthPrefixSize]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wire: write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r into a freshly allocated
// buffer. It reads the length prefix and payload to completion (looping
// past short reads) and returns io.EOF unmodified when the carrier closes
// cleanly between frames. Any EOF mid-frame is reported as
// io.ErrUnexpectedEOF by the underlying io.ReadFull, which callers should
// treat as fatal like any other carrier I/O error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(hdr[:])
	if int(length) > packet.MaxLength {
		return nil, fmt.Errorf("wire: frame length %d exceeds maximum %d", length, packet.MaxLength)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			// The length prefix was already read, so this is mid-frame.
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}
	return buf, nil
}
