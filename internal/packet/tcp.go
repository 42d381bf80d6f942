package packet

import (
	"encoding/binary"
	"fmt"
)

// TCP control bits, laid out the way the wire encodes them in the low byte
// of the flags field (CWR/ECE are not inspected by this package).
const (
	FlagFIN uint8 = 0x01
	FlagSYN uint8 = 0x02
	FlagRST uint8 = 0x04
	FlagPSH uint8 = 0x08
	FlagACK uint8 = 0x10
	FlagURG uint8 = 0x20
)

const tcpMinHeaderLen = 20

// TCP is a bounds-checked view over a TCP segment, including options.
type TCP struct {
	buf  []byte // segment, header through payload
	doff int    // data offset in bytes
}

// ParseTCP validates a minimal TCP header at the start of buf.
func ParseTCP(buf []byte) (TCP, error) {
	if len(buf) < tcpMinHeaderLen {
		return TCP{}, fmt.Errorf("packet: tcp header too short: %d bytes", len(buf))
	}
	doff := int(buf[12]>>4) * 4
	if doff < tcpMinHeaderLen {
		return TCP{}, fmt.Errorf("packet: tcp data offset too small: %d bytes", doff)
	}
	if len(buf) < doff {
		return TCP{}, fmt.Errorf("packet: buffer shorter than data offset: %d < %d", len(buf), doff)
	}
	return TCP{buf: buf, doff: doff}, nil
}

func (t TCP) SrcPort() uint16 { return binary.BigEndian.Uint16(t.buf[0:2]) }
func (t TCP) DstPort() uint16 { return binary.BigEndian.Uint16(t.buf[2:4]) }
func (t TCP) Seq() uint32     { return binary.BigEndian.Uint32(t.buf[4:8]) }
func (t TCP) Ack() uint32     { return binary.BigEndian.Uint32(t.buf[8:12]) }
func (t TCP) DataOffset() int { return t.doff }
func (t TCP) Flags() uint8    { return t.buf[13] }
func (t TCP) Window() uint16  { return binary.BigEndian.Uint16(t.buf[14:16]) }
func (t TCP) Checksum() uint16 {
	return binary.BigEndian.Uint16(t.buf[16:18])
}

func (t TCP) SetChecksum(c uint16) { binary.BigEndian.PutUint16(t.buf[16:18], c) }

// HasFlag reports whether every bit in mask is set.
func (t TCP) HasFlag(mask uint8) bool { return t.Flags()&mask == mask }

// HasAnyFlag reports whether any bit in mask is set.
func (t TCP) HasAnyFlag(mask uint8) bool { return t.Flags()&mask != 0 }

// AckSeq returns the acknowledgement number, but only when ACK is set; the
// field is meaningless otherwise.
func (t TCP) AckSeq() (seq uint32, ok bool) {
	if !t.HasFlag(FlagACK) {
		return 0, false
	}
	return t.Ack(), true
}

// Header returns the fixed 20-byte TCP header (no options).
func (t TCP) Header() []byte { return t.buf[:tcpMinHeaderLen] }

// Options returns the bytes between the fixed header and the data offset.
func (t TCP) Options() []byte { return t.buf[tcpMinHeaderLen:t.doff] }

// Segment returns the header (with options) through the end of buf: this is
// everything the pseudo-header checksum covers.
func (t TCP) Segment() []byte { return t.buf }

// Payload returns the bytes after the TCP header and options.
func (t TCP) Payload() []byte { return t.buf[t.doff:] }
