// Package packet implements zero-copy accessors over IPv4/TCP byte buffers
// and the dup-ACK fabrication primitive that the congestion-signal state
// machine builds on.
//
// All offsets are computed from the IPv4 IHL field rather than hard-coded,
// per the narrow contract documented on TimestampVal.
package packet

import (
	"encoding/binary"
	"fmt"
)

// MaxLength is the largest IP datagram this package (and the queues/
// scheduler built on it) will carry.
const MaxLength = 1500

const (
	ipv4MinHeaderLen = 20
	ipv4ProtoTCP     = 6
)

// IPv4 is a bounds-checked view over an IPv4 datagram. It does not copy the
// underlying bytes; callers that need to retain a view past the lifetime of
// the backing buffer must copy it themselves.
type IPv4 struct {
	buf []byte // whole datagram, header through payload
	ihl int     // header length in bytes
}

// ParseIPv4 validates that buf begins with a well-formed IPv4 header and
// returns a view over it. It does not validate the header checksum; callers
// that care must check it explicitly.
func ParseIPv4(buf []byte) (IPv4, error) {
	if len(buf) < ipv4MinHeaderLen {
		return IPv4{}, fmt.Errorf("packet: ipv4 header too short: %d bytes", len(buf))
	}
	version := buf[0] >> 4
	if version != 4 {
		return IPv4{}, fmt.Errorf("packet: unsupported ip version %d", version)
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl < ipv4MinHeaderLen {
		return IPv4{}, fmt.Errorf("packet: ihl too small: %d bytes", ihl)
	}
	if len(buf) < ihl {
		return IPv4{}, fmt.Errorf("packet: buffer shorter than ihl: %d < %d", len(buf), ihl)
	}
	return IPv4{buf: buf, ihl: ihl}, nil
}

// HeaderLen returns the IHL-derived header length in bytes, including options.
func (p IPv4) HeaderLen() int { return p.ihl }

// TotalLen is the ip.tot_len field, host byte order.
func (p IPv4) TotalLen() uint16 { return binary.BigEndian.Uint16(p.buf[2:4]) }

// ID is the ip.id field, host byte order.
func (p IPv4) ID() uint16 { return binary.BigEndian.Uint16(p.buf[4:6]) }

// SetID overwrites the ip.id field in place. The IP checksum is not
// recomputed; call RecomputeChecksum afterwards.
func (p IPv4) SetID(id uint16) { binary.BigEndian.PutUint16(p.buf[4:6], id) }

// Protocol is the ip.protocol field.
func (p IPv4) Protocol() uint8 { return p.buf[9] }

// Checksum is the current ip.check field, as stored on the wire.
func (p IPv4) Checksum() uint16 { return binary.BigEndian.Uint16(p.buf[10:12]) }

// SetChecksum overwrites the ip.check field.
func (p IPv4) SetChecksum(c uint16) { binary.BigEndian.PutUint16(p.buf[10:12], c) }

// Src returns the 4 source address bytes.
func (p IPv4) Src() [4]byte {
	var a [4]byte
	copy(a[:], p.buf[12:16])
	return a
}

// Dst returns the 4 destination address bytes.
func (p IPv4) Dst() [4]byte {
	var a [4]byte
	copy(a[:], p.buf[16:20])
	return a
}

// Header returns the raw header bytes (IHL-derived length, options included).
func (p IPv4) Header() []byte { return p.buf[:p.ihl] }

// Payload returns the bytes after the IP header (the TCP/UDP/etc segment).
func (p IPv4) Payload() []byte { return p.buf[p.ihl:] }

// IsTCP reports whether the protocol field names TCP.
func (p IPv4) IsTCP() bool { return p.Protocol() == ipv4ProtoTCP }

// RecomputeChecksum zeroes and recomputes the header checksum over the
// current header bytes (options included), then writes it back.
func (p IPv4) RecomputeChecksum() {
	p.SetChecksum(0)
	p.SetChecksum(InternetChecksum(p.Header()))
}
