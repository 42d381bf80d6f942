package packet

import (
	"encoding/binary"
	"fmt"
)

// The TCP timestamp option (RFC 7323) as this package expects to find it:
// two NOP pad bytes followed by the 10-byte Timestamp option, placed
// immediately after the fixed 20-byte TCP header, nothing else. That is a
// deliberately narrow contract; see the package doc and TimestampVal.
const (
	tsOptionLen    = 12 // 2 pad bytes + kind/len/tsval/tsecr
	tsOptionKind   = 8
	tsOptionOptLen = 10
	tsDataOffset   = (tcpMinHeaderLen + tsOptionLen) / 4 // = 8 32-bit words
)

// tsLayout is the canonical 12-byte option block this package reads and
// writes: NOP, NOP, kind=8, len=10, tsval, tsecr.
type tsLayout struct {
	tsval uint32
	tsecr uint32
}

// parseTSOption validates the fixed 12-byte NOP-NOP-Timestamp layout at the
// front of a TCP segment's options and returns its fields. It returns an
// error for any other options layout. Callers generalizing beyond this
// narrow contract should scan TLVs instead (see design notes).
func parseTSOption(options []byte) (tsLayout, error) {
	if len(options) < tsOptionLen {
		return tsLayout{}, fmt.Errorf("packet: options too short for fixed ts layout: %d bytes", len(options))
	}
	if options[0] != 1 || options[1] != 1 {
		return tsLayout{}, fmt.Errorf("packet: expected two NOP pad bytes, got 0x%02x 0x%02x", options[0], options[1])
	}
	if options[2] != tsOptionKind || options[3] != tsOptionOptLen {
		return tsLayout{}, fmt.Errorf("packet: expected timestamp option kind/len at offset 2, got kind=%d len=%d", options[2], options[3])
	}
	return tsLayout{
		tsval: binary.BigEndian.Uint32(options[4:8]),
		tsecr: binary.BigEndian.Uint32(options[8:12]),
	}, nil
}

// TimestampVal reads the sender timestamp (tsval) from buf's TCP timestamp
// option under the fixed NOP-NOP-Timestamp layout described above. buf is an
// IPv4 datagram.
//
// This is the narrow-contract reading named in the component design: it does
// not scan TCP options generically. Traffic that doesn't lay out its
// timestamp option this way (no timestamp option at all, options in a
// different order, window-scale or SACK-permitted options first) is
// rejected with an error rather than misread.
func TimestampVal(buf []byte) (uint32, error) {
	ip, err := ParseIPv4(buf)
	if err != nil || !ip.IsTCP() {
		return 0, fmt.Errorf("packet: not a tcp/ipv4 datagram")
	}
	tcp, err := ParseTCP(ip.Payload())
	if err != nil {
		return 0, err
	}
	ts, err := parseTSOption(tcp.Options())
	if err != nil {
		return 0, err
	}
	return ts.tsval, nil
}

// setTSVal overwrites the tsval field of a 12-byte canonical TS option block
// in place, leaving tsecr untouched.
func setTSVal(options []byte, tsval uint32) {
	binary.BigEndian.PutUint32(options[4:8], tsval)
}
