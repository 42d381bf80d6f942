package packet

import "fmt"

// BuildDupACK fabricates a duplicate ACK from template, a pure TCP ACK
// carrying the canonical 12-byte timestamp option. The clone has the same
// total length as template; its IP id is bumped by plus (mod 2^16, so a
// burst of clones carries distinct, monotonically increasing IDs a receiver
// won't coalesce as retransmissions), its TS option's tsval is overwritten
// with tsval (tsecr is left untouched), and both the IP and TCP/pseudo-header
// checksums are recomputed. Every other byte (source/dest ports, sequence
// number, acknowledgement number, window, and any bytes after the fixed
// 12-byte TS option) is copied verbatim from template.
func BuildDupACK(template []byte, plus uint16, tsval uint32) ([]byte, error) {
	if !IsPureTCPACK(template) {
		return nil, fmt.Errorf("packet: build dupack: template is not a pure tcp ack")
	}
	ip, err := ParseIPv4(template)
	if err != nil {
		return nil, fmt.Errorf("packet: build dupack: %w", err)
	}
	tcp, err := ParseTCP(ip.Payload())
	if err != nil {
		return nil, fmt.Errorf("packet: build dupack: %w", err)
	}
	if tcp.DataOffset() != tsDataOffset*4 {
		return nil, fmt.Errorf("packet: build dupack: template lacks the fixed ts-option layout (doff=%d)", tcp.DataOffset())
	}
	if _, err := parseTSOption(tcp.Options()); err != nil {
		return nil, fmt.Errorf("packet: build dupack: %w", err)
	}

	clone := append([]byte(nil), template...)
	cip, _ := ParseIPv4(clone)
	cip.SetID(cip.ID() + plus)
	cip.RecomputeChecksum()

	ctcp, _ := ParseTCP(cip.Payload())
	setTSVal(ctcp.Options(), tsval)
	ctcp.SetChecksum(0)
	ctcp.SetChecksum(TCPChecksum(cip.Src(), cip.Dst(), ctcp.Segment()))

	return clone, nil
}
