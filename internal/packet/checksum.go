package packet

import (
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// InternetChecksum is the RFC 1071 one's-complement checksum used for both
// the IPv4 header and (combined with a pseudo-header) TCP/UDP segments.
// It defers to gvisor's header package rather than hand-rolling the
// fold-and-complement loop.
func InternetChecksum(b []byte) uint16 {
	return ^header.Checksum(b, 0)
}

// tcpPseudoHeaderChecksum computes the IPv4 pseudo-header partial sum that
// TCPChecksum combines with the segment checksum.
func tcpPseudoHeaderChecksum(src, dst [4]byte, segmentLen int) uint16 {
	return header.PseudoHeaderChecksum(
		header.TCPProtocolNumber,
		tcpip.AddrFrom4(src),
		tcpip.AddrFrom4(dst),
		uint16(segmentLen),
	)
}

// TCPChecksum computes the full checksum for a TCP segment (header, options,
// and payload) given the IPv4 source/destination addresses it will ride in.
// The segment's own checksum field must be zeroed by the caller first.
func TCPChecksum(src, dst [4]byte, segment []byte) uint16 {
	ph := tcpPseudoHeaderChecksum(src, dst, len(segment))
	return ^header.Checksum(segment, ph)
}
