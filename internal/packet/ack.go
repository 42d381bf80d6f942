package packet

import "fmt"

// IsPureTCPACK reports whether buf, an IPv4 datagram, carries a TCP segment
// with ACK set, no other control flags, and zero payload bytes. Non-TCP and
// malformed input report false rather than erroring: a parse failure just
// means "not spoofable", never a fatal condition.
func IsPureTCPACK(buf []byte) bool {
	ip, err := ParseIPv4(buf)
	if err != nil || !ip.IsTCP() {
		return false
	}
	tcp, err := ParseTCP(ip.Payload())
	if err != nil {
		return false
	}
	if !tcp.HasFlag(FlagACK) {
		return false
	}
	if tcp.HasAnyFlag(FlagURG | FlagPSH | FlagRST | FlagSYN | FlagFIN) {
		return false
	}
	payloadLen := int(ip.TotalLen()) - ip.HeaderLen() - tcp.DataOffset()
	return payloadLen == 0
}

// TCPSeq returns the TCP sequence number of buf, or an error if buf is not a
// parsable IPv4+TCP datagram.
func TCPSeq(buf []byte) (uint32, error) {
	ip, err := ParseIPv4(buf)
	if err != nil || !ip.IsTCP() {
		return 0, fmt.Errorf("packet: not a tcp/ipv4 datagram")
	}
	tcp, err := ParseTCP(ip.Payload())
	if err != nil {
		return 0, err
	}
	return tcp.Seq(), nil
}

// TCPAckSeq returns the acknowledgement number of buf, but only when ACK is
// set; ok is false otherwise (including on parse failure).
func TCPAckSeq(buf []byte) (seq uint32, ok bool) {
	ip, err := ParseIPv4(buf)
	if err != nil || !ip.IsTCP() {
		return 0, false
	}
	tcp, err := ParseTCP(ip.Payload())
	if err != nil {
		return 0, false
	}
	return tcp.AckSeq()
}
