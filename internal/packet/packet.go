package packet

import "time"

// Packet is an owned buffer holding one IP datagram (or, in tap mode, one
// Ethernet frame; ACK spoofing is only meaningful for tun-mode IPv4
// traffic).
type Packet struct {
	Data     []byte
	Arrived  time.Time
}

// New wraps a byte slice as a Packet, stamping its arrival time. The slice
// is taken by reference; callers must not reuse it afterwards.
func New(data []byte) *Packet {
	return &Packet{Data: data, Arrived: time.Now()}
}

// Len returns the number of bytes currently held.
func (p *Packet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}
