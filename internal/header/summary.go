package header

import "fmt"

// Summary is the diagnostic interpretation of one frame. It never gates a copy.
type Summary struct {
	// Len is the total frame length.
	Len int
	// Ethernet is nil when the frame is shorter than EthernetLen; the frame is
	// then opaque.
	Ethernet Ethernet
	// IPv4 is set only for EtherType 0x0800 frames carrying at least
	// IPv4MinLen network bytes.
	IPv4 IPv4
	// Payload is whatever follows the parsed headers.
	Payload []byte
}

// Opaque reports whether no header could be interpreted.
func (s Summary) Opaque() bool {
	return s.Ethernet == nil
}

// Decode interprets the leading headers of frame. It does not fail: short input
// produces an opaque summary.
func Decode(frame []byte) (s Summary) {
	s.Len = len(frame)
	eth, err := ParseEthernet(frame)
	if err != nil {
		s.Payload = frame
		return s
	}
	s.Ethernet = eth
	s.Payload = frame[EthernetLen:]

	if eth.EtherType() != EtherTypeIPv4 {
		return s
	}
	ip, err := ParseIPv4(s.Payload)
	if err != nil {
		return s
	}
	s.IPv4 = ip

	hdrLen := ip.HeaderLen()
	if hdrLen < IPv4MinLen || hdrLen > len(s.Payload) {
		hdrLen = IPv4MinLen
	}
	s.Payload = s.Payload[hdrLen:]
	return s
}

// String renders the link layer, then the IPv4 addresses when present.
func (s Summary) String() string {
	if s.Opaque() {
		return fmt.Sprintf("opaque, %d bytes", s.Len)
	}
	if s.IPv4 == nil {
		return s.Ethernet.String()
	}
	return s.Ethernet.String() + "; " + s.IPv4.String()
}
