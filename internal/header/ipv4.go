package header

import (
	"fmt"
	"net/netip"

	"firestige.xyz/nmbridge/internal/core"
)

// IPv4MinLen is the fixed header length the view assumes (no options).
const IPv4MinLen = 20

// IPv4 is a view over a minimal IPv4 header.
//
// Addresses sit at fixed offsets whatever the IHL says, so options never move
// them. Checksum, total length and version are not validated.
type IPv4 []byte

// ParseIPv4 returns a view over b, which must hold at least IPv4MinLen bytes.
func ParseIPv4(b []byte) (IPv4, error) {
	if len(b) < IPv4MinLen {
		return nil, fmt.Errorf("ipv4 header needs %d bytes, have %d: %w", IPv4MinLen, len(b), core.ErrPacketTooShort)
	}
	return IPv4(b[:IPv4MinLen]), nil
}

// Version returns the version nibble as found on the wire.
func (ip IPv4) Version() uint8 {
	return ip[0] >> 4
}

// HeaderLen returns IHL*4. It may be smaller than IPv4MinLen on garbage input.
func (ip IPv4) HeaderLen() int {
	return int(ip[0]&0x0F) * 4
}

// Source returns the source address.
func (ip IPv4) Source() netip.Addr {
	return netip.AddrFrom4([4]byte(ip[12:16]))
}

// Destination returns the destination address.
func (ip IPv4) Destination() netip.Addr {
	return netip.AddrFrom4([4]byte(ip[16:20]))
}

func (ip IPv4) String() string {
	return fmt.Sprintf("%s -> %s", ip.Source(), ip.Destination())
}
