// Package header implements read-only views over the leading bytes of a frame.
//
// Views never own or copy the frame. Every field is extracted from a fixed byte
// offset, so nothing depends on in-memory struct layout.
package header

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/nmbridge/internal/core"
)

const (
	// EthernetLen is the size of an untagged Ethernet II header.
	EthernetLen = 14

	macLen = 6
)

// EtherType identifies the protocol carried by an Ethernet frame, in host byte order.
type EtherType uint16

// EtherTypeIPv4 is the only EtherType the views classify.
const EtherTypeIPv4 EtherType = 0x0800

// String classifies the type as "IPv4" or "Unknown".
func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	default:
		return "Unknown"
	}
}

// MAC is a 6-byte hardware address.
type MAC [macLen]byte

// String renders the address as colon-separated lowercase hex octets.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Ethernet is a view over the first 14 bytes of a frame.
type Ethernet []byte

// ParseEthernet returns a view over b, which must hold at least EthernetLen bytes.
func ParseEthernet(b []byte) (Ethernet, error) {
	if len(b) < EthernetLen {
		return nil, fmt.Errorf("ethernet header needs %d bytes, have %d: %w", EthernetLen, len(b), core.ErrPacketTooShort)
	}
	return Ethernet(b[:EthernetLen]), nil
}

// Destination returns the destination hardware address.
func (e Ethernet) Destination() (m MAC) {
	copy(m[:], e[0:6])
	return m
}

// Source returns the source hardware address.
func (e Ethernet) Source() (m MAC) {
	copy(m[:], e[6:12])
	return m
}

// EtherType returns the type field converted from network byte order.
func (e Ethernet) EtherType() EtherType {
	return EtherType(binary.BigEndian.Uint16(e[12:14]))
}

func (e Ethernet) String() string {
	return fmt.Sprintf("Type %s. %s -> %s", e.EtherType(), e.Source(), e.Destination())
}
