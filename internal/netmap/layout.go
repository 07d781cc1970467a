// Package netmap binds netmap ports: a /dev/netmap descriptor registered to an
// interface, plus the shared memory region holding its rings and buffers.
//
// The shared structures are read at fixed offsets of the netmap_if,
// netmap_ring and netmap_slot layouts. Fields the kernel updates concurrently
// (head, cur, tail) are accessed atomically; the rest are host-endian words
// that stay constant once registered.
package netmap

import (
	"encoding/binary"
	"fmt"
)

// netmap_if
const (
	ifNameOff        = 0
	ifNameSize       = 16
	ifTxRingsOff     = 24
	ifRxRingsOff     = 28
	ifHostTxRingsOff = 36
	ifHostRxRingsOff = 40
	ifRingOfsOff     = 56
)

// netmap_ring
const (
	ringBufOfsOff   = 0
	ringNumSlotsOff = 8
	ringBufSizeOff  = 12
	ringIDOff       = 16
	ringHeadOff     = 20
	ringCurOff      = 24
	ringTailOff     = 28
	ringSlotsOff    = 256
)

// netmap_slot
const (
	slotSize      = 16
	slotBufIdxOff = 0
	slotLenOff    = 4
	slotFlagsOff  = 6
)

var ne = binary.NativeEndian

// ifHeader is a netmap_if view.
type ifHeader []byte

func (h ifHeader) name() string {
	b := h[ifNameOff : ifNameOff+ifNameSize]
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (h ifHeader) txRings() uint32 { return ne.Uint32(h[ifTxRingsOff:]) }
func (h ifHeader) rxRings() uint32 { return ne.Uint32(h[ifRxRingsOff:]) }

// hostTxRings is 1 on kernels predating multiple host rings, which leave the
// field zero.
func (h ifHeader) hostTxRings() uint32 {
	if n := ne.Uint32(h[ifHostTxRingsOff:]); n != 0 {
		return n
	}
	return 1
}

func (h ifHeader) hostRxRings() uint32 {
	if n := ne.Uint32(h[ifHostRxRingsOff:]); n != 0 {
		return n
	}
	return 1
}

// ringOfs returns the offset of ring i relative to the netmap_if. Transmit
// rings, host ones included, come first, then receive rings.
func (h ifHeader) ringOfs(i uint32) int64 {
	return int64(ne.Uint64(h[ifRingOfsOff+8*int(i):]))
}

func (h ifHeader) numRingOfs() uint32 {
	return h.txRings() + h.hostTxRings() + h.rxRings() + h.hostRxRings()
}

// layout locates the rings of one registration inside a shared region.
type layout struct {
	mem []byte
	nif int
	hdr ifHeader
}

func parseLayout(mem []byte, offset uint32) (*layout, error) {
	nif := int(offset)
	if nif < 0 || nif+ifRingOfsOff > len(mem) {
		return nil, fmt.Errorf("interface header at %d beyond %d byte region", nif, len(mem))
	}
	l := &layout{mem: mem, nif: nif, hdr: ifHeader(mem[nif:])}
	if end := nif + ifRingOfsOff + 8*int(l.hdr.numRingOfs()); end > len(mem) {
		return nil, fmt.Errorf("ring offset table ends at %d beyond %d byte region", end, len(mem))
	}
	return l, nil
}

// txRange returns the netmap_if ring_ofs indexes of the transmit rings, either
// the hardware ones or the host ones.
func (l *layout) txRange(host bool) (first, n uint32) {
	if host {
		return l.hdr.txRings(), l.hdr.hostTxRings()
	}
	return 0, l.hdr.txRings()
}

func (l *layout) rxRange(host bool) (first, n uint32) {
	base := l.hdr.txRings() + l.hdr.hostTxRings()
	if host {
		return base + l.hdr.rxRings(), l.hdr.hostRxRings()
	}
	return base, l.hdr.rxRings()
}

func (l *layout) rings(first, n uint32) ([]*Ring, error) {
	rs := make([]*Ring, 0, n)
	for i := uint32(0); i < n; i++ {
		ofs := l.hdr.ringOfs(first + i)
		if ofs <= 0 {
			return nil, fmt.Errorf("ring %d not mapped", first+i)
		}
		r, err := newRing(l.mem, l.nif+int(ofs), int(i))
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", first+i, err)
		}
		rs = append(rs, r)
	}
	return rs, nil
}
