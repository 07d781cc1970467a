package netmap

import (
	"fmt"

	"firestige.xyz/nmbridge/internal/ring"
)

// Ring is a netmap_ring inside the shared region.
type Ring struct {
	mem     []byte
	base    int
	idx     int
	num     uint32
	bufSize int
	bufBase int
	slots   []Slot
}

var _ ring.Ring = (*Ring)(nil)

func newRing(mem []byte, base, idx int) (*Ring, error) {
	if base < 0 || base+ringSlotsOff > len(mem) {
		return nil, fmt.Errorf("header at %d beyond %d byte region", base, len(mem))
	}
	hdr := mem[base:]
	r := &Ring{
		mem:     mem,
		base:    base,
		idx:     idx,
		num:     ne.Uint32(hdr[ringNumSlotsOff:]),
		bufSize: int(ne.Uint32(hdr[ringBufSizeOff:])),
		bufBase: base + int(int64(ne.Uint64(hdr[ringBufOfsOff:]))),
	}
	if r.num == 0 {
		return nil, fmt.Errorf("no slots")
	}
	if end := base + ringSlotsOff + slotSize*int(r.num); end > len(mem) {
		return nil, fmt.Errorf("slot table ends at %d beyond %d byte region", end, len(mem))
	}
	if r.bufBase < 0 || r.bufBase > len(mem) {
		return nil, fmt.Errorf("buffer pool at %d beyond %d byte region", r.bufBase, len(mem))
	}

	r.slots = make([]Slot, r.num)
	for i := range r.slots {
		off := base + ringSlotsOff + slotSize*i
		r.slots[i] = Slot{r: r, hdr: mem[off : off+slotSize : off+slotSize]}
		if idx := r.slots[i].BufIndex(); !r.bufMapped(idx) {
			return nil, fmt.Errorf("slot %d buffer %d beyond %d byte region", i, idx, len(mem))
		}
	}
	return r, nil
}

// bufRange returns the bounds of buffer idx in the shared region.
func (r *Ring) bufRange(idx uint32) (off, end int) {
	off = r.bufBase + int(idx)*r.bufSize
	return off, off + r.bufSize
}

func (r *Ring) bufMapped(idx uint32) bool {
	_, end := r.bufRange(idx)
	return end <= len(r.mem)
}

func (r *Ring) Index() int       { return r.idx }
func (r *Ring) NumSlots() uint32 { return r.num }
func (r *Ring) BufSize() int     { return r.bufSize }

// ID is the kernel ring id.
func (r *Ring) ID() uint16 { return ne.Uint16(r.mem[r.base+ringIDOff:]) }

func (r *Ring) Head() uint32 { return load32(r.mem, r.base+ringHeadOff) }
func (r *Ring) Cur() uint32  { return load32(r.mem, r.base+ringCurOff) }
func (r *Ring) Tail() uint32 { return load32(r.mem, r.base+ringTailOff) }

func (r *Ring) SetCur(i uint32) { store32(r.mem, r.base+ringCurOff, i) }

func (r *Ring) PublishHead() {
	store32(r.mem, r.base+ringHeadOff, r.Cur())
}

func (r *Ring) Slot(i uint32) ring.Slot {
	return &r.slots[i]
}

// Slot is a netmap_slot plus the buffer it points at.
type Slot struct {
	r   *Ring
	hdr []byte
}

var _ ring.Slot = (*Slot)(nil)

func (s *Slot) Len() int      { return int(ne.Uint16(s.hdr[slotLenOff:])) }
func (s *Slot) SetLen(n int)  { ne.PutUint16(s.hdr[slotLenOff:], uint16(n)) }
func (s *Slot) Flags() uint16 { return ne.Uint16(s.hdr[slotFlagsOff:]) }

// Cap is the buffer size, or 0 if the buffer index points outside the region.
func (s *Slot) Cap() int { return len(s.Buf()) }

// BufIndex is the index of the slot's buffer in the shared buffer pool.
func (s *Slot) BufIndex() uint32 { return ne.Uint32(s.hdr[slotBufIdxOff:]) }

// Buf returns the slot's buffer. It is nil when the kernel handed out a buffer
// index outside the mapped region.
func (s *Slot) Buf() []byte {
	idx := s.BufIndex()
	if !s.r.bufMapped(idx) {
		return nil
	}
	off, end := s.r.bufRange(idx)
	return s.r.mem[off:end:end]
}

func (s *Slot) Payload() []byte {
	b := s.Buf()
	return b[:min(s.Len(), len(b))]
}
