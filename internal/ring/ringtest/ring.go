// Package ringtest provides an in-memory ring substrate for tests.
//
// It follows netmap ring semantics: slots in [cur, tail) belong to the user,
// publishing sets head = cur, and one slot always stays empty so that a full
// ring is distinguishable from an empty one.
package ringtest

import (
	"firestige.xyz/nmbridge/internal/ring"
)

// Slot is a heap-backed slot.
type Slot struct {
	buf []byte
	n   int
}

func (s *Slot) Len() int        { return s.n }
func (s *Slot) SetLen(n int)    { s.n = n }
func (s *Slot) Cap() int        { return len(s.buf) }
func (s *Slot) Payload() []byte { return s.buf[:s.n] }
func (s *Slot) Buf() []byte     { return s.buf }

// Fill copies b into the slot, truncated to Cap, and sets the length.
func (s *Slot) Fill(b []byte) { s.n = copy(s.buf, b) }

// Ring is an in-memory ring. The exported methods other than the ring.Ring
// contract play the substrate's side.
type Ring struct {
	idx   int
	slots []*Slot

	head, cur, tail uint32
	// reclaimed trails head on a transmit ring: slots in [reclaimed, head)
	// were produced but not yet transmitted.
	reclaimed uint32

	// Publishes counts PublishHead calls.
	Publishes int
	// SetCurs counts SetCur calls.
	SetCurs int
}

var _ ring.Ring = (*Ring)(nil)

func newRing(idx, numSlots, bufSize int) *Ring {
	r := &Ring{idx: idx, slots: make([]*Slot, numSlots)}
	for i := range r.slots {
		r.slots[i] = &Slot{buf: make([]byte, bufSize)}
	}
	return r
}

// NewRxRing returns an empty receive ring.
func NewRxRing(idx, numSlots, bufSize int) *Ring {
	return newRing(idx, numSlots, bufSize)
}

// NewTxRing returns a transmit ring with free slots available to the user.
// The ring holds free+1 slots.
func NewTxRing(idx, free, bufSize int) *Ring {
	r := newRing(idx, free+1, bufSize)
	r.tail = uint32(free)
	return r
}

func (r *Ring) Index() int              { return r.idx }
func (r *Ring) NumSlots() uint32        { return uint32(len(r.slots)) }
func (r *Ring) Cur() uint32             { return r.cur }
func (r *Ring) Tail() uint32            { return r.tail }
func (r *Ring) Slot(i uint32) ring.Slot { return r.slots[i] }
func (r *Ring) Head() uint32            { return r.head }

func (r *Ring) SetCur(i uint32) {
	r.cur = i
	r.SetCurs++
}

func (r *Ring) PublishHead() {
	r.head = r.cur
	r.Publishes++
}

// Raw returns the slot at i for inspection.
func (r *Ring) Raw(i uint32) *Slot {
	return r.slots[i]
}

func (r *Ring) prev(i uint32) uint32 {
	if i == 0 {
		return r.NumSlots() - 1
	}
	return i - 1
}

// Receive places frames at the tail of a receive ring and returns how many fit.
func (r *Ring) Receive(frames ...[]byte) int {
	n := 0
	for _, f := range frames {
		next := ring.Next(r, r.tail)
		if next == r.head {
			break
		}
		r.slots[r.tail].Fill(f)
		r.tail = next
		n++
	}
	return n
}

// Pending returns the frames received but not yet released by a head publish.
func (r *Ring) Pending() int {
	if r.tail >= r.head {
		return int(r.tail - r.head)
	}
	return int(r.tail + r.NumSlots() - r.head)
}

// Transmit drains what the user published on a transmit ring and frees those
// slots again. It returns copies of the transmitted frames.
func (r *Ring) Transmit() [][]byte {
	var out [][]byte
	for r.reclaimed != r.head {
		out = append(out, append([]byte(nil), r.slots[r.reclaimed].Payload()...))
		r.reclaimed = ring.Next(r, r.reclaimed)
	}
	r.tail = r.prev(r.head)
	return out
}
