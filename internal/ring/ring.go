// Package ring defines the slot/ring contract shared with the packet-I/O
// substrate, and the cursors the bridge engine walks rings with.
//
// Rings and slots are borrowed views over substrate-owned memory. They are only
// valid for the duration of one pass and must not be retained.
package ring

// Slot is one fixed-capacity buffer plus a declared payload length.
type Slot interface {
	// Len returns the payload length.
	Len() int
	// SetLen declares how many bytes of Buf hold the payload.
	SetLen(n int)
	// Cap returns the buffer capacity.
	Cap() int
	// Payload returns the first Len bytes of the buffer.
	Payload() []byte
	// Buf returns the whole buffer, Cap bytes long.
	Buf() []byte
}

// Ring is a circular sequence of slots shared with the substrate.
//
// Slots in [Cur, Tail) belong to the caller: received frames on a receive
// ring, free buffers on a transmit ring. Indexes wrap at NumSlots.
type Ring interface {
	// Index is the ring number within its endpoint.
	Index() int
	NumSlots() uint32
	Cur() uint32
	Tail() uint32
	// Slot returns the slot at index i, 0 <= i < NumSlots.
	Slot(i uint32) Slot
	// SetCur moves the caller's position.
	SetCur(i uint32)
	// PublishHead hands every slot before Cur back to the substrate.
	PublishHead()
}

// Next returns the index following i on r.
func Next(r Ring, i uint32) uint32 {
	i++
	if i == r.NumSlots() {
		return 0
	}
	return i
}

// Available returns the number of slots in [Cur, Tail).
func Available(r Ring) uint32 {
	cur, tail := r.Cur(), r.Tail()
	if tail >= cur {
		return tail - cur
	}
	return tail + r.NumSlots() - cur
}
