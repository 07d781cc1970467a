package ring

// Set is the sequence of rings of one endpoint side, in ring order.
type Set []Ring

// Len returns the number of rings.
func (s Set) Len() int {
	return len(s)
}

// Available returns the total number of slots in [Cur, Tail) across rings.
func (s Set) Available() int {
	n := 0
	for _, r := range s {
		n += int(Available(r))
	}
	return n
}

// Cursors returns one cursor per ring, in ring order.
func (s Set) Cursors() []*Cursor {
	cs := make([]*Cursor, len(s))
	for i, r := range s {
		cs[i] = NewCursor(r)
	}
	return cs
}

// Flatten returns a single stream over every available slot, ring after ring.
func (s Set) Flatten() *Stream {
	return &Stream{set: s}
}

// PublishHeads publishes the head of every ring, including rings the pass
// never touched.
func (s Set) PublishHeads() {
	for _, r := range s {
		r.PublishHead()
	}
}

// Stream yields the slots of a Set as one sequence. Each returned slot is
// committed on its ring.
type Stream struct {
	set Set
	i   int
	cur *Cursor
}

// Next returns the next available slot, or false once every ring is drained.
func (st *Stream) Next() (Slot, bool) {
	for {
		if st.cur == nil {
			if st.i >= len(st.set) {
				return nil, false
			}
			st.cur = NewCursor(st.set[st.i])
			st.i++
		}
		if s, ok := st.cur.Next(); ok {
			return s, true
		}
		st.cur = nil
	}
}

// Ring returns the ring the last slot came from, or nil before the first slot.
func (st *Stream) Ring() Ring {
	if st.cur == nil {
		return nil
	}
	return st.cur.Ring()
}
