package ring

// Cursor walks the available slots of one ring.
//
// Iteration is two-phase: Peek exposes the current slot without moving the
// ring, Commit moves past it. A slot that was peeked but must not count as
// processed is released with GiveBack, which leaves Cur untouched.
//
// A Cursor covers one pass. It stops at the Tail observed when it was created
// and cannot be restarted.
type Cursor struct {
	r    Ring
	pos  uint32
	left uint32
}

// NewCursor starts a cursor at r's current position.
func NewCursor(r Ring) *Cursor {
	return &Cursor{
		r:    r,
		pos:  r.Cur(),
		left: Available(r),
	}
}

// Ring returns the ring under the cursor.
func (c *Cursor) Ring() Ring {
	return c.r
}

// Peek returns the current slot without committing it.
func (c *Cursor) Peek() (Slot, bool) {
	if c.left == 0 {
		return nil, false
	}
	return c.r.Slot(c.pos), true
}

// Commit moves past the current slot and records the new position on the ring.
// It is a no-op when the cursor is done.
func (c *Cursor) Commit() {
	if c.left == 0 {
		return
	}
	c.pos = Next(c.r, c.pos)
	c.left--
	c.r.SetCur(c.pos)
}

// Next returns the current slot and commits it.
func (c *Cursor) Next() (Slot, bool) {
	s, ok := c.Peek()
	if ok {
		c.Commit()
	}
	return s, ok
}

// GiveBack releases a peeked slot. The ring position does not move, so the
// slot is not published with the next head and is seen again next pass.
func (c *Cursor) GiveBack() {}
