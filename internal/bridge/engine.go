// Package bridge moves frames from the receive rings of one endpoint to the
// transmit rings of another.
package bridge

import (
	"fmt"

	"firestige.xyz/nmbridge/internal/core"
	"firestige.xyz/nmbridge/internal/header"
	"firestige.xyz/nmbridge/internal/ring"
)

// Engine runs transfer passes. It holds no state between passes and is not
// safe for concurrent use on the same rings.
type Engine struct {
	obs    Observer
	decode bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver installs obs. A nil obs keeps the NopObserver.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		if obs != nil {
			e.obs = obs
		}
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{obs: NopObserver{}}
	for _, opt := range opts {
		opt(e)
	}
	_, nop := e.obs.(NopObserver)
	e.decode = !nop
	return e
}

// Move copies frames from the src receive rings into the dst transmit rings.
//
// The source is drained as one stream across its rings; the sink is filled ring
// by ring. The pass stops as soon as either side runs out, then publishes the
// head of every ring on both sides, also when nothing moved. Unmoved source
// slots stay pending for the next pass.
//
// A source frame longer than the sink slot capacity aborts the pass with
// core.ErrSlotOverflow and stop reason Overflow. That frame is consumed
// without being copied.
func (e *Engine) Move(dir Direction, src, dst ring.Set) (Result, error) {
	e.obs.PassStart(dir)

	res, drained, err := e.transfer(dir, src, dst)

	switch {
	case err != nil:
		res.Stop = Overflow
	case drained || src.Available() == 0:
		if res.Slots == 0 {
			res.Stop = Idle
		} else {
			res.Stop = SourceDrained
		}
	default:
		res.Stop = SinkFull
	}

	e.publish(dir, SideSource, src)
	e.publish(dir, SideSink, dst)
	e.obs.PassEnd(dir, res)
	return res, err
}

func (e *Engine) transfer(dir Direction, src, dst ring.Set) (res Result, drained bool, err error) {
	rx := src.Flatten()
	for _, tx := range dst.Cursors() {
		r := tx.Ring()
		e.obs.RingStart(dir, r)
		for {
			d, ok := tx.Peek()
			if !ok {
				break
			}
			s, ok := rx.Next()
			if !ok {
				tx.GiveBack()
				e.obs.SourceDrained(dir)
				return res, true, nil
			}

			n := s.Len()
			if n > d.Cap() {
				tx.GiveBack()
				return res, false, fmt.Errorf("%s: %d byte frame from ring %d, ring %d slot of %d bytes: %w",
					dir, n, rx.Ring().Index(), r.Index(), d.Cap(), core.ErrSlotOverflow)
			}
			copy(d.Buf(), s.Payload())
			d.SetLen(n)
			tx.Commit()

			res.Slots++
			res.Bytes += n
			if e.decode {
				e.obs.Slot(dir, s, r, header.Decode(s.Payload()))
			}
		}
	}
	return res, false, nil
}

func (e *Engine) publish(dir Direction, side Side, set ring.Set) {
	set.PublishHeads()
	for _, r := range set {
		e.obs.HeadPublished(dir, side, r)
	}
}
