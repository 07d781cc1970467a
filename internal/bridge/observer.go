package bridge

import (
	"firestige.xyz/nmbridge/internal/header"
	"firestige.xyz/nmbridge/internal/ring"
)

// Observer receives the transitions of a pass. Implementations must not retain
// rings or slots after the call returns, and must not modify them.
type Observer interface {
	PassStart(dir Direction)
	// RingStart fires before the first slot of each sink ring.
	RingStart(dir Direction, dst ring.Ring)
	// Slot fires for each moved frame, after the copy.
	Slot(dir Direction, src ring.Slot, dst ring.Ring, sum header.Summary)
	// SourceDrained fires when the pass stops on an exhausted source.
	SourceDrained(dir Direction)
	HeadPublished(dir Direction, side Side, r ring.Ring)
	PassEnd(dir Direction, res Result)
}

// NopObserver ignores everything. An engine with a NopObserver skips header
// decoding entirely.
type NopObserver struct{}

func (NopObserver) PassStart(Direction)                                  {}
func (NopObserver) RingStart(Direction, ring.Ring)                       {}
func (NopObserver) Slot(Direction, ring.Slot, ring.Ring, header.Summary) {}
func (NopObserver) SourceDrained(Direction)                              {}
func (NopObserver) HeadPublished(Direction, Side, ring.Ring)             {}
func (NopObserver) PassEnd(Direction, Result)                            {}

type multiObserver []Observer

// MultiObserver fans every event out to obs in order.
func MultiObserver(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o == nil {
			continue
		}
		if _, nop := o.(NopObserver); nop {
			continue
		}
		m = append(m, o)
	}
	switch len(m) {
	case 0:
		return NopObserver{}
	case 1:
		return m[0]
	}
	return m
}

func (m multiObserver) PassStart(dir Direction) {
	for _, o := range m {
		o.PassStart(dir)
	}
}

func (m multiObserver) RingStart(dir Direction, dst ring.Ring) {
	for _, o := range m {
		o.RingStart(dir, dst)
	}
}

func (m multiObserver) Slot(dir Direction, src ring.Slot, dst ring.Ring, sum header.Summary) {
	for _, o := range m {
		o.Slot(dir, src, dst, sum)
	}
}

func (m multiObserver) SourceDrained(dir Direction) {
	for _, o := range m {
		o.SourceDrained(dir)
	}
}

func (m multiObserver) HeadPublished(dir Direction, side Side, r ring.Ring) {
	for _, o := range m {
		o.HeadPublished(dir, side, r)
	}
}

func (m multiObserver) PassEnd(dir Direction, res Result) {
	for _, o := range m {
		o.PassEnd(dir, res)
	}
}
