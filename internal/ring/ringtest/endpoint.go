package ringtest

import (
	"firestige.xyz/nmbridge/internal/ring"
)

// Endpoint is an in-memory ring.Endpoint.
type Endpoint struct {
	EndpointName string
	FD           int
	Rx           []*Ring
	Tx           []*Ring
	Closed       int
	CloseErr     error
}

var _ ring.Endpoint = (*Endpoint)(nil)

// NewEndpoint builds an endpoint with rings of identical geometry. Transmit
// rings start with free-1 of numSlots available.
func NewEndpoint(name string, fd, rings, numSlots, bufSize int) *Endpoint {
	e := &Endpoint{EndpointName: name, FD: fd}
	for i := 0; i < rings; i++ {
		e.Rx = append(e.Rx, NewRxRing(i, numSlots, bufSize))
		e.Tx = append(e.Tx, NewTxRing(i, numSlots-1, bufSize))
	}
	return e
}

func (e *Endpoint) Name() string { return e.EndpointName }
func (e *Endpoint) Fd() int      { return e.FD }

func (e *Endpoint) RxRings() ring.Set { return toSet(e.Rx) }
func (e *Endpoint) TxRings() ring.Set { return toSet(e.Tx) }

func (e *Endpoint) Close() error {
	e.Closed++
	return e.CloseErr
}

// Transmit drains every transmit ring in ring order.
func (e *Endpoint) Transmit() [][]byte {
	var out [][]byte
	for _, r := range e.Tx {
		out = append(out, r.Transmit()...)
	}
	return out
}

// Set wraps rings as a ring.Set.
func Set(rs ...*Ring) ring.Set {
	return toSet(rs)
}

func toSet(rs []*Ring) ring.Set {
	s := make(ring.Set, len(rs))
	for i, r := range rs {
		s[i] = r
	}
	return s
}
