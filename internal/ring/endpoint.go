package ring

// Endpoint is one packet-I/O port: a pollable handle plus its receive and
// transmit ring sets.
type Endpoint interface {
	Name() string
	// Fd is the descriptor to wait on for readiness.
	Fd() int
	RxRings() Set
	TxRings() Set
	Close() error
}
