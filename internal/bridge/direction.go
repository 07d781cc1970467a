package bridge

// Direction names the endpoints a pass moves frames between.
type Direction uint8

const (
	HostToWire Direction = iota
	WireToHost
)

// Directions lists both directions in the order a loop iteration runs them.
var Directions = [...]Direction{HostToWire, WireToHost}

func (d Direction) String() string {
	switch d {
	case HostToWire:
		return "host_to_wire"
	case WireToHost:
		return "wire_to_host"
	default:
		return "unknown"
	}
}

// Source returns the endpoint role frames are received from.
func (d Direction) Source() string {
	if d == HostToWire {
		return "host"
	}
	return "wire"
}

// Sink returns the endpoint role frames are transmitted on.
func (d Direction) Sink() string {
	if d == HostToWire {
		return "wire"
	}
	return "host"
}

// Side tells the source ring set from the sink ring set.
type Side uint8

const (
	SideSource Side = iota
	SideSink
)

func (s Side) String() string {
	if s == SideSource {
		return "rx"
	}
	return "tx"
}

// StopReason says why a pass ended.
type StopReason uint8

const (
	// Idle: nothing was moved and nothing is pending.
	Idle StopReason = iota
	// SourceDrained: every available source slot was moved.
	SourceDrained
	// SinkFull: the sink ran out of free slots while source slots remain pending.
	SinkFull
	// Overflow: a source frame did not fit a sink slot and the pass failed.
	Overflow
)

func (r StopReason) String() string {
	switch r {
	case Idle:
		return "idle"
	case SourceDrained:
		return "source_drained"
	case SinkFull:
		return "sink_full"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Result summarizes one pass.
type Result struct {
	Slots int
	Bytes int
	Stop  StopReason
}
