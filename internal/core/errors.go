// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared by the bridge packages. Wrap with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// Header decoding errors
	ErrPacketTooShort = errors.New("nmbridge: packet too short")

	// Transfer errors
	ErrSlotOverflow = errors.New("nmbridge: source length exceeds destination slot capacity")

	// Endpoint errors
	ErrEndpointOpen   = errors.New("nmbridge: cannot open endpoint")
	ErrEndpointClosed = errors.New("nmbridge: endpoint closed")
	ErrUnsupported    = errors.New("nmbridge: not supported on this platform")

	// Readiness wait errors
	ErrPollFailed = errors.New("nmbridge: readiness wait failed")

	// Configuration errors
	ErrConfigInvalid = errors.New("nmbridge: invalid configuration")
)
