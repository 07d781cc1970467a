//go:build unix

// Package poller waits for readiness on a fixed set of descriptors.
package poller

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"firestige.xyz/nmbridge/internal/core"
)

// Readiness is the outcome of one wait for one descriptor.
type Readiness struct {
	FD       int
	Readable bool
	// Error is set on POLLERR or POLLNVAL.
	Error bool
}

// Poller waits with poll(2). It reuses its descriptor table between waits and
// is not safe for concurrent use.
type Poller struct {
	pfds []unix.PollFd
	out  []Readiness
}

// New creates a Poller.
func New() *Poller {
	return &Poller{}
}

// Wait blocks until one of fds is readable or errored, or timeout expires. A
// negative timeout waits forever. A positive timeout is rounded up to whole
// milliseconds. On timeout every entry is false and the
// error is nil. Interrupted waits are restarted.
//
// The returned slice is reused by the next call.
func (p *Poller) Wait(fds []int, timeout time.Duration) ([]Readiness, error) {
	p.pfds = p.pfds[:0]
	for _, fd := range fds {
		p.pfds = append(p.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}

	ms := pollMillis(timeout)

	for {
		_, err := unix.Poll(p.pfds, ms)
		if err == nil {
			break
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return nil, fmt.Errorf("%w: %v", core.ErrPollFailed, err)
	}

	p.out = p.out[:0]
	for _, pfd := range p.pfds {
		p.out = append(p.out, Readiness{
			FD:       int(pfd.Fd),
			Readable: pfd.Revents&unix.POLLIN != 0,
			Error:    pfd.Revents&(unix.POLLERR|unix.POLLNVAL) != 0,
		})
	}
	return p.out, nil
}

// pollMillis converts timeout to the poll(2) argument. Partial milliseconds
// round up so a short positive timeout still blocks.
func pollMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
