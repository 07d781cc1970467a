//go:build !unix

package poller

import (
	"fmt"
	"time"

	"firestige.xyz/nmbridge/internal/core"
)

type Readiness struct {
	FD       int
	Readable bool
	Error    bool
}

type Poller struct{}

func New() *Poller {
	return &Poller{}
}

func (p *Poller) Wait([]int, time.Duration) ([]Readiness, error) {
	return nil, fmt.Errorf("%w: %w", core.ErrPollFailed, core.ErrUnsupported)
}
