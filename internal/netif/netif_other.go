//go:build !linux

package netif

import (
	"fmt"

	"firestige.xyz/nmbridge/internal/core"
)

func Prepare(ifname string, _ Options) error {
	return fmt.Errorf("netif %s: %w", ifname, core.ErrUnsupported)
}
