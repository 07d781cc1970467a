//go:build !linux

package netmap

import (
	"fmt"

	"firestige.xyz/nmbridge/internal/core"
)

// Open is only implemented on Linux.
func Open(name string, _ Options) (*Port, error) {
	return nil, fmt.Errorf("netmap %q: %w", name, core.ErrUnsupported)
}
