// Package netif prepares a network interface for ring-level bridging.
package netif

// Options selects the preparation steps.
type Options struct {
	// LinkUp brings the link up if it is down.
	LinkUp bool
	// Promisc enables promiscuous mode so the wire rings see every frame.
	Promisc bool
	// DisableOffloads turns off segmentation and receive offloads. Offloaded
	// super-frames from the host stack exceed the buffer size of a slot.
	DisableOffloads bool
}

// Offloads lists the ethtool feature keys DisableOffloads clears when the
// interface has them.
var Offloads = []string{
	"tx-tcp-segmentation",
	"tx-tcp6-segmentation",
	"tx-generic-segmentation",
	"rx-gro",
	"rx-lro",
}

// pendingChanges returns the subset of Offloads currently enabled in features,
// mapped to false.
func pendingChanges(features map[string]bool) map[string]bool {
	change := map[string]bool{}
	for _, key := range Offloads {
		if on, ok := features[key]; ok && on {
			change[key] = false
		}
	}
	return change
}
