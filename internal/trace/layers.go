package trace

import (
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// layerNames decodes every layer gopacket knows and returns their names,
// outermost first, joined with "/".
func layerNames(frame []byte) string {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	ls := pkt.Layers()
	names := make([]string, 0, len(ls))
	for _, l := range ls {
		names = append(names, l.LayerType().String())
	}
	if pkt.ErrorLayer() != nil && len(names) > 0 && names[len(names)-1] != "DecodeFailure" {
		names = append(names, "DecodeFailure")
	}
	return strings.Join(names, "/")
}
