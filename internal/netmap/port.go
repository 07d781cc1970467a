package netmap

import (
	"fmt"
	"strings"

	"firestige.xyz/nmbridge/internal/core"
	"firestige.xyz/nmbridge/internal/ring"
)

// DefaultHostSuffix marks a port name as the host-stack side of an interface.
const DefaultHostSuffix = "^"

// DefaultDevice is the netmap control device.
const DefaultDevice = "/dev/netmap"

// Options tunes Open.
type Options struct {
	// Device defaults to DefaultDevice.
	Device string
	// HostSuffix defaults to DefaultHostSuffix.
	HostSuffix string
	// NoTxPoll stops poll from syncing transmit rings.
	NoTxPoll bool
}

func (o Options) withDefaults() Options {
	if o.Device == "" {
		o.Device = DefaultDevice
	}
	if o.HostSuffix == "" {
		o.HostSuffix = DefaultHostSuffix
	}
	return o
}

// ParseName splits a port name into the interface name and whether it
// addresses the host-stack rings.
func ParseName(name, suffix string) (ifname string, host bool) {
	if suffix == "" {
		suffix = DefaultHostSuffix
	}
	if base, ok := strings.CutSuffix(name, suffix); ok {
		return base, true
	}
	return name, false
}

// Info is the geometry of a registered port.
type Info struct {
	Name    string     `json:"name" yaml:"name"`
	IfName  string     `json:"ifname" yaml:"ifname"`
	Host    bool       `json:"host" yaml:"host"`
	MemSize int        `json:"mem_size" yaml:"mem_size"`
	TxRings []RingInfo `json:"tx_rings" yaml:"tx_rings"`
	RxRings []RingInfo `json:"rx_rings" yaml:"rx_rings"`
}

// RingInfo describes one ring.
type RingInfo struct {
	ID      uint16 `json:"id" yaml:"id"`
	Slots   uint32 `json:"slots" yaml:"slots"`
	BufSize int    `json:"buf_size" yaml:"buf_size"`
	Head    uint32 `json:"head" yaml:"head"`
	Cur     uint32 `json:"cur" yaml:"cur"`
	Tail    uint32 `json:"tail" yaml:"tail"`
}

// Port is a registered netmap port. It is a ring.Endpoint.
type Port struct {
	name   string
	ifname string
	host   bool
	fd     int
	mem    []byte
	tx     []*Ring
	rx     []*Ring
	txSet  ring.Set
	rxSet  ring.Set
	closer func() error
	closed bool
}

var _ ring.Endpoint = (*Port)(nil)

// newPort maps the rings of a registration. offset locates the netmap_if in
// mem.
func newPort(name string, fd int, mem []byte, offset uint32, host bool, closer func() error) (*Port, error) {
	l, err := parseLayout(mem, offset)
	if err != nil {
		return nil, err
	}
	p := &Port{name: name, host: host, fd: fd, mem: mem, closer: closer, ifname: l.hdr.name()}
	if p.tx, err = l.rings(l.txRange(host)); err != nil {
		return nil, err
	}
	if p.rx, err = l.rings(l.rxRange(host)); err != nil {
		return nil, err
	}
	p.txSet, p.rxSet = toSet(p.tx), toSet(p.rx)
	return p, nil
}

func (p *Port) Name() string { return p.name }
func (p *Port) Fd() int      { return p.fd }

func (p *Port) RxRings() ring.Set { return p.rxSet }
func (p *Port) TxRings() ring.Set { return p.txSet }

// Close unmaps the shared region and closes the descriptor. Rings must not be
// used afterwards. Closing twice returns core.ErrEndpointClosed.
func (p *Port) Close() error {
	if p.closed {
		return fmt.Errorf("%s: %w", p.name, core.ErrEndpointClosed)
	}
	p.closed = true
	var err error
	if p.closer != nil {
		err = p.closer()
	}
	p.closer = nil
	p.rx, p.tx = nil, nil
	p.rxSet, p.txSet = nil, nil
	return err
}

// Info reports the port geometry and current ring indexes.
func (p *Port) Info() Info {
	info := Info{Name: p.name, IfName: p.ifname, Host: p.host, MemSize: len(p.mem)}
	for _, r := range p.tx {
		info.TxRings = append(info.TxRings, ringInfo(r))
	}
	for _, r := range p.rx {
		info.RxRings = append(info.RxRings, ringInfo(r))
	}
	return info
}

func ringInfo(r *Ring) RingInfo {
	return RingInfo{
		ID:      r.ID(),
		Slots:   r.NumSlots(),
		BufSize: r.BufSize(),
		Head:    r.Head(),
		Cur:     r.Cur(),
		Tail:    r.Tail(),
	}
}

func toSet(rs []*Ring) ring.Set {
	s := make(ring.Set, len(rs))
	for i, r := range rs {
		s[i] = r
	}
	return s
}
