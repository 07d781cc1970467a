//go:build linux

package netmap

import (
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"firestige.xyz/nmbridge/internal/core"
)

const (
	apiVersion = 14

	nrRegAllNIC = 1
	nrRegSW     = 2

	netmapNoTxPoll = 0x1000

	// _IOWR('i', 146, struct nmreq)
	niocRegIf = 0xC03C6992
)

// nmreq is the legacy registration request.
type nmreq struct {
	Name    [ifNameSize]byte
	Version uint32
	Offset  uint32
	Memsize uint32
	TxSlots uint32
	RxSlots uint32
	TxRings uint16
	RxRings uint16
	RingID  uint16
	Cmd     uint16
	Arg1    uint16
	Arg2    uint16
	Arg3    uint32
	Flags   uint32
	Spare   uint32
}

// Open registers name with netmap and maps its rings. A name ending in the
// host suffix binds the host-stack rings of the interface, any other name
// binds all hardware rings.
func Open(name string, opts Options) (*Port, error) {
	opts = opts.withDefaults()
	ifname, host := ParseName(name, opts.HostSuffix)
	if len(ifname) == 0 || len(ifname) >= ifNameSize {
		return nil, fmt.Errorf("%w %q: bad interface name", core.ErrEndpointOpen, name)
	}

	fd, err := unix.Open(opts.Device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w %q: open %s: %v", core.ErrEndpointOpen, name, opts.Device, err)
	}

	req := nmreq{Version: apiVersion, Flags: nrRegAllNIC}
	copy(req.Name[:], ifname)
	if host {
		req.Flags = nrRegSW
	}
	if opts.NoTxPoll {
		req.RingID |= netmapNoTxPoll
	}
	if err := ioctl(fd, niocRegIf, unsafe.Pointer(&req)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w %q: register: %v", core.ErrEndpointOpen, name, err)
	}

	mem, err := unix.Mmap(fd, 0, int(req.Memsize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w %q: mmap %d bytes: %v", core.ErrEndpointOpen, name, req.Memsize, err)
	}

	closer := func() error {
		return multierr.Combine(unix.Munmap(mem), unix.Close(fd))
	}
	p, err := newPort(name, fd, mem, req.Offset, host, closer)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%w %q: %v", core.ErrEndpointOpen, name, err), closer())
	}
	return p, nil
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}
