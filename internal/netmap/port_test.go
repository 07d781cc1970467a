package netmap

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/nmbridge/internal/bridge"
	"firestige.xyz/nmbridge/internal/core"
	"firestige.xyz/nmbridge/internal/ring"
	"firestige.xyz/nmbridge/internal/ring/ringtest"
)

type geometry struct {
	tx, rx         uint32
	hostTx, hostRx uint32
	slots          uint32
	bufSize        uint32
}

// region is a synthetic shared memory region laid out the way the kernel
// lays it out.
type region struct {
	mem   []byte
	nif   uint32
	rings []int
}

func buildRegion(t *testing.T, name string, g geometry) *region {
	t.Helper()
	const nif = 64
	ne := binary.NativeEndian

	hostTx, hostRx := g.hostTx, g.hostRx
	if hostTx == 0 {
		hostTx = 1
	}
	if hostRx == 0 {
		hostRx = 1
	}
	total := g.tx + hostTx + g.rx + hostRx
	ringLen := (ringSlotsOff + slotSize*int(g.slots) + 7) &^ 7

	ringsStart := (nif + ifRingOfsOff + 8*int(total) + 7) &^ 7
	pool := ringsStart + ringLen*int(total)
	size := pool + int(total*g.slots*g.bufSize)

	r := &region{mem: make([]byte, size), nif: nif}
	copy(r.mem[nif:], name)
	ne.PutUint32(r.mem[nif+ifTxRingsOff:], g.tx)
	ne.PutUint32(r.mem[nif+ifRxRingsOff:], g.rx)
	ne.PutUint32(r.mem[nif+ifHostTxRingsOff:], g.hostTx)
	ne.PutUint32(r.mem[nif+ifHostRxRingsOff:], g.hostRx)

	for k := 0; k < int(total); k++ {
		base := ringsStart + ringLen*k
		r.rings = append(r.rings, base)
		ne.PutUint64(r.mem[nif+ifRingOfsOff+8*k:], uint64(base-nif))

		ne.PutUint64(r.mem[base+ringBufOfsOff:], uint64(pool-base))
		ne.PutUint32(r.mem[base+ringNumSlotsOff:], g.slots)
		ne.PutUint32(r.mem[base+ringBufSizeOff:], g.bufSize)
		ne.PutUint16(r.mem[base+ringIDOff:], uint16(k))
		for i := 0; i < int(g.slots); i++ {
			off := base + ringSlotsOff + slotSize*i
			ne.PutUint32(r.mem[off+slotBufIdxOff:], uint32(k)*g.slots+uint32(i))
		}
	}
	return r
}

func (r *region) setTail(k int, tail uint32) {
	binary.NativeEndian.PutUint32(r.mem[r.rings[k]+ringTailOff:], tail)
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name, suffix string
		ifname       string
		host         bool
	}{
		{"eth0", "", "eth0", false},
		{"eth0^", "", "eth0", true},
		{"eth0^", "^", "eth0", true},
		{"eth0+", "+", "eth0", true},
		{"eth0^", "+", "eth0^", false},
	}
	for _, tt := range tests {
		ifname, host := ParseName(tt.name, tt.suffix)
		assert.Equal(t, tt.ifname, ifname, tt.name)
		assert.Equal(t, tt.host, host, tt.name)
	}
}

func TestNewPortHardwareRings(t *testing.T) {
	g := geometry{tx: 2, rx: 3, hostTx: 1, hostRx: 1, slots: 8, bufSize: 2048}
	reg := buildRegion(t, "eth0", g)

	p, err := newPort("eth0", 7, reg.mem, reg.nif, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "eth0", p.Name())
	assert.Equal(t, 7, p.Fd())
	require.Equal(t, 2, p.TxRings().Len())
	require.Equal(t, 3, p.RxRings().Len())

	info := p.Info()
	assert.Equal(t, "eth0", info.IfName)
	assert.False(t, info.Host)
	// ring_ofs holds 2 hw tx, 1 host tx, then the rx rings
	assert.Equal(t, []uint16{0, 1}, ids(info.TxRings))
	assert.Equal(t, []uint16{3, 4, 5}, ids(info.RxRings))
	assert.Equal(t, uint32(8), info.RxRings[0].Slots)
	assert.Equal(t, 2048, info.RxRings[0].BufSize)

	for i, r := range p.RxRings() {
		assert.Equal(t, i, r.Index())
		assert.Equal(t, 2048, r.Slot(0).Cap())
	}
}

func TestNewPortHostRings(t *testing.T) {
	g := geometry{tx: 2, rx: 2, hostTx: 1, hostRx: 1, slots: 4, bufSize: 256}
	reg := buildRegion(t, "eth0", g)

	p, err := newPort("eth0^", 7, reg.mem, reg.nif, true, nil)
	require.NoError(t, err)
	info := p.Info()
	assert.True(t, info.Host)
	assert.Equal(t, []uint16{2}, ids(info.TxRings))
	assert.Equal(t, []uint16{5}, ids(info.RxRings))
}

func TestNewPortLegacyHostRingCount(t *testing.T) {
	g := geometry{tx: 1, rx: 1, slots: 4, bufSize: 256}
	reg := buildRegion(t, "eth1", g)

	p, err := newPort("eth1^", 3, reg.mem, reg.nif, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1}, ids(p.Info().TxRings))
	assert.Equal(t, []uint16{3}, ids(p.Info().RxRings))
}

func TestNewPortOutOfBounds(t *testing.T) {
	g := geometry{tx: 1, rx: 1, hostTx: 1, hostRx: 1, slots: 4, bufSize: 256}
	reg := buildRegion(t, "eth0", g)

	_, err := newPort("eth0", 3, reg.mem[:reg.rings[1]], reg.nif, false, nil)
	assert.Error(t, err)

	_, err = newPort("eth0", 3, reg.mem[:100], reg.nif, false, nil)
	assert.Error(t, err)

	_, err = newPort("eth0", 3, reg.mem, uint32(len(reg.mem)), false, nil)
	assert.Error(t, err)
}

func TestRingIndexesAreShared(t *testing.T) {
	g := geometry{tx: 1, rx: 1, hostTx: 1, hostRx: 1, slots: 8, bufSize: 256}
	reg := buildRegion(t, "eth0", g)
	p, err := newPort("eth0", 3, reg.mem, reg.nif, false, nil)
	require.NoError(t, err)

	reg.setTail(2, 5)
	rx := p.RxRings()[0]
	assert.Equal(t, uint32(5), rx.Tail())
	assert.Equal(t, uint32(5), ring.Available(rx))

	rx.SetCur(3)
	rx.PublishHead()
	ne := binary.NativeEndian
	assert.Equal(t, uint32(3), ne.Uint32(reg.mem[reg.rings[2]+ringCurOff:]))
	assert.Equal(t, uint32(3), ne.Uint32(reg.mem[reg.rings[2]+ringHeadOff:]))
}

func TestSlotBufferAndLength(t *testing.T) {
	g := geometry{tx: 1, rx: 1, hostTx: 1, hostRx: 1, slots: 4, bufSize: 128}
	reg := buildRegion(t, "eth0", g)
	p, err := newPort("eth0", 3, reg.mem, reg.nif, false, nil)
	require.NoError(t, err)

	s := p.TxRings()[0].Slot(2).(*Slot)
	assert.Equal(t, uint32(2), s.BufIndex())
	require.Len(t, s.Buf(), 128)

	copy(s.Buf(), "frame")
	s.SetLen(5)
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, []byte("frame"), s.Payload())

	slotOff := reg.rings[0] + ringSlotsOff + 2*slotSize
	assert.Equal(t, uint16(5), binary.NativeEndian.Uint16(reg.mem[slotOff+slotLenOff:]))
	bufOff := len(reg.mem) - 4*4*128 + 2*128
	assert.Equal(t, []byte("frame"), reg.mem[bufOff:bufOff+5])
}

func (r *region) setBufIndex(k, slot int, idx uint32) {
	binary.NativeEndian.PutUint32(r.mem[r.rings[k]+ringSlotsOff+slotSize*slot+slotBufIdxOff:], idx)
}

func TestBufferIndexOutsideRegion(t *testing.T) {
	g := geometry{tx: 1, rx: 1, slots: 4, bufSize: 2048}
	reg := buildRegion(t, "eth0", g)

	reg.setBufIndex(0, 1, 1000)
	_, err := newPort("eth0", 3, reg.mem, reg.nif, false, nil)
	assert.ErrorContains(t, err, "slot 1 buffer 1000 beyond")

	reg.setBufIndex(0, 1, 1)
	p, err := newPort("eth0", 3, reg.mem, reg.nif, false, nil)
	require.NoError(t, err)

	// the kernel may rewrite buf_idx after mapping
	reg.setBufIndex(0, 1, 1000)
	s := p.TxRings()[0].Slot(1)
	s.SetLen(60)
	assert.NotPanics(t, func() {
		assert.Nil(t, s.Buf())
		assert.Zero(t, s.Cap())
		assert.Empty(t, s.Payload())
	})

	// a sink slot without a buffer fails the pass instead of panicking
	rx := ringtest.NewRxRing(0, 4, 2048)
	rx.Receive([]byte("frame"))
	tx := p.TxRings()
	reg.setTail(0, 3)
	tx[0].SetCur(1)
	_, err = bridge.New().Move(bridge.WireToHost, ringtest.Set(rx), tx)
	assert.ErrorIs(t, err, core.ErrSlotOverflow)
}

func TestBridgeBetweenPorts(t *testing.T) {
	g := geometry{tx: 1, rx: 1, hostTx: 1, hostRx: 1, slots: 8, bufSize: 256}
	reg := buildRegion(t, "eth0", g)
	wire, err := newPort("eth0", 3, reg.mem, reg.nif, false, nil)
	require.NoError(t, err)
	host, err := newPort("eth0^", 4, reg.mem, reg.nif, true, nil)
	require.NoError(t, err)

	// two frames received on the wire
	rx := wire.RxRings()[0]
	for i, f := range []string{"first frame", "second"} {
		s := rx.Slot(uint32(i))
		s.SetLen(copy(s.Buf(), f))
	}
	reg.setTail(2, 2)
	// host transmit ring has 7 free slots
	reg.setTail(1, 7)

	res, err := bridge.New().Move(bridge.WireToHost, wire.RxRings(), host.TxRings())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Slots)

	tx := host.TxRings()[0]
	assert.Equal(t, []byte("first frame"), tx.Slot(0).Payload())
	assert.Equal(t, []byte("second"), tx.Slot(1).Payload())
	assert.Equal(t, uint32(2), tx.(*Ring).Head())
	assert.Equal(t, uint32(2), rx.(*Ring).Head())
}

func TestCloseRunsOnce(t *testing.T) {
	g := geometry{tx: 1, rx: 1, slots: 4, bufSize: 128}
	reg := buildRegion(t, "eth0", g)
	calls := 0
	errClose := errors.New("close failed")
	p, err := newPort("eth0", 3, reg.mem, reg.nif, false, func() error {
		calls++
		return errClose
	})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Close(), errClose)
	assert.ErrorIs(t, p.Close(), core.ErrEndpointClosed)
	assert.Equal(t, 1, calls)
	assert.Nil(t, p.RxRings())
}

func ids(rs []RingInfo) []uint16 {
	out := make([]uint16, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
