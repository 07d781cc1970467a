package trace

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/nmbridge/internal/bridge"
	"firestige.xyz/nmbridge/internal/header"
	"firestige.xyz/nmbridge/internal/ring"
)

// Pcap writes every forwarded frame, both directions, to a pcap stream. The
// stream is flushed at the end of every pass.
type Pcap struct {
	bridge.NopObserver

	buf     *bufio.Writer
	w       *pcapgo.Writer
	snaplen int
	now     func() time.Time
	err     error
}

// NewPcap writes the pcap file header to w and returns the tap.
func NewPcap(w io.Writer, snaplen int) (*Pcap, error) {
	buf := bufio.NewWriter(w)
	pw := pcapgo.NewWriter(buf)
	if err := pw.WriteFileHeader(uint32(snaplen), layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("pcap header: %w", err)
	}
	return &Pcap{buf: buf, w: pw, snaplen: snaplen, now: time.Now}, nil
}

func (p *Pcap) Slot(_ bridge.Direction, src ring.Slot, _ ring.Ring, _ header.Summary) {
	if p.err != nil {
		return
	}
	data := src.Payload()
	ci := gopacket.CaptureInfo{
		Timestamp:     p.now(),
		Length:        len(data),
		CaptureLength: min(len(data), p.snaplen),
	}
	p.fail(p.w.WritePacket(ci, data[:ci.CaptureLength]))
}

func (p *Pcap) PassEnd(bridge.Direction, bridge.Result) {
	if p.err == nil {
		p.fail(p.buf.Flush())
	}
}

// fail records the first write error. The tap stops writing after it.
func (p *Pcap) fail(err error) {
	if err == nil || p.err != nil {
		return
	}
	p.err = err
	slog.Warn("pcap tap write failed, tap stopped", "error", err)
}

// Flush writes buffered packets. It returns the first write error, if any.
func (p *Pcap) Flush() error {
	if p.err == nil {
		p.fail(p.buf.Flush())
	}
	return p.err
}

// createPcapFile creates path and its tap.
func createPcapFile(path string, snaplen int) (*Pcap, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create pcap file: %w", err)
	}
	p, err := NewPcap(f, snaplen)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return p, f, nil
}
