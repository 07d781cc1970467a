package header

import (
	"errors"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/nmbridge/internal/core"
)

func buildUDPFrame(t testing.TB, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e},
		DstMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 5060, DstPort: 5060}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	return buf.Bytes()
}

func TestEtherTypeString(t *testing.T) {
	tests := []struct {
		raw      [2]byte
		expected string
	}{
		{[2]byte{0x08, 0x00}, "IPv4"},
		{[2]byte{0x00, 0x08}, "Unknown"},
		{[2]byte{0x86, 0xdd}, "Unknown"},
		{[2]byte{0x08, 0x06}, "Unknown"},
		{[2]byte{0xff, 0xff}, "Unknown"},
	}

	for _, tt := range tests {
		frame := make([]byte, EthernetLen)
		frame[12], frame[13] = tt.raw[0], tt.raw[1]
		eth, err := ParseEthernet(frame)
		if err != nil {
			t.Fatalf("ParseEthernet failed: %v", err)
		}
		if got := eth.EtherType().String(); got != tt.expected {
			t.Errorf("EtherType bytes %#v: expected %s, got %s", tt.raw, tt.expected, got)
		}
	}
}

func TestMACString(t *testing.T) {
	m := MAC{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e}
	if got := m.String(); got != "00:1a:2b:3c:4d:5e" {
		t.Errorf("Expected 00:1a:2b:3c:4d:5e, got %s", got)
	}
}

func TestParseEthernet(t *testing.T) {
	data := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // Dst MAC
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // Src MAC
		0x08, 0x00, // EtherType: IPv4
		0x45, 0x00, // start of IP header
	}

	eth, err := ParseEthernet(data)
	if err != nil {
		t.Fatalf("ParseEthernet failed: %v", err)
	}
	if len(eth) != EthernetLen {
		t.Errorf("Expected view of %d bytes, got %d", EthernetLen, len(eth))
	}
	if got := eth.Destination().String(); got != "00:11:22:33:44:55" {
		t.Errorf("Unexpected destination %s", got)
	}
	if got := eth.Source().String(); got != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Unexpected source %s", got)
	}
	if eth.EtherType() != EtherTypeIPv4 {
		t.Errorf("Expected EtherType 0x0800, got 0x%04x", uint16(eth.EtherType()))
	}
	if got := eth.String(); got != "Type IPv4. aa:bb:cc:dd:ee:ff -> 00:11:22:33:44:55" {
		t.Errorf("Unexpected rendering %q", got)
	}
}

func TestParseEthernetTooShort(t *testing.T) {
	_, err := ParseEthernet([]byte{0x00, 0x11, 0x22})
	if !errors.Is(err, core.ErrPacketTooShort) {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}

func TestParseIPv4(t *testing.T) {
	data := make([]byte, IPv4MinLen)
	data[0] = 0x45
	copy(data[12:16], []byte{192, 168, 1, 1})
	copy(data[16:20], []byte{172, 16, 0, 9})

	ip, err := ParseIPv4(data)
	if err != nil {
		t.Fatalf("ParseIPv4 failed: %v", err)
	}
	if got := ip.Source().String(); got != "192.168.1.1" {
		t.Errorf("Expected 192.168.1.1, got %s", got)
	}
	if got := ip.Destination().String(); got != "172.16.0.9" {
		t.Errorf("Expected 172.16.0.9, got %s", got)
	}
	if ip.Version() != 4 || ip.HeaderLen() != 20 {
		t.Errorf("Unexpected version/IHL: %d/%d", ip.Version(), ip.HeaderLen())
	}
	if got := ip.String(); got != "192.168.1.1 -> 172.16.0.9" {
		t.Errorf("Unexpected rendering %q", got)
	}
}

func TestParseIPv4TooShort(t *testing.T) {
	_, err := ParseIPv4(make([]byte, IPv4MinLen-1))
	if !errors.Is(err, core.ErrPacketTooShort) {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}

func TestDecodeUDPFrame(t *testing.T) {
	frame := buildUDPFrame(t, []byte("hello from the wire"))

	s := Decode(frame)
	if s.Opaque() {
		t.Fatal("Expected Ethernet view")
	}
	if s.Len != len(frame) {
		t.Errorf("Expected Len %d, got %d", len(frame), s.Len)
	}
	if s.IPv4 == nil {
		t.Fatal("Expected IPv4 view")
	}
	if got := s.IPv4.Source().String(); got != "192.168.1.1" {
		t.Errorf("Expected source 192.168.1.1, got %s", got)
	}
	// UDP header (8 bytes) plus the payload.
	if len(s.Payload) != 27 {
		t.Errorf("Expected 27 payload bytes, got %d", len(s.Payload))
	}
}

func TestDecodeOpaque(t *testing.T) {
	frame := []byte{0x01, 0x02, 0x03}
	s := Decode(frame)
	if !s.Opaque() {
		t.Error("Expected opaque summary for a 3-byte frame")
	}
	if s.IPv4 != nil {
		t.Error("Expected no IPv4 view")
	}
	if len(s.Payload) != 3 {
		t.Errorf("Expected whole frame as payload, got %d bytes", len(s.Payload))
	}
}

func TestDecodeTruncatedIPv4(t *testing.T) {
	frame := make([]byte, EthernetLen+10)
	frame[12], frame[13] = 0x08, 0x00

	s := Decode(frame)
	if s.Opaque() {
		t.Fatal("Expected Ethernet view")
	}
	if s.IPv4 != nil {
		t.Error("Expected IPv4 view to be skipped on truncated header")
	}
	if len(s.Payload) != 10 {
		t.Errorf("Expected 10 payload bytes, got %d", len(s.Payload))
	}
}

func TestDecodeBogusIHL(t *testing.T) {
	frame := make([]byte, EthernetLen+IPv4MinLen+4)
	frame[12], frame[13] = 0x08, 0x00
	frame[EthernetLen] = 0x4F // IHL=15 -> 60 bytes, beyond the frame

	s := Decode(frame)
	if s.IPv4 == nil {
		t.Fatal("Expected IPv4 view")
	}
	if len(s.Payload) != 4 {
		t.Errorf("Expected fallback to fixed header length, got %d payload bytes", len(s.Payload))
	}
}

func TestDecodeNonIP(t *testing.T) {
	frame := make([]byte, 60)
	frame[12], frame[13] = 0x08, 0x06 // ARP

	s := Decode(frame)
	if s.Opaque() || s.IPv4 != nil {
		t.Fatalf("Expected Ethernet-only summary, got %+v", s)
	}
	if s.Ethernet.EtherType().String() != "Unknown" {
		t.Errorf("Expected Unknown, got %s", s.Ethernet.EtherType())
	}
}

func TestSummaryString(t *testing.T) {
	tests := []struct {
		name     string
		frame    []byte
		expected string
	}{
		{"opaque", []byte{1, 2, 3}, "opaque, 3 bytes"},
		{"udp", buildUDPFrame(t, nil), "Type IPv4. 00:1a:2b:3c:4d:5e -> aa:bb:cc:dd:ee:ff; 192.168.1.1 -> 10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.frame).String(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	frame := buildUDPFrame(b, make([]byte, 1400))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Decode(frame)
	}
}
