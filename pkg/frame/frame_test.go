package frame

import (
	"bytes"
	"errors"
	"testing"
)

var (
	guestMAC = MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	guestIP  = Addr{10, 0, 2, 15}
	gwMAC    = MAC{0x52, 0x55, 0x0a, 0x00, 0x02, 0x02}
	gwIP     = Addr{10, 0, 2, 2}
)

func TestDecodeShortBuffers(t *testing.T) {
	cases := []struct {
		name   string
		min    int
		decode func([]byte) error
	}{
		{"ethernet", EthernetHeaderSize, func(b []byte) error { _, err := DecodeEthernet(b); return err }},
		{"arp", ARPSize, func(b []byte) error { _, err := DecodeARP(b); return err }},
		{"ipv4", IPv4MinHeaderSize, func(b []byte) error { _, err := DecodeIPv4(b); return err }},
		{"udp", UDPHeaderSize, func(b []byte) error { _, err := DecodeUDP(b); return err }},
	}
	for _, tc := range cases {
		for n := 0; n < tc.min; n++ {
			// exact-length slices so any read past len panics
			buf := bytes.Repeat([]byte{0x45}, n)[:n:n]
			err := tc.decode(buf)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("%s: len=%d: expected ErrMalformed, got %v", tc.name, n, err)
			}
		}
	}
}

func TestDecodeEthernet(t *testing.T) {
	buf := append([]byte{}, BroadcastMAC[:]...)
	buf = append(buf, guestMAC[:]...)
	buf = append(buf, 0x08, 0x06, 0xde, 0xad)

	e, err := DecodeEthernet(buf)
	if err != nil {
		t.Fatalf("DecodeEthernet failed: %v", err)
	}
	if !e.Dst.IsBroadcast() {
		t.Errorf("Expected broadcast destination, got %s", e.Dst)
	}
	if e.Src != guestMAC {
		t.Errorf("Expected source %s, got %s", guestMAC, e.Src)
	}
	if e.Type != EthertypeARP || e.Type.Value() != 0x0806 {
		t.Errorf("Expected ethertype arp, got %s", e.Type)
	}
	if !bytes.Equal(e.Payload, []byte{0xde, 0xad}) {
		t.Errorf("Unexpected payload %x", e.Payload)
	}
}

func TestEncodeARPReplyRoundTrip(t *testing.T) {
	reply := EncodeARPReply(guestMAC, guestIP, gwMAC, gwIP)
	if len(reply) != 60 {
		t.Fatalf("Expected 60-byte reply, got %d", len(reply))
	}
	if !bytes.Equal(reply[42:], make([]byte, 18)) {
		t.Errorf("Expected zero padding, got %x", reply[42:])
	}

	e, err := DecodeEthernet(reply)
	if err != nil {
		t.Fatalf("DecodeEthernet failed: %v", err)
	}
	if e.Dst != guestMAC || e.Src != gwMAC || e.Type != EthertypeARP {
		t.Fatalf("Unexpected ethernet header: dst=%s src=%s type=%s", e.Dst, e.Src, e.Type)
	}
	a, err := DecodeARP(e.Payload)
	if err != nil {
		t.Fatalf("DecodeARP failed: %v", err)
	}
	if a.Opcode != ARPReply {
		t.Errorf("Expected opcode %d, got %d", ARPReply, a.Opcode)
	}
	if a.SenderMAC != gwMAC || a.SenderIP != gwIP {
		t.Errorf("Unexpected sender %s/%s", a.SenderMAC, a.SenderIP)
	}
	if a.TargetMAC != guestMAC || a.TargetIP != guestIP {
		t.Errorf("Unexpected target %s/%s", a.TargetMAC, a.TargetIP)
	}
}

func TestDecodeARPUnsupported(t *testing.T) {
	req := EncodeARPRequest(guestMAC, guestIP, gwIP)
	body := append([]byte{}, req[EthernetHeaderSize:EthernetHeaderSize+ARPSize]...)

	// hardware type 6 (IEEE 802)
	body[1] = 6
	if _, err := DecodeARP(body); !errors.Is(err, ErrUnsupportedARP) {
		t.Errorf("Expected ErrUnsupportedARP for hw type 6, got %v", err)
	}
	body[1] = 1
	body[5] = 16
	if _, err := DecodeARP(body); !errors.Is(err, ErrUnsupportedARP) {
		t.Errorf("Expected ErrUnsupportedARP for protoLen 16, got %v", err)
	}
	if errors.Is(ErrUnsupportedARP, ErrMalformed) {
		t.Errorf("Unsupported ARP must not be classified as malformed")
	}
}

func TestDecodeIPv4(t *testing.T) {
	f := EncodeIPv4UDP(
		UDPEndpoint{MAC: guestMAC, IP: guestIP, Port: 12345},
		UDPEndpoint{MAC: gwMAC, IP: gwIP, Port: 53},
		[]byte("hello"),
	)
	e, err := DecodeEthernet(f)
	if err != nil {
		t.Fatalf("DecodeEthernet failed: %v", err)
	}
	ip, err := DecodeIPv4(e.Payload)
	if err != nil {
		t.Fatalf("DecodeIPv4 failed: %v", err)
	}
	if ip.HeaderLen != 20 || ip.Protocol != ProtoUDP {
		t.Errorf("Unexpected header: ihl=%d proto=%s", ip.HeaderLen, ip.Protocol)
	}
	if ip.Src != guestIP || ip.Dst != gwIP {
		t.Errorf("Unexpected addresses %s -> %s", ip.Src, ip.Dst)
	}
	if Checksum(e.Payload[:ip.HeaderLen]) != 0 {
		t.Errorf("IPv4 header checksum does not verify")
	}
}

func TestDecodeIPv4Options(t *testing.T) {
	buf := make([]byte, 28)
	buf[0] = 0x46 // ihl=6 -> 24 bytes
	buf[9] = byte(ProtoUDP)
	buf[24] = 0xab
	ip, err := DecodeIPv4(buf)
	if err != nil {
		t.Fatalf("DecodeIPv4 failed: %v", err)
	}
	if ip.HeaderLen != 24 || len(ip.Payload) != 4 || ip.Payload[0] != 0xab {
		t.Errorf("Payload should start after options: ihl=%d payload=%x", ip.HeaderLen, ip.Payload)
	}

	// ihl=15 (60 bytes) but only 28 present
	buf[0] = 0x4f
	if _, err := DecodeIPv4(buf); !errors.Is(err, ErrBadIHL) {
		t.Errorf("Expected ErrBadIHL, got %v", err)
	}
	// ihl=4 is below the minimum
	buf[0] = 0x44
	if _, err := DecodeIPv4(buf); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for ihl=4, got %v", err)
	}
}

func TestDecodeUDPClamp(t *testing.T) {
	hdr := func(length uint16, payload string) []byte {
		b := []byte{0x30, 0x39, 0x00, 0x35, byte(length >> 8), byte(length), 0, 0}
		return append(b, payload...)
	}

	cases := []struct {
		name   string
		buf    []byte
		expect string
	}{
		{"exact", hdr(13, "hello"), "hello"},
		{"padding trimmed", hdr(13, "hello\x00\x00\x00"), "hello"},
		{"length exceeds buffer", hdr(200, "hello"), "hello"},
		{"length below header", hdr(3, "hello"), ""},
		{"zero length", hdr(0, "hello"), ""},
		{"header only", hdr(8, ""), ""},
	}
	for _, tc := range cases {
		u, err := DecodeUDP(tc.buf)
		if err != nil {
			t.Fatalf("%s: DecodeUDP failed: %v", tc.name, err)
		}
		if string(u.Payload) != tc.expect {
			t.Errorf("%s: expected payload %q, got %q", tc.name, tc.expect, u.Payload)
		}
		if u.SrcPort != 12345 || u.DstPort != 53 {
			t.Errorf("%s: unexpected ports %d -> %d", tc.name, u.SrcPort, u.DstPort)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	m, err := ParseMAC("52:55:0a:00:02:02")
	if err != nil || m != gwMAC {
		t.Fatalf("ParseMAC: got %s, %v", m, err)
	}
	if !m.IsLocallyAdministered() || m.IsMulticast() {
		t.Errorf("Expected locally administered unicast MAC")
	}
	if _, err := ParseMAC("00:00:5e:00:53:01:02:03"); err == nil {
		t.Errorf("Expected error for EUI-64 address")
	}
	a, err := ParseAddr("10.0.2.2")
	if err != nil || a != gwIP {
		t.Fatalf("ParseAddr: got %s, %v", a, err)
	}
	if _, err := ParseAddr("fe80::1"); err == nil {
		t.Errorf("Expected error for IPv6 address")
	}
	if EthertypeFrom(0x88cc).String() != "0x88cc" {
		t.Errorf("Unexpected ethertype string %s", EthertypeFrom(0x88cc))
	}
}
