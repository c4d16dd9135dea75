package frame

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

const (
	IPv4MinHeaderSize = 20
	ipv4DefaultTTL    = 64
)

// Addr is an IPv4 address in network order.
type Addr [4]byte

func (a Addr) String() string {
	return netip.AddrFrom4(a).String()
}

// ParseAddr accepts dotted-decimal IPv4 only.
func ParseAddr(s string) (Addr, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return Addr{}, err
	}
	if !ip.Is4() {
		return Addr{}, fmt.Errorf("address %q is not IPv4", s)
	}
	return ip.As4(), nil
}

// IPv4 holds the header fields this package cares about.
// Payload starts after the options, at HeaderLen.
type IPv4 struct {
	VersionIHL uint8
	HeaderLen  int
	TotalLen   uint16
	Protocol   IPProtocol
	Src        Addr
	Dst        Addr
	Payload    []byte
}

// DecodeIPv4 parses an IPv4 header. The total length field is recorded but
// not used to trim the payload, so Ethernet padding stays in Payload and the
// UDP length field decides what is data.
func DecodeIPv4(buf []byte) (IPv4, error) {
	if len(buf) < IPv4MinHeaderSize {
		return IPv4{}, ErrIPv4TooShort
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl < IPv4MinHeaderSize {
		return IPv4{}, fmt.Errorf("%w: ihl=%d", ErrBadIHL, ihl)
	}
	if len(buf) < ihl {
		return IPv4{}, fmt.Errorf("%w: ihl=%d len=%d", ErrBadIHL, ihl, len(buf))
	}
	h := IPv4{
		VersionIHL: buf[0],
		HeaderLen:  ihl,
		TotalLen:   binary.BigEndian.Uint16(buf[2:4]),
		Protocol:   IPProtocol(buf[9]),
		Payload:    buf[ihl:],
	}
	copy(h.Src[:], buf[12:16])
	copy(h.Dst[:], buf[16:20])
	return h, nil
}

// Checksum is the RFC 1071 internet checksum.
func Checksum(b []byte) uint16 {
	var sum uint32
	for len(b) >= 2 {
		sum += uint32(binary.BigEndian.Uint16(b))
		b = b[2:]
	}
	if len(b) == 1 {
		sum += uint32(b[0]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + sum>>16
	}
	return ^uint16(sum)
}

// UDPEndpoint names one side of a UDP exchange at L2/L3/L4.
type UDPEndpoint struct {
	MAC  MAC
	IP   Addr
	Port uint16
}

// EncodeIPv4UDP builds Ethernet + a 20-byte IPv4 header + UDP around payload.
// The UDP checksum is left zero, which IPv4 permits.
func EncodeIPv4UDP(src, dst UDPEndpoint, payload []byte) []byte {
	udpLen := UDPHeaderSize + len(payload)
	ip := make([]byte, IPv4MinHeaderSize+udpLen)
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], uint16(len(ip)))
	ip[8] = ipv4DefaultTTL
	ip[9] = byte(ProtoUDP)
	copy(ip[12:16], src.IP[:])
	copy(ip[16:20], dst.IP[:])
	binary.BigEndian.PutUint16(ip[10:12], Checksum(ip[:IPv4MinHeaderSize]))

	udp := ip[IPv4MinHeaderSize:]
	binary.BigEndian.PutUint16(udp[0:2], src.Port)
	binary.BigEndian.PutUint16(udp[2:4], dst.Port)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	copy(udp[UDPHeaderSize:], payload)

	return NewFrame(dst.MAC, src.MAC, EthertypeIPv4, ip)
}
