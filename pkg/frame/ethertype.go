package frame

import "fmt"

// Ethertype represents the Ethernet frame type field
type Ethertype struct {
	Hi, Lo byte
}

// EthertypeFrom splits a host-order value into its wire bytes.
func EthertypeFrom(v uint16) Ethertype {
	return Ethertype{byte(v >> 8), byte(v)}
}

// Value returns the Ethertype as a uint16
func (e Ethertype) Value() uint16 {
	return uint16(e.Hi)<<8 | uint16(e.Lo)
}

// String returns a string representation of the Ethertype
func (e Ethertype) String() string {
	switch e {
	case EthertypeIPv4:
		return "ipv4"
	case EthertypeARP:
		return "arp"
	case EthertypeIPv6:
		return "ipv6"
	}
	return fmt.Sprintf("0x%04x", e.Value())
}

// Common Ethertypes
var (
	EthertypeIPv4 = Ethertype{0x08, 0x00}
	EthertypeARP  = Ethertype{0x08, 0x06}
	EthertypeIPv6 = Ethertype{0x86, 0xdd}
)

// IPProtocol is the IPv4 protocol number carried in byte 9 of the header.
type IPProtocol uint8

const (
	ProtoICMP IPProtocol = 0x01
	ProtoTCP  IPProtocol = 0x06
	ProtoUDP  IPProtocol = 0x11
)

func (p IPProtocol) String() string {
	switch p {
	case ProtoICMP:
		return "icmp"
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	}
	return fmt.Sprintf("proto-%d", uint8(p))
}
