// Package frame decodes and encodes the Ethernet, ARP, IPv4 and UDP headers
// carried in the raw frames a hypervisor tap tunnels over UDP.
//
// Every decoder checks the buffer length before touching a field and returns
// an error wrapping ErrMalformed instead of a partially filled value.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// Common errors returned by functions in this package
var (
	ErrMalformed      = errors.New("malformed frame")
	ErrFrameTooShort  = fmt.Errorf("%w: ethernet frame too short", ErrMalformed)
	ErrARPTooShort    = fmt.Errorf("%w: arp packet too short", ErrMalformed)
	ErrIPv4TooShort   = fmt.Errorf("%w: ipv4 header too short", ErrMalformed)
	ErrBadIHL         = fmt.Errorf("%w: ipv4 header length out of range", ErrMalformed)
	ErrUDPTooShort    = fmt.Errorf("%w: udp header too short", ErrMalformed)
	ErrUnsupportedARP = errors.New("unsupported arp hardware/protocol combination")
)

// Minimum valid lengths and offsets
const (
	EthernetHeaderSize = 14 // dst(6) + src(6) + type(2), no FCS
	MinFrameSize       = 60 // minimum Ethernet frame without FCS
	SrcOffset          = 6
	TypeOffset         = 12
)

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// HardwareAddr returns a copy usable with the net package.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, 6)
	copy(hw, m[:])
	return hw
}

// IsBroadcast checks if a MAC address is a broadcast address.
func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}

// IsMulticast checks the group bit of the first octet (broadcast included).
func (m MAC) IsMulticast() bool {
	return m[0]&0x01 == 0x01
}

// IsLocallyAdministered checks the U/L bit of the first octet.
func (m MAC) IsLocallyAdministered() bool {
	return m[0]&0x02 == 0x02
}

// ParseMAC parses a 6-byte hardware address in any form net.ParseMAC accepts.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("mac %q: want 6 bytes, got %d", s, len(hw))
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// Ethernet is a decoded link-layer header. Payload aliases the input buffer.
type Ethernet struct {
	Dst     MAC
	Src     MAC
	Type    Ethertype
	Payload []byte
}

// DecodeEthernet extracts the fixed header fields and the remaining payload.
func DecodeEthernet(buf []byte) (Ethernet, error) {
	if len(buf) < EthernetHeaderSize {
		return Ethernet{}, ErrFrameTooShort
	}
	var e Ethernet
	copy(e.Dst[:], buf[0:6])
	copy(e.Src[:], buf[SrcOffset:SrcOffset+6])
	e.Type = EthertypeFrom(binary.BigEndian.Uint16(buf[TypeOffset:EthernetHeaderSize]))
	e.Payload = buf[EthernetHeaderSize:]
	return e, nil
}

// NewFrame creates a new MAC frame with the specified addresses and ethertype.
// Frames shorter than MinFrameSize are zero-padded.
func NewFrame(dst, src MAC, ethertype Ethertype, payload []byte) []byte {
	n := max(EthernetHeaderSize+len(payload), MinFrameSize)
	frame := make([]byte, n)
	copy(frame[0:6], dst[:])
	copy(frame[6:12], src[:])
	frame[12] = ethertype.Hi
	frame[13] = ethertype.Lo
	copy(frame[EthernetHeaderSize:], payload)
	return frame
}
