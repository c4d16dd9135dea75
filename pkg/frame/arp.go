package frame

import (
	"encoding/binary"
	"fmt"
)

// ARP opcodes
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

const (
	ARPSize        = 28
	arpHwEthernet  = 1
	arpProtoIPv4   = 0x0800
	arpHwLenEther  = 6
	arpProtoLenIP4 = 4
)

// ARP is an Ethernet/IPv4 ARP packet (RFC 826).
type ARP struct {
	HwType    uint16
	ProtoType uint16
	HwLen     uint8
	ProtoLen  uint8
	Opcode    uint16
	SenderMAC MAC
	SenderIP  Addr
	TargetMAC MAC
	TargetIP  Addr
}

// DecodeARP parses the first 28 bytes of buf. Only hwType 1 / protoType
// 0x0800 with 6/4 address lengths are accepted; anything else returns
// ErrUnsupportedARP since the address fields would not be where we read them.
func DecodeARP(buf []byte) (ARP, error) {
	if len(buf) < ARPSize {
		return ARP{}, ErrARPTooShort
	}
	a := ARP{
		HwType:    binary.BigEndian.Uint16(buf[0:2]),
		ProtoType: binary.BigEndian.Uint16(buf[2:4]),
		HwLen:     buf[4],
		ProtoLen:  buf[5],
		Opcode:    binary.BigEndian.Uint16(buf[6:8]),
	}
	if a.HwType != arpHwEthernet || a.ProtoType != arpProtoIPv4 ||
		a.HwLen != arpHwLenEther || a.ProtoLen != arpProtoLenIP4 {
		return ARP{}, fmt.Errorf("%w: hw=%d proto=0x%04x hlen=%d plen=%d",
			ErrUnsupportedARP, a.HwType, a.ProtoType, a.HwLen, a.ProtoLen)
	}
	copy(a.SenderMAC[:], buf[8:14])
	copy(a.SenderIP[:], buf[14:18])
	copy(a.TargetMAC[:], buf[18:24])
	copy(a.TargetIP[:], buf[24:28])
	return a, nil
}

// MarshalTo writes the 28-byte wire form. Header sizes are always the
// Ethernet/IPv4 ones regardless of the struct fields.
func (a ARP) MarshalTo(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], arpHwEthernet)
	binary.BigEndian.PutUint16(b[2:4], arpProtoIPv4)
	b[4] = arpHwLenEther
	b[5] = arpProtoLenIP4
	binary.BigEndian.PutUint16(b[6:8], a.Opcode)
	copy(b[8:14], a.SenderMAC[:])
	copy(b[14:18], a.SenderIP[:])
	copy(b[18:24], a.TargetMAC[:])
	copy(b[24:28], a.TargetIP[:])
}

// EncodeARPReply builds a complete 60-byte frame telling targetMAC/targetIP
// that senderIP is at senderMAC.
func EncodeARPReply(targetMAC MAC, targetIP Addr, senderMAC MAC, senderIP Addr) []byte {
	body := make([]byte, ARPSize)
	ARP{
		Opcode:    ARPReply,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetMAC: targetMAC,
		TargetIP:  targetIP,
	}.MarshalTo(body)
	return NewFrame(targetMAC, senderMAC, EthertypeARP, body)
}

// EncodeARPRequest builds a broadcast who-has request for targetIP.
func EncodeARPRequest(senderMAC MAC, senderIP, targetIP Addr) []byte {
	body := make([]byte, ARPSize)
	ARP{
		Opcode:    ARPRequest,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetIP:  targetIP,
	}.MarshalTo(body)
	return NewFrame(BroadcastMAC, senderMAC, EthertypeARP, body)
}
