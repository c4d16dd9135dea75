package frame

import "encoding/binary"

const UDPHeaderSize = 8

// UDP is a decoded datagram. Length is the raw header field.
type UDP struct {
	SrcPort uint16
	DstPort uint16
	Length  uint16
	Payload []byte
}

// DecodeUDP parses a UDP header. A length field larger than what was captured
// is clamped to the bytes present; one smaller than the header yields an
// empty payload.
func DecodeUDP(buf []byte) (UDP, error) {
	if len(buf) < UDPHeaderSize {
		return UDP{}, ErrUDPTooShort
	}
	u := UDP{
		SrcPort: binary.BigEndian.Uint16(buf[0:2]),
		DstPort: binary.BigEndian.Uint16(buf[2:4]),
		Length:  binary.BigEndian.Uint16(buf[4:6]),
	}
	end := min(int(u.Length), len(buf))
	if end < UDPHeaderSize {
		end = UDPHeaderSize
	}
	u.Payload = buf[UDPHeaderSize:end]
	return u, nil
}
