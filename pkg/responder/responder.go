// Package responder decides how the virtual gateway answers ARP.
//
// The responder impersonates exactly one (MAC, IP) pair. It keeps no table
// and no history, so the same request always yields the same reply.
package responder

import (
	"fmt"

	"vnic-go/pkg/frame"
)

// Identity is the address pair the responder claims to own.
type Identity struct {
	MAC frame.MAC
	IP  frame.Addr
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s", id.IP, id.MAC)
}

// ParseIdentity validates a unicast MAC and an IPv4 address.
func ParseIdentity(mac, ip string) (Identity, error) {
	m, err := frame.ParseMAC(mac)
	if err != nil {
		return Identity{}, fmt.Errorf("identity mac: %w", err)
	}
	if m.IsMulticast() {
		return Identity{}, fmt.Errorf("identity mac %s is a group address", m)
	}
	a, err := frame.ParseAddr(ip)
	if err != nil {
		return Identity{}, fmt.Errorf("identity ip: %w", err)
	}
	return Identity{MAC: m, IP: a}, nil
}

// Intent describes the reply to send: TargetMAC/TargetIP are whoever asked,
// SenderMAC/SenderIP are the configured identity.
type Intent struct {
	TargetMAC frame.MAC
	TargetIP  frame.Addr
	SenderMAC frame.MAC
	SenderIP  frame.Addr
}

// Frame encodes the padded 60-byte reply.
func (i Intent) Frame() []byte {
	return frame.EncodeARPReply(i.TargetMAC, i.TargetIP, i.SenderMAC, i.SenderIP)
}

// Handle returns a reply intent when req is a request for id.IP.
func Handle(req frame.ARP, id Identity) (Intent, bool) {
	if req.Opcode != frame.ARPRequest || req.TargetIP != id.IP {
		return Intent{}, false
	}
	return Intent{
		TargetMAC: req.SenderMAC,
		TargetIP:  req.SenderIP,
		SenderMAC: id.MAC,
		SenderIP:  id.IP,
	}, true
}
