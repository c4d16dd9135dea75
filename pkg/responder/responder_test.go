package responder

import (
	"bytes"
	"testing"

	"vnic-go/pkg/frame"
)

var (
	gateway = Identity{
		MAC: frame.MAC{0x52, 0x55, 0x0a, 0x00, 0x02, 0x02},
		IP:  frame.Addr{10, 0, 2, 2},
	}
	guestMAC = frame.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	guestIP  = frame.Addr{10, 0, 2, 15}
)

func request(target frame.Addr) frame.ARP {
	return frame.ARP{
		Opcode:    frame.ARPRequest,
		SenderMAC: guestMAC,
		SenderIP:  guestIP,
		TargetIP:  target,
	}
}

func TestHandleMatchingRequest(t *testing.T) {
	intent, ok := Handle(request(gateway.IP), gateway)
	if !ok {
		t.Fatal("Expected a reply for our own address")
	}
	if intent.TargetMAC != guestMAC || intent.TargetIP != guestIP {
		t.Errorf("Reply must go back to the requester, got %s/%s", intent.TargetMAC, intent.TargetIP)
	}
	if intent.SenderMAC != gateway.MAC || intent.SenderIP != gateway.IP {
		t.Errorf("Reply must claim the identity, got %s/%s", intent.SenderMAC, intent.SenderIP)
	}
}

func TestHandleIgnoresOtherAddresses(t *testing.T) {
	if _, ok := Handle(request(frame.Addr{10, 0, 2, 99}), gateway); ok {
		t.Error("Must not answer for 10.0.2.99")
	}
	if _, ok := Handle(request(guestIP), gateway); ok {
		t.Error("Must not answer for the requester's own address")
	}
}

func TestHandleIgnoresReplies(t *testing.T) {
	req := request(gateway.IP)
	req.Opcode = frame.ARPReply
	if _, ok := Handle(req, gateway); ok {
		t.Error("Must not answer an ARP reply")
	}
}

func TestHandleIsIdempotent(t *testing.T) {
	a, _ := Handle(request(gateway.IP), gateway)
	b, _ := Handle(request(gateway.IP), gateway)
	if a != b || !bytes.Equal(a.Frame(), b.Frame()) {
		t.Error("Identical requests must produce identical replies")
	}
	if len(a.Frame()) != 60 {
		t.Errorf("Expected a 60-byte reply frame, got %d", len(a.Frame()))
	}
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("52:55:0a:00:02:02", "10.0.2.2")
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}
	if id != gateway {
		t.Errorf("Expected %s, got %s", gateway, id)
	}
	if _, err := ParseIdentity("ff:ff:ff:ff:ff:ff", "10.0.2.2"); err == nil {
		t.Error("Expected error for broadcast MAC")
	}
	if _, err := ParseIdentity("52:55:0a:00:02:02", "::1"); err == nil {
		t.Error("Expected error for IPv6 identity")
	}
	if _, err := ParseIdentity("not-a-mac", "10.0.2.2"); err == nil {
		t.Error("Expected error for invalid MAC")
	}
}
