package reporter

import (
	"fmt"

	"vnic-go/pkg/frame"
)

// Kind names an event shape.
type Kind string

const (
	KindARPRequest  Kind = "arp_request"
	KindARPReply    Kind = "arp_reply"
	KindUDP         Kind = "udp"
	KindDecodeError Kind = "decode_error"
)

// Event is something the device observed or did.
type Event interface {
	Kind() Kind
	// Line renders the event as one line of text.
	Line(f PayloadFormat) string
}

// ARPRequestObserved is any ARP request seen on the wire, answered or not.
type ARPRequestObserved struct {
	SenderMAC frame.MAC
	SenderIP  frame.Addr
	TargetIP  frame.Addr
}

func (ARPRequestObserved) Kind() Kind { return KindARPRequest }

func (e ARPRequestObserved) Line(PayloadFormat) string {
	return fmt.Sprintf("[ARP] Request: Who has %s? Tell %s (%s)", e.TargetIP, e.SenderIP, e.SenderMAC)
}

// ARPReplySent follows a successful send of a reply frame.
type ARPReplySent struct {
	MAC      frame.MAC
	IP       frame.Addr
	TargetIP frame.Addr
}

func (ARPReplySent) Kind() Kind { return KindARPReply }

func (e ARPReplySent) Line(PayloadFormat) string {
	return fmt.Sprintf("[ARP] Reply sent: %s is at %s", e.IP, e.MAC)
}

// UDPPacketObserved carries the datagram payload. Payload may alias the
// receive buffer, so sinks must not retain it past Emit.
type UDPPacketObserved struct {
	SrcIP   frame.Addr
	SrcPort uint16
	DstIP   frame.Addr
	DstPort uint16
	Payload []byte
}

func (UDPPacketObserved) Kind() Kind { return KindUDP }

func (e UDPPacketObserved) Line(f PayloadFormat) string {
	return fmt.Sprintf("[UDP] %s:%d -> %s:%d len=%d data=%s",
		e.SrcIP, e.SrcPort, e.DstIP, e.DstPort, len(e.Payload), f.Render(e.Payload))
}

// DecodeError reports a dropped frame.
type DecodeError struct {
	Layer string
	Len   int
	Err   error
}

func (DecodeError) Kind() Kind { return KindDecodeError }

func (e DecodeError) Line(PayloadFormat) string {
	return fmt.Sprintf("[ERR] %s: %v (frame len=%d)", e.Layer, e.Err, e.Len)
}
