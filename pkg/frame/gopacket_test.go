package frame

import (
	"bytes"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Cross-check the hand-built frames against gopacket's decoders.

func TestARPReplyDecodesWithGopacket(t *testing.T) {
	reply := EncodeARPReply(guestMAC, guestIP, gwMAC, gwIP)
	pkt := gopacket.NewPacket(reply, layers.LayerTypeEthernet, gopacket.Default)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		t.Fatalf("gopacket decode error: %v", errLayer.Error())
	}

	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		t.Fatal("no ethernet layer")
	}
	if !bytes.Equal(eth.DstMAC, guestMAC[:]) || !bytes.Equal(eth.SrcMAC, gwMAC[:]) {
		t.Errorf("Unexpected MACs dst=%s src=%s", eth.DstMAC, eth.SrcMAC)
	}
	if eth.EthernetType != layers.EthernetTypeARP {
		t.Errorf("Expected ARP ethertype, got %s", eth.EthernetType)
	}

	arp, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	if !ok {
		t.Fatal("no arp layer")
	}
	if arp.Operation != layers.ARPReply ||
		arp.AddrType != layers.LinkTypeEthernet ||
		arp.Protocol != layers.EthernetTypeIPv4 ||
		arp.HwAddressSize != 6 || arp.ProtAddressSize != 4 {
		t.Errorf("Unexpected ARP header: %+v", arp)
	}
	if !net.IP(arp.SourceProtAddress).Equal(net.IPv4(10, 0, 2, 2)) {
		t.Errorf("Unexpected sender IP %v", net.IP(arp.SourceProtAddress))
	}
	if !bytes.Equal(arp.DstHwAddress, guestMAC[:]) {
		t.Errorf("Unexpected target MAC %v", net.HardwareAddr(arp.DstHwAddress))
	}
}

func TestGopacketARPRequestDecodes(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       guestMAC.HardwareAddr(),
		DstMAC:       BroadcastMAC.HardwareAddr(),
		EthernetType: layers.EthernetTypeARP,
	}
	req := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   guestMAC[:],
		SourceProtAddress: guestIP[:],
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    gwIP[:],
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, req); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	e, err := DecodeEthernet(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeEthernet failed: %v", err)
	}
	a, err := DecodeARP(e.Payload)
	if err != nil {
		t.Fatalf("DecodeARP failed: %v", err)
	}
	if a.Opcode != ARPRequest || a.SenderMAC != guestMAC || a.SenderIP != guestIP || a.TargetIP != gwIP {
		t.Errorf("Unexpected request %+v", a)
	}
	if !bytes.Equal(EncodeARPRequest(guestMAC, guestIP, gwIP)[:42], buf.Bytes()[:42]) {
		t.Errorf("EncodeARPRequest differs from gopacket serialization")
	}
}

func TestIPv4UDPDecodesWithGopacket(t *testing.T) {
	f := EncodeIPv4UDP(
		UDPEndpoint{MAC: guestMAC, IP: guestIP, Port: 12345},
		// a port gopacket has no application decoder for, so the payload
		// stays a plain Payload layer
		UDPEndpoint{MAC: gwMAC, IP: gwIP, Port: 9999},
		[]byte("hello"),
	)
	pkt := gopacket.NewPacket(f, layers.LayerTypeEthernet, gopacket.Default)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		t.Fatalf("gopacket decode error: %v", errLayer.Error())
	}
	ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		t.Fatal("no ipv4 layer")
	}
	if ip.Protocol != layers.IPProtocolUDP || ip.IHL != 5 || ip.Length != 33 {
		t.Errorf("Unexpected ipv4 header: proto=%s ihl=%d len=%d", ip.Protocol, ip.IHL, ip.Length)
	}
	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		t.Fatal("no udp layer")
	}
	if udp.SrcPort != 12345 || udp.DstPort != 9999 || string(udp.Payload) != "hello" {
		t.Errorf("Unexpected udp: %d -> %d %q", udp.SrcPort, udp.DstPort, udp.Payload)
	}
	if app := pkt.ApplicationLayer(); app == nil || string(app.Payload()) != "hello" {
		t.Errorf("Expected payload layer with %q, got %v", "hello", app)
	}
}
