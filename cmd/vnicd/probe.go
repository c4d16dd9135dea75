package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"vnic-go/internal/fn"
	"vnic-go/pkg/frame"
	"vnic-go/pkg/transport"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/urfave/cli/v2"
)

var probeCommand = &cli.Command{
	Name:      "probe",
	Usage:     "acts as a guest: sends an ARP request and a UDP datagram to a running vnicd",
	UsageText: "vnicd probe [options]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "device", Value: "127.0.0.1:60000", Usage: "vnicd listen address"},
		&cli.IntFlag{Name: "reply-port", Value: 60001, Usage: "local port vnicd sends replies to"},
		&cli.StringFlag{Name: "target-ip", Value: "10.0.2.2", Usage: "address to ARP for"},
		&cli.StringFlag{Name: "guest-mac", Value: "02:00:00:00:00:0f", Usage: "probe source MAC"},
		&cli.StringFlag{Name: "guest-ip", Value: "10.0.2.15", Usage: "probe source IP"},
		&cli.StringFlag{Name: "payload", Value: "hello", Usage: "UDP payload, empty skips the UDP send"},
		&cli.DurationFlag{Name: "timeout", Value: 2 * time.Second, Usage: "how long to wait for the ARP reply"},
	},
	Action: probeCmd,
}

func probeCmd(c *cli.Context) error {
	host, portStr, err := net.SplitHostPort(c.String("device"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("bad --device: %v", err), 1)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cli.Exit(fmt.Sprintf("bad --device port: %v", err), 1)
	}
	guestMAC, err := frame.ParseMAC(c.String("guest-mac"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	guestIP, err := frame.ParseAddr(c.String("guest-ip"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	target, err := frame.ParseAddr(c.String("target-ip"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	sess, err := transport.Open(c.Int("reply-port"), host, port)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	replies := make(chan []byte, 1)
	go sess.ReceiveLoop(ctx, func(b []byte) {
		select {
		case replies <- append([]byte(nil), b...):
		default:
		}
	})

	if err := sess.Send(frame.EncodeARPRequest(guestMAC, guestIP, target)); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("[ARP] Request sent: Who has %s? Tell %s\n", target, guestIP)

	var gatewayMAC frame.MAC
	select {
	case b := <-replies:
		mac, ok := describeReply(b)
		if !ok {
			return cli.Exit("unexpected reply", 1)
		}
		gatewayMAC = mac
	case <-ctx.Done():
		fmt.Printf("[ARP] No reply for %s within %s\n", target, c.Duration("timeout"))
		// Keep going; the UDP frame is still useful with a broadcast destination.
		gatewayMAC = frame.BroadcastMAC
	}

	payload := c.String("payload")
	if payload == "" {
		return nil
	}
	f := frame.EncodeIPv4UDP(
		frame.UDPEndpoint{MAC: guestMAC, IP: guestIP, Port: 12345},
		frame.UDPEndpoint{MAC: gatewayMAC, IP: target, Port: 53},
		[]byte(payload),
	)
	if err := sess.Send(f); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("[UDP] Sent %d bytes to %s:53 via %s\n", len(payload), target, fn.T(gatewayMAC.IsBroadcast(), "broadcast", gatewayMAC.String()))
	return nil
}

// describeReply decodes b with gopacket, independently of pkg/frame, and
// prints what came back.
func describeReply(b []byte) (frame.MAC, bool) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeEthernet, gopacket.Default)
	arp, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	if !ok || arp.Operation != layers.ARPReply || len(arp.SourceHwAddress) != 6 {
		fmt.Printf("[?] %d-byte frame: %s\n", len(b), pkt)
		return frame.MAC{}, false
	}
	var mac frame.MAC
	copy(mac[:], arp.SourceHwAddress)
	fmt.Printf("[ARP] Reply: %s is at %s (%d bytes)\n", net.IP(arp.SourceProtAddress), mac, len(b))
	return mac, true
}
