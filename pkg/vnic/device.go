// Package vnic is the virtual gateway NIC: it receives raw Ethernet frames
// over UDP, answers ARP for its identity and reports UDP traffic.
package vnic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vnic-go/pkg/frame"
	"vnic-go/pkg/log"
	"vnic-go/pkg/management"
	"vnic-go/pkg/reporter"
	"vnic-go/pkg/responder"
	"vnic-go/pkg/transport"
)

// Sender delivers one outbound frame.
type Sender interface {
	Send(frame []byte) error
}

type frameHandler func(eth frame.Ethernet, out Sender)

type Device struct {
	cfg      *Config
	identity responder.Identity
	reporter *reporter.Reporter

	handlers map[frame.Ethertype]frameHandler

	mu      sync.Mutex
	session *transport.Session
	api     *DeviceApi
	mgmt    *management.ManagementServer

	closeOnce sync.Once
	wg        sync.WaitGroup
	startTime time.Time
	stats     counters
}

// NewDevice validates cfg; sockets are opened by Open.
func NewDevice(cfg *Config, rep *reporter.Reporter) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id, err := cfg.Identity()
	if err != nil {
		return nil, err
	}
	d := &Device{
		cfg:       cfg,
		identity:  id,
		reporter:  rep,
		startTime: time.Now(),
	}
	d.handlers = map[frame.Ethertype]frameHandler{
		frame.EthertypeARP:  d.handleARP,
		frame.EthertypeIPv4: d.handleIPv4,
	}
	return d, nil
}

func (d *Device) Identity() responder.Identity { return d.identity }

func (d *Device) currentSession() *transport.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Open binds the transport and starts the optional HTTP API and management
// socket. Transport failures wrap transport.ErrOpen.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		return errors.New("vnic: device already open")
	}

	sess, err := transport.Open(d.cfg.ListenPort, d.cfg.PeerHost, d.cfg.PeerPort)
	if err != nil {
		return err
	}
	sess.SetMaxDatagramSize(d.cfg.MaxDatagramSize)
	d.session = sess

	if d.cfg.ManagementSocket != "" {
		d.mgmt = management.NewManagementServer(d.cfg.ManagementSocket)
		d.registerManagementCommands(d.mgmt)
		if err := d.mgmt.Start(); err != nil {
			log.Warn().Err(err).Msg("vnic: management socket disabled")
			d.mgmt = nil
		}
	}
	if d.cfg.APIListenAddr != "" {
		d.api = NewDeviceApi(d)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.api.Run(d.cfg.APIListenAddr)
		}()
	}

	log.Info().
		Stringer("listen", sess.LocalAddr()).
		Stringer("peer", sess.PeerAddr()).
		Stringer("identity", d.identity).
		Msg("vnic: device open")
	return nil
}

// LocalAddr is the bound receive address, or "" before Open.
func (d *Device) LocalAddr() string {
	if s := d.currentSession(); s != nil {
		return s.LocalAddr().String()
	}
	return ""
}

// Run processes frames until ctx is cancelled. Replies are sent before the
// next datagram is read.
func (d *Device) Run(ctx context.Context) error {
	sess := d.currentSession()
	if sess == nil {
		return errors.New("vnic: device not open")
	}
	log.Info().Msg("vnic: listener active, waiting for frames")
	sess.ReceiveLoop(ctx, func(buf []byte) {
		d.HandleFrame(buf, sess)
	})
	return nil
}

// Close stops the API and management socket and releases the transport.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		api, mgmt, sess := d.api, d.mgmt, d.session
		d.mu.Unlock()

		if api != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if e := api.Shutdown(ctx); e != nil {
				log.Warn().Err(e).Msg("vnic: api shutdown")
			}
			cancel()
		}
		if mgmt != nil {
			mgmt.Stop()
		}
		if sess != nil {
			err = sess.Close()
		}
		d.wg.Wait()
		log.Info().Msg("vnic: device closed")
	})
	return err
}

// HandleFrame decodes one datagram and acts on it. It never panics and
// never returns an error; every failure is counted.
func (d *Device) HandleFrame(buf []byte, out Sender) {
	d.stats.FramesReceived.Add(1)
	defer func() {
		if r := recover(); r != nil {
			d.stats.DispatchPanics.Add(1)
			log.Error().Interface("panic", r).Int("len", len(buf)).Msg("vnic: recovered from dispatch panic, frame dropped")
		}
	}()

	eth, err := frame.DecodeEthernet(buf)
	if err != nil {
		d.drop("ethernet", len(buf), err)
		return
	}
	handler, ok := d.handlers[eth.Type]
	if !ok {
		d.stats.FramesUnsupported.Add(1)
		log.Debug().Stringer("ethertype", eth.Type).Stringer("src", eth.Src).Msg("vnic: ignoring frame")
		return
	}
	handler(eth, out)
}

func (d *Device) handleARP(eth frame.Ethernet, out Sender) {
	req, err := frame.DecodeARP(eth.Payload)
	if err != nil {
		d.drop("arp", len(eth.Payload)+frame.EthernetHeaderSize, err)
		return
	}
	if req.Opcode != frame.ARPRequest {
		log.Debug().Uint16("opcode", req.Opcode).Stringer("sender", req.SenderIP).Msg("vnic: ignoring arp")
		return
	}

	d.stats.ARPRequests.Add(1)
	d.reporter.Report(reporter.ARPRequestObserved{
		SenderMAC: req.SenderMAC,
		SenderIP:  req.SenderIP,
		TargetIP:  req.TargetIP,
	})

	intent, ok := responder.Handle(req, d.identity)
	if !ok {
		return
	}
	if err := out.Send(intent.Frame()); err != nil {
		d.stats.SendErrors.Add(1)
		log.Warn().Err(err).Stringer("target", intent.TargetIP).Msg("vnic: arp reply not sent")
		return
	}
	d.stats.ARPRepliesSent.Add(1)
	d.reporter.Report(reporter.ARPReplySent{
		MAC:      d.identity.MAC,
		IP:       d.identity.IP,
		TargetIP: intent.TargetIP,
	})
}

func (d *Device) handleIPv4(eth frame.Ethernet, out Sender) {
	ip, err := frame.DecodeIPv4(eth.Payload)
	if err != nil {
		d.drop("ipv4", len(eth.Payload)+frame.EthernetHeaderSize, err)
		return
	}
	if ip.Protocol != frame.ProtoUDP {
		d.stats.FramesUnsupported.Add(1)
		log.Debug().Stringer("proto", ip.Protocol).Stringer("src", ip.Src).Msg("vnic: ignoring ipv4")
		return
	}
	udp, err := frame.DecodeUDP(ip.Payload)
	if err != nil {
		d.drop("udp", len(eth.Payload)+frame.EthernetHeaderSize, err)
		return
	}

	d.stats.UDPPackets.Add(1)
	d.reporter.Report(reporter.UDPPacketObserved{
		SrcIP:   ip.Src,
		SrcPort: udp.SrcPort,
		DstIP:   ip.Dst,
		DstPort: udp.DstPort,
		Payload: udp.Payload,
	})
}

func (d *Device) drop(layer string, n int, err error) {
	if errors.Is(err, frame.ErrMalformed) {
		d.stats.FramesMalformed.Add(1)
	} else {
		d.stats.FramesUnsupported.Add(1)
	}
	log.Debug().Err(err).Str("layer", layer).Int("len", n).Msg("vnic: frame dropped")
	d.reporter.Report(reporter.DecodeError{Layer: layer, Len: n, Err: err})
}

func (d *Device) registerManagementCommands(s *management.ManagementServer) {
	s.RegisterHandler("stats", "Show frame and event counters", func(args []string) (string, error) {
		return "OK: " + d.GetStats().String(), nil
	})
	s.RegisterHandler("identity", "Show the MAC/IP pair answered for", func(args []string) (string, error) {
		return fmt.Sprintf("OK: %s is at %s", d.identity.IP, d.identity.MAC), nil
	})
}
