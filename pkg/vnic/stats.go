package vnic

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

type counters struct {
	FramesReceived    atomic.Uint64
	FramesMalformed   atomic.Uint64
	FramesUnsupported atomic.Uint64
	DispatchPanics    atomic.Uint64
	ARPRequests       atomic.Uint64
	ARPRepliesSent    atomic.Uint64
	UDPPackets        atomic.Uint64
	SendErrors        atomic.Uint64
}

// Stats is a point-in-time copy of the device counters.
type Stats struct {
	FramesReceived    uint64 `json:"frames_received"`
	FramesMalformed   uint64 `json:"frames_malformed"`
	FramesUnsupported uint64 `json:"frames_unsupported"`
	DispatchPanics    uint64 `json:"dispatch_panics"`
	ARPRequests       uint64 `json:"arp_requests"`
	ARPRepliesSent    uint64 `json:"arp_replies_sent"`
	UDPPackets        uint64 `json:"udp_packets"`
	SendErrors        uint64 `json:"send_errors"`
	RecvErrors        uint64 `json:"recv_errors"`
	EventsReported    uint64 `json:"events_reported"`
	EventsFiltered    uint64 `json:"events_filtered"`
	Uptime            string `json:"uptime"`
}

// GetStats returns current counters
func (d *Device) GetStats() Stats {
	s := Stats{
		FramesReceived:    d.stats.FramesReceived.Load(),
		FramesMalformed:   d.stats.FramesMalformed.Load(),
		FramesUnsupported: d.stats.FramesUnsupported.Load(),
		DispatchPanics:    d.stats.DispatchPanics.Load(),
		ARPRequests:       d.stats.ARPRequests.Load(),
		ARPRepliesSent:    d.stats.ARPRepliesSent.Load(),
		UDPPackets:        d.stats.UDPPackets.Load(),
		SendErrors:        d.stats.SendErrors.Load(),
		Uptime:            time.Since(d.startTime).Round(time.Second).String(),
	}
	if sess := d.currentSession(); sess != nil {
		s.RecvErrors = sess.RecvErrors.Load()
	}
	if d.reporter != nil {
		s.EventsReported = d.reporter.Reported.Load()
		s.EventsFiltered = d.reporter.Filtered.Load()
	}
	return s
}

func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frames_received=%d\n", s.FramesReceived)
	fmt.Fprintf(&b, "frames_malformed=%d\n", s.FramesMalformed)
	fmt.Fprintf(&b, "frames_unsupported=%d\n", s.FramesUnsupported)
	fmt.Fprintf(&b, "dispatch_panics=%d\n", s.DispatchPanics)
	fmt.Fprintf(&b, "arp_requests=%d\n", s.ARPRequests)
	fmt.Fprintf(&b, "arp_replies_sent=%d\n", s.ARPRepliesSent)
	fmt.Fprintf(&b, "udp_packets=%d\n", s.UDPPackets)
	fmt.Fprintf(&b, "send_errors=%d\n", s.SendErrors)
	fmt.Fprintf(&b, "recv_errors=%d\n", s.RecvErrors)
	fmt.Fprintf(&b, "events_reported=%d\n", s.EventsReported)
	fmt.Fprintf(&b, "events_filtered=%d\n", s.EventsFiltered)
	fmt.Fprintf(&b, "uptime=%s", s.Uptime)
	return b.String()
}
