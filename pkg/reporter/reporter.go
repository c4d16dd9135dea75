// Package reporter turns device events into human-readable lines and fans
// them out to sinks.
package reporter

import (
	"net/netip"
	"sync/atomic"

	"vnic-go/pkg/trafficfilter"
)

// Options configure a Reporter.
type Options struct {
	Format PayloadFormat
	// Filter limits which ARP and UDP observations reach the sinks. Nil allows all.
	Filter *trafficfilter.Filter
	// DecodeErrors enables DecodeError events; they are dropped otherwise.
	DecodeErrors bool
	Sinks        []Sink
}

// Reporter is safe for concurrent use once built. Sinks are called
// synchronously in order.
type Reporter struct {
	format       PayloadFormat
	filter       *trafficfilter.Filter
	decodeErrors bool
	sinks        []Sink

	Reported atomic.Uint64
	Filtered atomic.Uint64
}

func New(opts Options) *Reporter {
	if opts.Format == "" {
		opts.Format = PayloadAuto
	}
	return &Reporter{
		format:       opts.Format,
		filter:       opts.Filter,
		decodeErrors: opts.DecodeErrors,
		sinks:        append([]Sink(nil), opts.Sinks...),
	}
}

// Report renders e once and passes it to every sink unless filtered.
// A nil Reporter discards everything.
func (r *Reporter) Report(e Event) {
	if r == nil {
		return
	}
	if !r.allowed(e) {
		r.Filtered.Add(1)
		return
	}
	line := e.Line(r.format)
	for _, s := range r.sinks {
		s.Emit(e, line)
	}
	r.Reported.Add(1)
}

func (r *Reporter) allowed(e Event) bool {
	switch v := e.(type) {
	case ARPRequestObserved:
		return r.filter.Allow(netip.AddrFrom4(v.SenderIP), netip.AddrFrom4(v.TargetIP), trafficfilter.ProtocolARP)
	case ARPReplySent:
		return r.filter.Allow(netip.AddrFrom4(v.IP), netip.AddrFrom4(v.TargetIP), trafficfilter.ProtocolARP)
	case UDPPacketObserved:
		return r.filter.Allow(netip.AddrFrom4(v.SrcIP), netip.AddrFrom4(v.DstIP), trafficfilter.ProtocolUDP)
	case DecodeError:
		return r.decodeErrors
	}
	return true
}
