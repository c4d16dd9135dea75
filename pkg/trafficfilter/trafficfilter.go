// Package trafficfilter decides which observed packets are reported.
// Rules are evaluated in order and the first match wins; with no match the
// packet is allowed.
package trafficfilter

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"
)

// Protocol is the observation class a rule applies to.
type Protocol int

const (
	ProtocolAny Protocol = iota
	ProtocolARP
	ProtocolUDP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolARP:
		return "arp"
	case ProtocolUDP:
		return "udp"
	default:
		return "any"
	}
}

// ParseProtocol maps "", "any", "arp" and "udp" to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "*":
		return ProtocolAny, nil
	case "arp":
		return ProtocolARP, nil
	case "udp":
		return ProtocolUDP, nil
	}
	return ProtocolAny, fmt.Errorf("trafficfilter: unknown protocol %q", s)
}

// Rule defines a single filtering rule.
type Rule struct {
	// Invalid prefixes match any source.
	Source netip.Prefix
	// Invalid prefixes match any destination.
	Destination netip.Prefix
	Protocol    Protocol
	Allow       bool
}

// ParsePrefix accepts a bare address (treated as /32) or CIDR; "" yields the
// zero Prefix, which matches anything.
func ParsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Prefix{}, nil
	}
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("trafficfilter: %w", err)
		}
		return p.Masked(), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("trafficfilter: %w", err)
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}

func (r Rule) matches(src, dst netip.Addr, proto Protocol) bool {
	if r.Source.IsValid() && !r.Source.Contains(src) {
		return false
	}
	if r.Destination.IsValid() && !r.Destination.Contains(dst) {
		return false
	}
	return r.Protocol == ProtocolAny || r.Protocol == proto
}

// Filter holds a set of filtering rules.
type Filter struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewFilter creates a Filter holding rules in order.
func NewFilter(rules ...Rule) *Filter {
	return &Filter{rules: append([]Rule(nil), rules...)}
}

// AddRule adds a new filtering rule to the filter.
func (f *Filter) AddRule(rule Rule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule)
}

// ClearRules removes all filtering rules.
func (f *Filter) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = f.rules[:0]
}

// Len reports the number of rules.
func (f *Filter) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rules)
}

// Allow reports whether an observation from src to dst should be reported.
// A nil Filter allows everything.
func (f *Filter) Allow(src, dst netip.Addr, proto Protocol) bool {
	if f == nil {
		return true
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, rule := range f.rules {
		if rule.matches(src, dst, proto) {
			return rule.Allow
		}
	}
	return true
}
