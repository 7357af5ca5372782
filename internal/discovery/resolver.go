// Package discovery resolves a bare peer hostname to a UDP address through
// a caller-chosen DNS resolver, rather than the OS resolver — supplementing
// spec.md §4.7's address-agnostic open(addr) operation so a host can name a
// rendezvous/bootstrap peer instead of only a literal IP:port.
//
// Grounded on the teacher's use of github.com/miekg/dns's client-side
// primitives (dns.Msg, msg.SetQuestion, dns.Client.Exchange) in
// internal/protocol/dns_conn.go's startTxEngine/startRxEngine, here
// repurposed from tunneling application data inside TXT records to an
// ordinary A-record lookup.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks up peer hostnames against one configured DNS server,
// instead of trusting the OS resolver (which a host may not want to for a
// P2P rendezvous lookup behind a captive or filtered network).
type Resolver struct {
	Server  string // resolver address, "host:port"; port defaults to 53
	Client  *dns.Client
}

// NewResolver returns a Resolver querying server (host or host:port; port
// 53 assumed if omitted) with a 2-second exchange timeout.
func NewResolver(server string) *Resolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Resolver{
		Server: server,
		Client: &dns.Client{Timeout: 2 * time.Second},
	}
}

// ResolveAddr resolves name's A record through r.Server and returns the
// first answer combined with port. If name is already a literal IP
// address, it is used directly without a query.
func (r *Resolver) ResolveAddr(ctx context.Context, name string, port int) (*net.UDPAddr, error) {
	if ip := net.ParseIP(name); ip != nil {
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	in, _, err := r.Client.ExchangeContext(ctx, msg, r.Server)
	if err != nil {
		return nil, fmt.Errorf("discovery: query %s at %s: %w", name, r.Server, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("discovery: %s: rcode %s", name, dns.RcodeToString[in.Rcode])
	}
	for _, ans := range in.Answer {
		if a, ok := ans.(*dns.A); ok {
			return &net.UDPAddr{IP: a.A, Port: port}, nil
		}
	}
	return nil, fmt.Errorf("discovery: %s: no A record returned", name)
}
