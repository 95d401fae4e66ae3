package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// DNS resolves names by querying a single DNS server for A and AAAA records.
// Truncated UDP answers are retried over TCP.
type DNS struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
}

// NewDNS returns a resolver querying server, which may omit the port.
func NewDNS(server string, timeout time.Duration) (*DNS, error) {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	host, _, err := net.SplitHostPort(server)
	if err != nil || host == "" {
		return nil, fmt.Errorf("invalid dns server %q", server)
	}

	return &DNS{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}, nil
}

// Server returns the host:port being queried.
func (d *DNS) Server() string {
	return d.server
}

// Resolve returns IPv4 candidates before IPv6 ones. It fails only if neither
// query produced an address.
func (d *DNS) Resolve(ctx context.Context, host string, port uint16) ([]netip.AddrPort, error) {
	if addrs, ok := literal(host, port); ok {
		return addrs, nil
	}

	var (
		v4, v6     []netip.Addr
		err4, err6 error
		g          errgroup.Group
	)
	g.Go(func() error {
		v4, err4 = d.lookup(ctx, host, dns.TypeA)
		return nil
	})
	g.Go(func() error {
		v6, err6 = d.lookup(ctx, host, dns.TypeAAAA)
		return nil
	})
	_ = g.Wait()

	addrs := make([]netip.AddrPort, 0, len(v4)+len(v6))
	for _, ip := range append(v4, v6...) {
		addrs = append(addrs, netip.AddrPortFrom(ip, port))
	}
	if len(addrs) > 0 {
		return addrs, nil
	}

	if err := errors.Join(err4, err6); err != nil {
		return nil, err
	}
	return nil, &net.DNSError{Err: ErrNoAddresses.Error(), Name: host, Server: d.server, IsNotFound: true}
}

func (d *DNS) lookup(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	in, _, err := d.udp.ExchangeContext(ctx, m, d.server)
	if err == nil && in.Truncated {
		in, _, err = d.tcp.ExchangeContext(ctx, m, d.server)
	}
	if err != nil {
		return nil, fmt.Errorf("dns %s %s: %w", dns.TypeToString[qtype], host, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, &net.DNSError{Err: "no such host", Name: host, Server: d.server, IsNotFound: true}
	default:
		return nil, &net.DNSError{Err: dns.RcodeToString[in.Rcode], Name: host, Server: d.server}
	}

	var ips []netip.Addr
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			if ip, ok := netip.AddrFromSlice(v.A); ok {
				ips = append(ips, ip.Unmap())
			}
		case *dns.AAAA:
			if ip, ok := netip.AddrFromSlice(v.AAAA); ok {
				ips = append(ips, ip)
			}
		}
	}
	return ips, nil
}
