package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"
)

// ErrNoAddresses is returned when a name resolves to no usable address.
var ErrNoAddresses = errors.New("resolver: no addresses")

// Resolver resolves a host name to one or more candidate endpoints, in the
// order they should be tried.
type Resolver interface {
	Resolve(ctx context.Context, host string, port uint16) ([]netip.AddrPort, error)
}

type Config struct {
	// Server is a DNS server address (host or host:port). Empty uses the
	// system resolver.
	Server string

	// Timeout bounds a single DNS exchange when Server is set.
	Timeout time.Duration

	// CacheTTL enables caching of resolved addresses when positive.
	CacheTTL time.Duration
}

// New builds the Resolver described by cfg.
func New(cfg Config) (Resolver, error) {
	var r Resolver = NewSystem()
	if cfg.Server != "" {
		d, err := NewDNS(cfg.Server, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		r = d
	}

	if cfg.CacheTTL > 0 {
		r = NewCache(r, cfg.CacheTTL)
	}
	return r, nil
}

// literal short-circuits names that are already IP addresses.
func literal(host string, port uint16) ([]netip.AddrPort, bool) {
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil, false
	}
	return []netip.AddrPort{netip.AddrPortFrom(ip.Unmap(), port)}, true
}

// System resolves through net.Resolver.
type System struct {
	r *net.Resolver
}

func NewSystem() *System {
	return &System{r: net.DefaultResolver}
}

func (s *System) Resolve(ctx context.Context, host string, port uint16) ([]netip.AddrPort, error) {
	if addrs, ok := literal(host, port); ok {
		return addrs, nil
	}

	ips, err := s.r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, ErrNoAddresses
	}

	addrs := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, netip.AddrPortFrom(ip.Unmap(), port))
	}
	return addrs, nil
}
