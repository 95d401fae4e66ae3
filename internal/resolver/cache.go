package resolver

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache remembers successful resolutions for a fixed TTL. Concurrent misses
// for the same name share one lookup. Failures are not cached.
type Cache struct {
	next    Resolver
	entries *cache.Cache
	sf      singleflight.Group
}

// NewCache wraps next with a cache whose entries live for ttl.
func NewCache(next Resolver, ttl time.Duration) *Cache {
	return &Cache{
		next:    next,
		entries: cache.New(ttl, 2*ttl),
	}
}

func (c *Cache) Resolve(ctx context.Context, host string, port uint16) ([]netip.AddrPort, error) {
	if addrs, ok := literal(host, port); ok {
		return addrs, nil
	}

	key := strings.ToLower(host)
	if v, ok := c.entries.Get(key); ok {
		return withPort(v.([]netip.Addr), port), nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		// Detach from the caller's cancellation; other waiters may still
		// want the answer.
		addrs, err := c.next.Resolve(context.WithoutCancel(ctx), host, 0)
		if err != nil {
			return nil, err
		}
		ips := make([]netip.Addr, len(addrs))
		for i, a := range addrs {
			ips[i] = a.Addr()
		}
		c.entries.SetDefault(key, ips)
		return ips, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return withPort(res.Val.([]netip.Addr), port), nil
	}
}

// Len returns the number of cached names, including expired ones not yet
// evicted.
func (c *Cache) Len() int {
	return c.entries.ItemCount()
}

func withPort(ips []netip.Addr, port uint16) []netip.AddrPort {
	addrs := make([]netip.AddrPort, len(ips))
	for i, ip := range ips {
		addrs[i] = netip.AddrPortFrom(ip, port)
	}
	return addrs
}
