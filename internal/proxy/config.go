package proxy

import (
	"net"
	"time"

	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/resolver"
)

type Config struct {
	// HandshakeTimeout bounds greeting and request negotiation. Zero
	// disables it.
	HandshakeTimeout time.Duration

	// IdleTimeout closes a relayed connection after no bytes moved in either
	// direction for this long. Zero disables it.
	IdleTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	Dialer dialer.Dialer

	// Resolver turns domain targets into candidate addresses. If nil,
	// domain targets are passed to Dialer unresolved, which lets an upstream
	// proxy resolve them.
	Resolver resolver.Resolver
}
