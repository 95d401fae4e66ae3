package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/die-net/socksd/internal/socks5"
)

// dialTarget connects to target. Domain targets are resolved with
// cfg.Resolver and each candidate is tried in order until one connects.
// Failures carry a *socks5.DialError with the reply code to send.
func dialTarget(ctx context.Context, cfg Config, target socks5.Target) (net.Conn, error) {
	if target.IsDomain() && cfg.Resolver == nil {
		conn, err := cfg.Dialer.DialContext(ctx, "tcp", target.String())
		if err != nil {
			return nil, &socks5.DialError{Code: socks5.ReplyCode(err), Err: err}
		}
		return conn, nil
	}

	candidates := []netip.AddrPort{target.AddrPort()}
	if target.IsDomain() {
		addrs, err := cfg.Resolver.Resolve(ctx, target.Host(), target.Port())
		if err != nil {
			return nil, &socks5.DialError{
				Code: socks5.RepHostUnreachable,
				Err:  fmt.Errorf("resolve %s: %w", target.Host(), err),
			}
		}
		candidates = addrs
	}

	var errs []error
	for _, ap := range candidates {
		conn, err := cfg.Dialer.DialContext(ctx, "tcp", ap.String())
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, &socks5.DialError{Code: socks5.RepHostUnreachable, Err: fmt.Errorf("%s: no addresses", target)}
	}

	// The last candidate's failure decides the reply code.
	return nil, &socks5.DialError{
		Code: socks5.ReplyCode(errs[len(errs)-1]),
		Err:  errors.Join(errs...),
	}
}

// successReply builds the reply for a connected target, reporting local as
// the bound address. Literal requests reuse the request buffer. Domain
// requests, and any request when fresh is set, get a new reply in the bound
// address's family.
//
// fresh is used when the outbound connection goes through an upstream proxy:
// local is then the address of the link to that proxy and its family is
// unrelated to the target's.
func successReply(step socks5.Step, local net.Addr, fresh bool) (socks5.Request, error) {
	bound := netip.AddrPortFrom(netip.IPv4Unspecified(), 0)
	if ta, ok := local.(*net.TCPAddr); ok {
		bound = ta.AddrPort()
	}

	if fresh || step.Target.IsDomain() {
		return socks5.NewReply(socks5.RepSuccess, bound)
	}

	reply := step.ReplyBuf
	if err := reply.SetBound(bound); err != nil {
		return nil, err
	}
	return reply, nil
}
