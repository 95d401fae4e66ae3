package socks5

import (
	"net"
	"net/netip"
	"strconv"
)

// Target is the destination named by a CONNECT request: either a literal
// address or a domain name that still has to be resolved.
type Target struct {
	addr netip.AddrPort
	host string
	port uint16
}

// AddrTarget returns a literal-address target.
func AddrTarget(ap netip.AddrPort) Target {
	return Target{addr: ap, port: ap.Port()}
}

// HostTarget returns a target that needs resolving.
func HostTarget(host string, port uint16) Target {
	return Target{host: host, port: port}
}

// IsDomain reports whether the target is a name rather than a literal.
func (t Target) IsDomain() bool { return t.host != "" }

// AddrPort returns the literal address. It is invalid for domain targets.
func (t Target) AddrPort() netip.AddrPort { return t.addr }

func (t Target) Host() string { return t.host }
func (t Target) Port() uint16 { return t.port }

func (t Target) String() string {
	if t.IsDomain() {
		return net.JoinHostPort(t.host, strconv.Itoa(int(t.port)))
	}
	return t.addr.String()
}

// ValidateRequest inspects a complete request and extracts its target.
// Rejections are returned as a [ReplyError] holding the code to send back.
func ValidateRequest(r Request) (Target, error) {
	if len(r) < headerLen || r.Version() != Version {
		return Target{}, ReplyError(RepGeneralFailure)
	}
	if r.Cmd() != CmdConnect {
		return Target{}, ReplyError(RepCommandNotSupported)
	}

	switch r.Atyp() {
	case AtypIPv4:
		if len(r) != headerLen+4+portLen {
			return Target{}, ReplyError(RepGeneralFailure)
		}
		addr := netip.AddrFrom4([4]byte(r.Addr()))
		return AddrTarget(netip.AddrPortFrom(addr, r.Port())), nil
	case AtypIPv6:
		if len(r) != headerLen+16+portLen {
			return Target{}, ReplyError(RepGeneralFailure)
		}
		addr := netip.AddrFrom16([16]byte(r.Addr()))
		return AddrTarget(netip.AddrPortFrom(addr, r.Port())), nil
	case AtypDomain:
		if len(r) < headerLen+1+portLen {
			return Target{}, ReplyError(RepGeneralFailure)
		}
		a := r.Addr()
		name := a[1:]
		if len(name) == 0 || int(a[0]) != len(name) {
			return Target{}, ReplyError(RepGeneralFailure)
		}
		return HostTarget(string(name), r.Port()), nil
	default:
		return Target{}, ReplyError(RepAddressTypeNotSupported)
	}
}
