package socks5

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// MinimalReply returns the two-byte VER STATUS message sent when a request is
// rejected.
func MinimalReply(code byte) Status {
	s := make(Status, 2)
	s.SetVersion(Version)
	s.SetStatus(code)
	return s
}

// SetBound turns r, a reply skeleton produced by [Greeter.Feed], into a
// success reply reporting bound as the server's outbound address. The address
// field is rewritten in place and must already have the bound address's
// length; ATYP and the message length never change. A mismatch returns
// [ErrAddrLenMismatch] and leaves r untouched.
func (r Request) SetBound(bound netip.AddrPort) error {
	raw, err := addrBytes(bound.Addr())
	if err != nil {
		return err
	}
	if r.Atyp() == AtypDomain || len(r.Addr()) != len(raw) {
		return fmt.Errorf("%w: atyp %#x, bound %s", ErrAddrLenMismatch, r.Atyp(), bound)
	}

	copy(r.Addr(), raw)
	r.SetPort(bound.Port())
	r.SetVersion(Version)
	r.SetStatus(RepSuccess)
	r.SetRsv(0)
	return nil
}

// NewReply builds a fresh reply carrying bound in its own address family.
// It is used for domain requests, whose address field cannot hold an IP.
func NewReply(code byte, bound netip.AddrPort) (Request, error) {
	raw, err := addrBytes(bound.Addr())
	if err != nil {
		return nil, err
	}

	r := make(Request, headerLen+len(raw)+portLen)
	r.SetVersion(Version)
	r.SetStatus(code)
	if len(raw) == 4 {
		r.SetAtyp(AtypIPv4)
	} else {
		r.SetAtyp(AtypIPv6)
	}
	copy(r.Addr(), raw)
	r.SetPort(bound.Port())
	return r, nil
}

func addrBytes(ip netip.Addr) ([]byte, error) {
	ip = ip.Unmap()
	switch {
	case ip.Is4():
		a := ip.As4()
		return a[:], nil
	case ip.Is6():
		a := ip.As16()
		return a[:], nil
	default:
		return nil, fmt.Errorf("socks5: invalid bound address %v", ip)
	}
}

// ReplyCode maps an outbound resolve or connect failure to the closest reply
// code.
func ReplyCode(err error) byte {
	var de *DialError
	if errors.As(err, &de) {
		return de.Code
	}
	var re ReplyError
	if errors.As(err, &re) {
		return byte(re)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return RepHostUnreachable
	}
	if code, ok := errnoReplyCode(err); ok {
		return code
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return RepHostUnreachable
	}
	return RepGeneralFailure
}
