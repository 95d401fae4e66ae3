package socks5

import "encoding/binary"

// The view types below interpret bytes owned by someone else. Accessors do not
// check bounds beyond what Go does for them: callers must check completeness
// first, and indexing an incomplete message panics.

// Greeting is the client's method-selection message:
//
//	VER NMETHODS METHODS[NMETHODS]
type Greeting []byte

// Complete reports whether the whole greeting, including every declared
// method byte, is present.
func (g Greeting) Complete() bool {
	return len(g) >= 2 && len(g)-2 >= int(g[1])
}

// Len returns the encoded length of the greeting. Only valid once Complete.
func (g Greeting) Len() int {
	return 2 + int(g[1])
}

func (g Greeting) Version() byte  { return g[0] }
func (g Greeting) NMethods() byte { return g[1] }

// Methods returns the declared method codes.
func (g Greeting) Methods() []byte {
	return g[2:g.Len()]
}

// Offers reports whether the client listed method.
func (g Greeting) Offers(method byte) bool {
	for _, m := range g.Methods() {
		if m == method {
			return true
		}
	}
	return false
}

// ServerChoice is the server's method-selection reply: VER METHOD.
type ServerChoice []byte

// NewServerChoice returns a two-byte choice for method.
func NewServerChoice(method byte) ServerChoice {
	c := make(ServerChoice, 2)
	c.SetVersion(Version)
	c.SetMethod(method)
	return c
}

func (c ServerChoice) Version() byte     { return c[0] }
func (c ServerChoice) Method() byte      { return c[1] }
func (c ServerChoice) SetVersion(v byte) { c[0] = v }
func (c ServerChoice) SetMethod(m byte)  { c[1] = m }

// UserPassRequest is the RFC 1929 username/password sub-negotiation request:
//
//	VER ULEN UNAME[ULEN] PLEN PASSWD[PLEN]
//
// Only the layout is provided; no authentication flow uses it yet.
type UserPassRequest []byte

// Complete reports whether username and password have fully arrived.
func (r UserPassRequest) Complete() bool {
	if len(r) < 2 {
		return false
	}
	plenAt := 2 + int(r[1])
	if len(r) <= plenAt {
		return false
	}
	return len(r) >= plenAt+1+int(r[plenAt])
}

func (r UserPassRequest) Version() byte { return r[0] }
func (r UserPassRequest) ULen() byte    { return r[1] }

func (r UserPassRequest) Username() []byte {
	return r[2 : 2+int(r.ULen())]
}

func (r UserPassRequest) PLen() byte {
	return r[2+int(r.ULen())]
}

func (r UserPassRequest) Password() []byte {
	off := 3 + int(r.ULen())
	return r[off : off+int(r.PLen())]
}

// Status is a two-byte VER STATUS message. The server uses it as the minimal
// rejection reply.
type Status []byte

func (s Status) Version() byte     { return s[0] }
func (s Status) Status() byte      { return s[1] }
func (s Status) SetVersion(v byte) { s[0] = v }
func (s Status) SetStatus(c byte)  { s[1] = c }

// Request is a CONNECT request or, once patched, the matching reply. Both
// directions share one layout:
//
//	VER CMD|REP RSV ATYP ADDR PORT
//
// ADDR is 4 bytes for IPv4, 16 for IPv6 and a length byte plus name for a
// domain. The view must cover exactly one message.
type Request []byte

// RequestLen returns the encoded length of the request at the start of b, or
// ok=false if more bytes are needed to tell. An unrecognised address type is
// reported as complete once the fixed header is present, since its length
// cannot be known.
func RequestLen(b []byte) (n int, ok bool) {
	if len(b) < headerLen {
		return 0, false
	}
	switch b[3] {
	case AtypIPv4:
		n = headerLen + 4 + portLen
	case AtypIPv6:
		n = headerLen + 16 + portLen
	case AtypDomain:
		if len(b) < headerLen+1 {
			return 0, false
		}
		n = headerLen + 1 + int(b[headerLen]) + portLen
	default:
		return headerLen, true
	}
	if len(b) < n {
		return 0, false
	}
	return n, true
}

func (r Request) Version() byte { return r[0] }
func (r Request) Cmd() byte     { return r[1] }
func (r Request) Status() byte  { return r[1] }
func (r Request) Rsv() byte     { return r[2] }
func (r Request) Atyp() byte    { return r[3] }

// Addr returns the address field, everything between the header and the port.
func (r Request) Addr() []byte {
	return r[headerLen : len(r)-portLen]
}

func (r Request) Port() uint16 {
	return binary.BigEndian.Uint16(r[len(r)-portLen:])
}

func (r Request) SetVersion(v byte) { r[0] = v }
func (r Request) SetStatus(c byte)  { r[1] = c }
func (r Request) SetRsv(v byte)     { r[2] = v }
func (r Request) SetAtyp(a byte)    { r[3] = a }

func (r Request) SetPort(port uint16) {
	binary.BigEndian.PutUint16(r[len(r)-portLen:], port)
}
