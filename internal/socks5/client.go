package socks5

import (
	"errors"
	"fmt"
	"net"
	"slices"

	txsocks5 "github.com/txthinking/socks5"
)

// ErrAuthFailed is returned when an upstream server rejects the configured
// username and password.
var ErrAuthFailed = errors.New("socks5: upstream rejected credentials")

// Auth configures optional username/password authentication when dialing
// through an upstream SOCKS5 server.
type Auth struct {
	Username string
	Password string
}

// offers lists the methods sent in the greeting, no-auth first.
func (a Auth) offers() []byte {
	if a.Username == "" {
		return []byte{MethodNoAuth}
	}
	return []byte{MethodNoAuth, MethodUserPass}
}

// ClientDial negotiates with the SOCKS5 server on conn and asks it to CONNECT
// to address. A refusal by the server is returned as a [ReplyError] carrying
// the server's reply code.
func ClientDial(conn net.Conn, auth Auth, address string) error {
	if err := ClientNegotiate(conn, auth); err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	return ClientConnect(conn, address)
}

// ClientNegotiate sends the method greeting and completes whichever method the
// server picks. It fails with [ErrNoAcceptableMethods] if the server accepts
// none of them and with [ErrAuthFailed] if the credentials are refused.
func ClientNegotiate(conn net.Conn, auth Auth) error {
	offered := auth.offers()
	if _, err := txsocks5.NewNegotiationRequest(offered).WriteTo(conn); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}

	choice, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read method choice: %w", err)
	}

	switch method := choice.Method; {
	case method == MethodNoAcceptable:
		return ErrNoAcceptableMethods
	case !slices.Contains(offered, method):
		return fmt.Errorf("server chose method %#x that was not offered", method)
	case method == MethodUserPass:
		return auth.authenticate(conn)
	default:
		return nil
	}
}

// authenticate runs the RFC 1929 username/password subnegotiation.
func (a Auth) authenticate(conn net.Conn) error {
	req := txsocks5.NewUserPassNegotiationRequest([]byte(a.Username), []byte(a.Password))
	if _, err := req.WriteTo(conn); err != nil {
		return fmt.Errorf("send credentials: %w", err)
	}

	status, err := txsocks5.NewUserPassNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read auth status: %w", err)
	}
	if status.Status != txsocks5.UserPassStatusSuccess {
		return ErrAuthFailed
	}
	return nil
}

// ClientConnect sends a CONNECT request for address (host:port, where host may
// be a name or a literal) and waits for the reply. The bound address in the
// reply is discarded.
func ClientConnect(conn net.Conn, address string) error {
	atyp, host, port, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse address %q: %w", address, err)
	}
	if atyp == AtypDomain {
		// ParseAddress prefixes names with their length; NewRequest adds it
		// again.
		host = host[1:]
	}

	if _, err := txsocks5.NewRequest(CmdConnect, atyp, host, port).WriteTo(conn); err != nil {
		return fmt.Errorf("send connect %s: %w", address, err)
	}

	reply, err := txsocks5.NewReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read connect reply: %w", err)
	}
	if reply.Rep != RepSuccess {
		return fmt.Errorf("connect %s: %w", address, ReplyError(reply.Rep))
	}
	return nil
}
