// Package proxy implements the listener side of the SOCKS5 server.
//
// It accepts client connections, drives the handshake with a
// [socks5.Greeter], connects to the requested target through a
// [dialer.Dialer], and relays bytes in both directions until either side is
// done.
package proxy
