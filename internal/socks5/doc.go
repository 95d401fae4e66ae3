// Package socks5 implements the server side of the SOCKS5 handshake (RFC 1928)
// as a pure, I/O-free state machine.
//
// Messages are interpreted in place through byte-slice view types
// ([Greeting], [ServerChoice], [UserPassRequest], [Status], [Request]). A
// [Greeter] accumulates bytes from however many reads the network delivers and
// reports when a complete greeting or CONNECT request has arrived, so callers
// never depend on message boundaries lining up with reads.
//
// The client helpers wrap github.com/txthinking/socks5 and are used when
// chaining through an upstream SOCKS5 proxy.
package socks5
