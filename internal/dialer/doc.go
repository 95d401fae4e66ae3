// Package dialer provides the outbound connect abstraction used by the SOCKS5
// server.
//
// Dialers implement a small interface (DialContext) and either connect
// directly or chain through an upstream SOCKS5 proxy.
package dialer
