package socks5

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAcceptableMethods is returned by callers after sending a
	// [MethodNoAcceptable] choice to the client.
	ErrNoAcceptableMethods = errors.New("socks5: no acceptable authentication methods")

	// ErrAddrLenMismatch reports an attempt to write a bound address whose
	// length differs from the address field of the reply buffer. This is an
	// invariant violation, not a protocol error.
	ErrAddrLenMismatch = errors.New("socks5: bound address does not fit reply address field")
)

// ReplyError is a request rejection carrying the reply code to send to the
// client before closing the connection.
type ReplyError byte

func (r ReplyError) Error() string {
	switch r {
	case RepSuccess:
		return "succeeded"
	case RepGeneralFailure:
		return "general SOCKS server failure"
	case RepNotAllowed:
		return "connection not allowed by ruleset"
	case RepNetworkUnreachable:
		return "network unreachable"
	case RepHostUnreachable:
		return "host unreachable"
	case RepConnectionRefused:
		return "connection refused"
	case RepTTLExpired:
		return "TTL expired"
	case RepCommandNotSupported:
		return "command not supported"
	case RepAddressTypeNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unknown SOCKS5 reply code: %#x", byte(r))
	}
}

// Code returns the reply code.
func (r ReplyError) Code() byte {
	return byte(r)
}

// UnsupportedVersionError is returned when a greeting carries a version other
// than 5. No reply is sent in that case.
type UnsupportedVersionError byte

func (v UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported SOCKS version: %#x", byte(v))
}

func (UnsupportedVersionError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

// DialError wraps an outbound connect or resolve failure with the reply code
// it maps to.
type DialError struct {
	Code byte
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("%s: %v", ReplyError(e.Code), e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}
