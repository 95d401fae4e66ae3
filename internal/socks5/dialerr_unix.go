//go:build unix

package socks5

import (
	"errors"

	"golang.org/x/sys/unix"
)

func errnoReplyCode(err error) (byte, bool) {
	switch {
	case errors.Is(err, unix.ECONNREFUSED):
		return RepConnectionRefused, true
	case errors.Is(err, unix.ENETUNREACH), errors.Is(err, unix.ENETDOWN):
		return RepNetworkUnreachable, true
	case errors.Is(err, unix.EHOSTUNREACH), errors.Is(err, unix.EHOSTDOWN), errors.Is(err, unix.ETIMEDOUT):
		return RepHostUnreachable, true
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return RepNotAllowed, true
	default:
		return 0, false
	}
}
