//go:build !unix

package socks5

func errnoReplyCode(error) (byte, bool) {
	return 0, false
}
