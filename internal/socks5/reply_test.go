package socks5

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"testing"
)

func replySkeleton(t *testing.T, request []byte) Request {
	t.Helper()

	_, step, err := drive(NewGreeter(), [][]byte{greetingNoAuth, request})
	if err != nil {
		t.Fatal(err)
	}
	return step.ReplyBuf
}

func TestSetBoundIPv4(t *testing.T) {
	t.Parallel()

	r := replySkeleton(t, requestIPv4)
	if err := r.SetBound(netip.MustParseAddrPort("127.0.0.1:54321")); err != nil {
		t.Fatal(err)
	}

	if r.Version() != 0x05 || r.Status() != RepSuccess || r.Rsv() != 0x00 || r.Atyp() != AtypIPv4 {
		t.Fatalf("header=%v", []byte(r[:4]))
	}
	if !bytes.Equal(r.Addr(), []byte{127, 0, 0, 1}) {
		t.Fatalf("addr=%v", r.Addr())
	}
	if r.Port() != 54321 {
		t.Fatalf("port=%d", r.Port())
	}
	if len(r) != len(requestIPv4) {
		t.Fatalf("len=%d", len(r))
	}
}

func TestSetBoundIPv4Mapped(t *testing.T) {
	t.Parallel()

	r := replySkeleton(t, requestIPv4)
	if err := r.SetBound(netip.MustParseAddrPort("[::ffff:10.0.0.2]:1080")); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r.Addr(), []byte{10, 0, 0, 2}) || r.Port() != 1080 {
		t.Fatalf("reply=%v", []byte(r))
	}
}

func TestSetBoundIPv6(t *testing.T) {
	t.Parallel()

	r := replySkeleton(t, requestIPv6)
	bound := netip.MustParseAddrPort("[2001:db8::7]:443")
	if err := r.SetBound(bound); err != nil {
		t.Fatal(err)
	}
	want := bound.Addr().As16()
	if !bytes.Equal(r.Addr(), want[:]) || r.Port() != 443 {
		t.Fatalf("reply=%v", []byte(r))
	}
}

func TestSetBoundMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request []byte
		bound   string
	}{
		{name: "ipv4 request, ipv6 bound", request: requestIPv4, bound: "[2001:db8::1]:1"},
		{name: "ipv6 request, ipv4 bound", request: requestIPv6, bound: "192.0.2.1:1"},
		{name: "domain request", request: []byte{5, 1, 0, AtypDomain, 3, 'a', 'b', 'c', 0, 80}, bound: "192.0.2.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := replySkeleton(t, tt.request)
			before := bytes.Clone(r)

			err := r.SetBound(netip.MustParseAddrPort(tt.bound))
			if !errors.Is(err, ErrAddrLenMismatch) {
				t.Fatalf("err=%v want ErrAddrLenMismatch", err)
			}
			if !bytes.Equal(r, before) {
				t.Fatalf("reply modified on error: %v", []byte(r))
			}
		})
	}
}

func TestNewReply(t *testing.T) {
	t.Parallel()

	r, err := NewReply(RepSuccess, netip.MustParseAddrPort("192.0.2.10:5000"))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{5, 0, 0, AtypIPv4, 192, 0, 2, 10, 0x13, 0x88}
	if !bytes.Equal(r, want) {
		t.Fatalf("reply=%v want %v", []byte(r), want)
	}

	r, err = NewReply(RepSuccess, netip.MustParseAddrPort("[::1]:1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 22 || r.Atyp() != AtypIPv6 || r.Port() != 1 {
		t.Fatalf("reply=%v", []byte(r))
	}

	if _, err := NewReply(RepSuccess, netip.AddrPort{}); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestReplyCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want byte
	}{
		{name: "dial error", err: fmt.Errorf("wrapped: %w", &DialError{Code: RepNetworkUnreachable, Err: errors.New("x")}), want: RepNetworkUnreachable},
		{name: "upstream refusal", err: fmt.Errorf("connect: %w", ReplyError(RepNotAllowed)), want: RepNotAllowed},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "invalid.", IsNotFound: true}, want: RepHostUnreachable},
		{name: "timeout", err: &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}, want: RepHostUnreachable},
		{name: "other", err: errors.New("boom"), want: RepGeneralFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplyCode(tt.err); got != tt.want {
				t.Fatalf("ReplyCode=%#x want %#x", got, tt.want)
			}
		})
	}
}
