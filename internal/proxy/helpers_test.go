package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/die-net/socksd/internal/dialer"
)

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (*net.TCPConn, *net.TCPConn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	c, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	s := <-accepted
	if s == nil {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() {
		_ = c.Close()
		_ = s.Close()
	})
	return c.(*net.TCPConn), s.(*net.TCPConn)
}

type resolverFunc func(ctx context.Context, host string, port uint16) ([]netip.AddrPort, error)

func (f resolverFunc) Resolve(ctx context.Context, host string, port uint16) ([]netip.AddrPort, error) {
	return f(ctx, host, port)
}

func directConfig(t *testing.T) Config {
	t.Helper()

	d, err := dialer.NewDirectDialer(dialer.Config{DialTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return Config{Dialer: d}
}

// startServer serves cfg on a loopback listener until the test ends.
func startServer(t *testing.T, ctx context.Context, cfg Config) (*SOCKS5Server, string) {
	t.Helper()

	ln, err := ListenTCP(ctx, "127.0.0.1:0", net.KeepAliveConfig{Enable: false})
	if err != nil {
		t.Fatal(err)
	}

	srv := NewSOCKS5Server(ctx, cfg, zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	t.Cleanup(func() {
		_ = ln.Close()
		_ = srv.Close()
		<-done

		// Handlers log through t; let them finish before the test ends.
		deadline := time.Now().Add(2 * time.Second)
		for srv.Active() > 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	})
	return srv, ln.Addr().String()
}

func readExactly(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("read %d bytes: %v", n, err)
	}
	return buf
}

func connectRequest(ap netip.AddrPort) []byte {
	req := []byte{5, 1, 0}
	if ap.Addr().Is4() {
		a := ap.Addr().As4()
		req = append(append(req, 1), a[:]...)
	} else {
		a := ap.Addr().As16()
		req = append(append(req, 4), a[:]...)
	}
	return append(req, byte(ap.Port()>>8), byte(ap.Port()))
}

func domainRequest(host string, port uint16) []byte {
	req := append([]byte{5, 1, 0, 3, byte(len(host))}, host...)
	return append(req, byte(port>>8), byte(port))
}

func itoa(p uint16) string {
	return strconv.Itoa(int(p))
}

func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}
