package proxy

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestListenTCPKeepAlive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln, err := ListenTCP(ctx, "127.0.0.1:0", net.KeepAliveConfig{Enable: true, Idle: 30 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if _, ok := ln.(*KeepAliveListener); !ok {
		t.Fatalf("listener type %T", ln)
	}

	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err == nil {
			_ = c.Close()
		}
	}()

	c, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok := c.(*net.TCPConn); !ok {
		t.Fatalf("accepted %T", c)
	}
}

func TestListenTCPBadAddress(t *testing.T) {
	t.Parallel()

	if _, err := ListenTCP(context.Background(), "256.0.0.1:0", net.KeepAliveConfig{}); err == nil {
		t.Fatal("expected error")
	}
}
