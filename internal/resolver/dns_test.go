package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startDNSServer serves a tiny fixed zone over UDP and returns its address and
// a counter of queries received.
func startDNSServer(t *testing.T) (string, *atomic.Int32) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var queries atomic.Int32
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		queries.Add(1)

		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}

		switch q.Name {
		case "dual.test.":
			if q.Qtype == dns.TypeA {
				m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.1")})
			} else if q.Qtype == dns.TypeAAAA {
				m.Answer = append(m.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP("2001:db8::1")})
			}
		case "v4only.test.":
			if q.Qtype == dns.TypeA {
				m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.2")})
			}
		case "empty.test.":
		default:
			m.SetRcode(req, dns.RcodeNameError)
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})

	return pc.LocalAddr().String(), &queries
}

func TestDNSResolve(t *testing.T) {
	server, _ := startDNSServer(t)

	d, err := NewDNS(server, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		host     string
		want     []string
		notFound bool
	}{
		{name: "dual stack", host: "dual.test", want: []string{"192.0.2.1:443", "[2001:db8::1]:443"}},
		{name: "ipv4 only", host: "v4only.test", want: []string{"192.0.2.2:443"}},
		{name: "fqdn", host: "v4only.test.", want: []string{"192.0.2.2:443"}},
		{name: "literal", host: "198.51.100.7", want: []string{"198.51.100.7:443"}},
		{name: "nxdomain", host: "missing.test", notFound: true},
		{name: "no records", host: "empty.test", notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			addrs, err := d.Resolve(ctx, tt.host, 443)
			if tt.notFound {
				var dnsErr *net.DNSError
				if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
					t.Fatalf("err=%v want not-found DNSError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			var got []string
			for _, a := range addrs {
				got = append(got, a.String())
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestNewDNSDefaultPort(t *testing.T) {
	t.Parallel()

	d, err := NewDNS("127.0.0.1", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if d.Server() != "127.0.0.1:53" {
		t.Fatalf("server=%s", d.Server())
	}

	if _, err := NewDNS(":53", time.Second); err == nil {
		t.Fatal("expected error for empty host")
	}
}

func TestCacheOverDNS(t *testing.T) {
	server, queries := startDNSServer(t)

	d, err := NewDNS(server, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCache(d, time.Minute)

	ctx := context.Background()
	for _, port := range []uint16{80, 8080} {
		addrs, err := c.Resolve(ctx, "v4only.test", port)
		if err != nil {
			t.Fatal(err)
		}
		if want := netip.MustParseAddrPort("192.0.2.2:0"); len(addrs) != 1 || addrs[0] != netip.AddrPortFrom(want.Addr(), port) {
			t.Fatalf("addrs=%v", addrs)
		}
	}

	// One A and one AAAA query for the first lookup only.
	if n := queries.Load(); n != 2 {
		t.Fatalf("queries=%d want 2", n)
	}
}
