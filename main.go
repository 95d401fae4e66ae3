package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/logging"
	"github.com/die-net/socksd/internal/proxy"
	"github.com/die-net/socksd/internal/resolver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socksIP   = pflag.IP("socks-ip", nil, "IP address for the SOCKS5 server to listen on. Unset disables the server.")
		socksPort = pflag.Uint16("socks-port", 0, "TCP port for the SOCKS5 server. Requires --socks-ip.")

		upstream = pflag.String("upstream", defaultUpstream(), "Outbound target URL: direct:// | socks5://[user:pass@]host:port")

		debugListen      = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout      = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for each outbound TCP connect and upstream negotiation")
		handshakeTimeout = pflag.Duration("handshake-timeout", 0, "Timeout for a client to complete SOCKS5 negotiation. 0 disables.")
		idleTimeout      = pflag.Duration("idle-timeout", 0, "Close relayed connections idle for this long. 0 disables.")
		dnsServer        = pflag.String("dns-server", "", "DNS server (host[:port]) for resolving domain targets. Empty uses the system resolver.")
		dnsCacheTTL      = pflag.Duration("dns-cache-ttl", 0, "Cache resolved addresses for this long. 0 disables.")
		tcpKeepAlive     = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		verbose          = pflag.Bool("verbose", false, "Enable per-connection logging")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	logger := logging.New(os.Stderr, *verbose)

	listenAddr, enabled := socksListenAddr(*socksIP, pflag.CommandLine.Changed("socks-port"), *socksPort)
	if !enabled {
		logger.Info().Msg("socks5 server disabled (set both --socks-ip and --socks-port)")
		return nil
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	cfg := proxy.Config{
		HandshakeTimeout: *handshakeTimeout,
		IdleTimeout:      *idleTimeout,
		KeepAlive:        ka,
	}

	dialCfg := dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *dialTimeout,
		KeepAlive:          ka,
	}

	cfg.Dialer, err = dialer.New(dialCfg, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	// An upstream proxy resolves names itself.
	if _, chained := cfg.Dialer.(*dialer.SOCKS5ProxyDialer); !chained {
		cfg.Resolver, err = resolver.New(resolver.Config{
			Server:   *dnsServer,
			Timeout:  *dialTimeout,
			CacheTTL: *dnsCacheTTL,
		})
		if err != nil {
			return fmt.Errorf("invalid --dns-server: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *debugListen != "" {
		if err := serveDebug(ctx, g, *debugListen, ka, logger); err != nil {
			return err
		}
	}

	ln, err := proxy.ListenTCP(ctx, listenAddr, ka)
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	srv := proxy.NewSOCKS5Server(ctx, cfg, logger)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
		_ = srv.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})

	logger.Info().Str("addr", ln.Addr().String()).Str("upstream", *upstream).Msg("socks5 proxy listening")

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	logger.Info().Msg("shutting down")
	return err
}

func serveDebug(ctx context.Context, g *errgroup.Group, addr string, ka net.KeepAliveConfig, logger zerolog.Logger) error {
	debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
	lc := net.ListenConfig{KeepAliveConfig: ka}
	debugLn, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("debug listen: %w", err)
	}
	context.AfterFunc(ctx, func() {
		_ = debugSrv.Close()
		_ = debugLn.Close()
	})

	g.Go(func() error {
		if err := debugSrv.Serve(debugLn); err != nil {
			return fmt.Errorf("debug serve: %w", err)
		}
		return nil
	})
	logger.Info().Str("addr", debugLn.Addr().String()).Msg("debug listening")
	return nil
}

// socksListenAddr combines --socks-ip and --socks-port. The server is enabled
// only when both are set; missing either one disables it.
func socksListenAddr(ip net.IP, portSet bool, port uint16) (string, bool) {
	if ip == nil || !portSet {
		return "", false
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(int(port))), true
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return net.KeepAliveConfig{}, errors.New("empty")
	case "on":
		return net.KeepAliveConfig{Enable: true}, nil
	case "off":
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositive(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositive(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositive(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     time.Duration(keepIdle) * time.Second,
		Interval: time.Duration(keepIntvl) * time.Second,
		Count:    keepCnt,
	}, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}

	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}

	return "direct://"
}
