package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/socks5"
)

const handshakeReadSize = 512

// SOCKS5Server serves the no-auth CONNECT subset of SOCKS5.
type SOCKS5Server struct {
	ctx    context.Context
	cfg    Config
	logger zerolog.Logger

	// chained is set when outbound connections go through an upstream
	// SOCKS5 proxy.
	chained bool

	nextID atomic.Uint64
	conns  *xsync.MapOf[uint64, net.Conn]
	closed atomic.Bool
}

// NewSOCKS5Server returns a server that relays until ctx is canceled.
func NewSOCKS5Server(ctx context.Context, cfg Config, logger zerolog.Logger) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	_, chained := cfg.Dialer.(*dialer.SOCKS5ProxyDialer)
	return &SOCKS5Server{
		ctx:     ctx,
		cfg:     cfg,
		logger:  logger,
		chained: chained,
		conns:   xsync.NewMapOf[uint64, net.Conn](),
	}
}

// Serve accepts connections on ln and handles each on its own goroutine.
// It returns nil once the server's context is done or Close was called, and
// the accept error otherwise.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || s.closed.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		id := s.nextID.Add(1)
		s.conns.Store(id, c)
		if s.closed.Load() {
			// Close may have ranged over conns before this Store.
			s.conns.Delete(id)
			_ = c.Close()
			continue
		}
		go func() {
			defer s.conns.Delete(id)
			s.handle(id, c)
		}()
	}
}

// Active returns the number of client connections being served.
func (s *SOCKS5Server) Active() int {
	return s.conns.Size()
}

// Close closes every client connection being served. The listener is owned
// by the caller.
func (s *SOCKS5Server) Close() error {
	s.closed.Store(true)
	s.conns.Range(func(_ uint64, c net.Conn) bool {
		_ = c.Close()
		return true
	})
	return nil
}

func (s *SOCKS5Server) handle(id uint64, conn net.Conn) {
	defer conn.Close()

	log := s.logger.With().Uint64("conn", id).Stringer("client", conn.RemoteAddr()).Logger()

	if s.cfg.HandshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	}

	step, err := negotiate(conn)
	if err != nil {
		var re socks5.ReplyError
		if errors.As(err, &re) {
			_, _ = conn.Write(socks5.MinimalReply(re.Code()))
		}
		log.Debug().Err(err).Msg("handshake failed")
		return
	}
	_ = conn.SetDeadline(time.Time{})

	log = log.With().Stringer("target", step.Target).Logger()

	out, err := dialTarget(s.ctx, s.cfg, step.Target)
	if err != nil {
		code := socks5.ReplyCode(err)
		_, _ = conn.Write(socks5.MinimalReply(code))
		log.Debug().Err(err).Uint8("rep", code).Msg("connect failed")
		return
	}
	defer out.Close()

	reply, err := successReply(step, out.LocalAddr(), s.chained)
	if err != nil {
		_, _ = conn.Write(socks5.MinimalReply(socks5.RepGeneralFailure))
		log.Error().Err(err).Msg("build reply")
		return
	}
	if _, err := conn.Write(reply); err != nil {
		log.Debug().Err(err).Msg("write reply")
		return
	}

	if len(step.Leftover) > 0 {
		if _, err := out.Write(step.Leftover); err != nil {
			log.Debug().Err(err).Msg("forward pipelined data")
			return
		}
	}

	up, down, err := CopyBidirectional(s.ctx, conn, out, s.cfg.IdleTimeout)
	ev := log.Debug()
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
		ev = ev.Err(err)
	}
	ev.Int64("up", up+int64(len(step.Leftover))).Int64("down", down).Msg("relay closed")
}

// negotiate reads from conn until the handshake completes, writing method
// choices as they are produced.
func negotiate(conn net.Conn) (socks5.Step, error) {
	g := socks5.NewGreeter()
	buf := make([]byte, handshakeReadSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			step, ferr := g.Feed(buf[:n])
			for ferr == nil && step.Kind == socks5.ImmediateReply {
				if _, werr := conn.Write(step.Reply); werr != nil {
					return socks5.Step{}, fmt.Errorf("write method choice: %w", werr)
				}
				if step.Reply.Method() == socks5.MethodNoAcceptable {
					return socks5.Step{}, socks5.ErrNoAcceptableMethods
				}
				step, ferr = g.Feed(nil)
			}
			if ferr != nil {
				return socks5.Step{}, ferr
			}
			if step.Kind == socks5.HandshakeComplete {
				return step, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return socks5.Step{}, fmt.Errorf("read handshake in state %s: %w", g.State(), err)
		}
	}
}
