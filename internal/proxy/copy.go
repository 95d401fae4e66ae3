package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrIdleTimeout is returned by CopyBidirectional when no bytes moved in
// either direction for the configured idle timeout.
var ErrIdleTimeout = errors.New("relay idle timeout")

// CopyBidirectional relays bytes between left (the client) and right (the
// target) until left reaches EOF, either side fails, ctx is canceled, or the
// connection sits idle for idleTimeout (zero disables the idle check).
//
// EOF from left ends the relay and closes both connections. EOF from right
// only shuts down left's write side, so the client can keep sending until it
// closes. Both connections are closed before returning. It reports the bytes
// copied each way.
func CopyBidirectional(ctx context.Context, left, right net.Conn, idleTimeout time.Duration) (leftToRight, rightToLeft int64, err error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	var idle *idleTracker
	if idleTimeout > 0 {
		idle = newIdleTracker(idleTimeout, closeBoth)
		defer idle.stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	// Canceling ctx or a failure in either direction unblocks the other.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	var clientDone atomic.Bool
	g.Go(func() error {
		var err error
		leftToRight, err = copyHalf(right, left, idle)
		if err == nil {
			clientDone.Store(true)
			closeBoth()
		}
		return err
	})
	g.Go(func() error {
		var err error
		rightToLeft, err = copyHalf(left, right, idle)
		if err != nil {
			// Closed underneath us because the client finished.
			if clientDone.Load() {
				return nil
			}
			return err
		}
		return closeWrite(left)
	})

	err = g.Wait()
	switch {
	case idle != nil && idle.expired.Load():
		err = ErrIdleTimeout
	case ctx.Err() != nil:
		err = ctx.Err()
	}
	return leftToRight, rightToLeft, err
}

// copyHalf copies src to dst until EOF or an error.
func copyHalf(dst, src net.Conn, idle *idleTracker) (int64, error) {
	var r io.Reader = src
	if idle != nil {
		r = &activityReader{r: src, idle: idle}
	}

	buf := copyBuffers.Get()
	defer copyBuffers.Put(buf)

	return io.CopyBuffer(dst, r, *buf)
}

func closeWrite(c net.Conn) error {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.Close()
}

type activityReader struct {
	r    io.Reader
	idle *idleTracker
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.idle.touch()
	}
	return n, err
}

// idleTracker calls onIdle once no activity has been recorded for timeout.
type idleTracker struct {
	timeout time.Duration
	onIdle  func()
	last    atomic.Int64
	expired atomic.Bool

	mu    sync.Mutex
	timer *time.Timer
}

func newIdleTracker(timeout time.Duration, onIdle func()) *idleTracker {
	t := &idleTracker{timeout: timeout, onIdle: onIdle}
	t.touch()

	t.mu.Lock()
	t.timer = time.AfterFunc(timeout, t.check)
	t.mu.Unlock()
	return t
}

func (t *idleTracker) touch() {
	t.last.Store(time.Now().UnixNano())
}

func (t *idleTracker) check() {
	t.mu.Lock()
	defer t.mu.Unlock()

	since := time.Since(time.Unix(0, t.last.Load()))
	if since < t.timeout {
		t.timer.Reset(t.timeout - since)
		return
	}
	t.expired.Store(true)
	t.onIdle()
}

func (t *idleTracker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer.Stop()
}
