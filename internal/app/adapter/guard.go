package adapter

import (
	"context"
	"time"
)

// guard bounds every adapter call with a timeout so a hung backend
// cannot hold the session lock indefinitely. A call that exceeds the
// deadline is reported as KindTimeout; the backend goroutine is left
// to finish on its own since subprocess I/O cannot be interrupted
// reliably.
type guard struct {
	inner   Adapter
	timeout time.Duration
}

// WithTimeout wraps an adapter so that every operation fails with a
// KindTimeout error after d. Zero or negative d returns the adapter
// unwrapped.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return &guard{inner: a, timeout: d}
}

func (g *guard) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return WrapError(KindTimeout, ctx.Err(), op+" timed out")
	}
}

func (g *guard) Play(ctx context.Context, uri string) error {
	return g.run(ctx, "play", func(ctx context.Context) error {
		return g.inner.Play(ctx, uri)
	})
}

func (g *guard) Pause(ctx context.Context) error {
	return g.run(ctx, "pause", g.inner.Pause)
}

func (g *guard) Resume(ctx context.Context) error {
	return g.run(ctx, "resume", g.inner.Resume)
}

func (g *guard) Stop(ctx context.Context) error {
	return g.run(ctx, "stop", g.inner.Stop)
}

func (g *guard) Status(ctx context.Context) (Status, error) {
	var st Status
	err := g.run(ctx, "status", func(ctx context.Context) error {
		var ierr error
		st, ierr = g.inner.Status(ctx)
		return ierr
	})
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

func (g *guard) Close() error {
	return g.inner.Close()
}
