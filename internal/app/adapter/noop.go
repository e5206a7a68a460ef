package adapter

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Noop is a backend that plays nothing and always succeeds. It keeps
// enough state to answer Status truthfully, which makes it the
// default for headless and test runs.
type Noop struct {
	mu        sync.Mutex
	state     string
	track     string
	startedAt time.Time
	elapsed   time.Duration
}

// NewNoop creates the silent backend.
func NewNoop() *Noop {
	return &Noop{state: StateStopped}
}

func (n *Noop) Play(_ context.Context, uri string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StatePlaying
	n.track = uri
	n.startedAt = time.Now()
	n.elapsed = 0
	zlog.Debug().Msgf("noop: play %s", uri)
	return nil
}

func (n *Noop) Pause(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StatePlaying {
		n.elapsed += time.Since(n.startedAt)
		n.state = StatePaused
	}
	zlog.Debug().Msg("noop: pause")
	return nil
}

func (n *Noop) Resume(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StatePaused {
		n.startedAt = time.Now()
		n.state = StatePlaying
	}
	zlog.Debug().Msg("noop: resume")
	return nil
}

func (n *Noop) Stop(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StateStopped
	n.track = ""
	n.elapsed = 0
	zlog.Debug().Msg("noop: stop")
	return nil
}

func (n *Noop) Status(_ context.Context) (Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pos := n.elapsed
	if n.state == StatePlaying {
		pos += time.Since(n.startedAt)
	}
	return Status{State: n.state, Track: n.track, Position: pos}, nil
}

func (n *Noop) Close() error { return nil }
