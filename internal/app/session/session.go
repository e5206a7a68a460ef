// Package session provides the authoritative playback session: one
// state machine, one queue, one backend adapter, shared by every
// client of the daemon.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/playd/playd/internal/app/adapter"
	"github.com/playd/playd/internal/domain/track"
)

// ErrQueueEmpty is returned when there is no track to play.
var ErrQueueEmpty = errors.New("queue is empty")

// Session is the aggregate root for playback. All transitions are
// serialized under one mutex; adapter calls run while the lock is
// held, and the adapter's timeout guard bounds how long that can be.
// Readers therefore always observe a fully committed transition.
type Session struct {
	mu      sync.Mutex
	state   State
	current *track.Track
	queue   []track.Track
	adapter adapter.Adapter
}

// Snapshot is a committed view of the session, taken atomically with
// the transition that produced it.
type Snapshot struct {
	State       State
	Track       *track.Track
	Position    time.Duration
	HasPosition bool
	QueueLen    int
}

// New creates the session around its one backend adapter.
func New(a adapter.Adapter) *Session {
	return &Session{
		state:   StateStopped,
		adapter: a,
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:    s.state,
		Track:    s.current,
		QueueLen: len(s.queue),
	}
}

// failLocked records an adapter failure: the session moves to Error
// rather than being left in an ambiguous intermediate state.
func (s *Session) failLocked(op string, err error) (Snapshot, error) {
	s.state = StateError
	zlog.Warn().Msgf("session: %s failed, entering Error state: %v", op, err)
	return s.snapshotLocked(), err
}

// Play starts or resumes playback of the current track.
// Already playing is an idempotent success. With no current track it
// returns ErrQueueEmpty: queued tracks are engaged only through an
// explicit Next, never pulled implicitly.
func (s *Session) Play(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StatePlaying {
		return s.snapshotLocked(), nil
	}
	if s.current == nil {
		return s.snapshotLocked(), ErrQueueEmpty
	}

	if s.state == StatePaused {
		if err := s.adapter.Resume(ctx); err != nil {
			return s.failLocked("resume", err)
		}
	} else {
		// Stopped or Error with a current track: re-engage the backend
		if err := s.adapter.Play(ctx, s.current.URI); err != nil {
			return s.failLocked("play", err)
		}
	}

	s.state = StatePlaying
	return s.snapshotLocked(), nil
}

// Pause pauses playback. Pausing anything but Playing is a no-op
// success (idempotent).
func (s *Session) Pause(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return s.snapshotLocked(), nil
	}

	if err := s.adapter.Pause(ctx); err != nil {
		return s.failLocked("pause", err)
	}

	s.state = StatePaused
	return s.snapshotLocked(), nil
}

// Next pops the front of the queue and plays it. An empty queue
// returns ErrQueueEmpty and leaves the state untouched.
func (s *Session) Next(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return s.snapshotLocked(), ErrQueueEmpty
	}

	next := s.queue[0]
	s.queue = s.queue[1:]
	s.current = &next

	if err := s.adapter.Play(ctx, next.URI); err != nil {
		return s.failLocked("next", err)
	}

	s.state = StatePlaying
	zlog.Info().Msgf("session: now playing %s (queue=%d)", next.URI, len(s.queue))
	return s.snapshotLocked(), nil
}

// Stop halts the backend and returns to Stopped, clearing the current
// track. This is the explicit recovery path out of Error.
func (s *Session) Stop(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Stop(ctx); err != nil {
		return s.failLocked("stop", err)
	}

	s.state = StateStopped
	s.current = nil
	return s.snapshotLocked(), nil
}

// Enqueue appends a track and returns the new queue length. The
// queue is unbounded.
func (s *Session) Enqueue(t track.Track) (int, error) {
	if t.URI == "" {
		return 0, errors.New("refusing to enqueue empty locator")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, t)
	zlog.Debug().Msgf("session: enqueued %s (queue=%d)", t.URI, len(s.queue))
	return len(s.queue), nil
}

// List returns a read-only snapshot of the queue in FIFO order.
func (s *Session) List() []track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]track.Track, len(s.queue))
	copy(out, s.queue)
	return out
}

// Status is a pure read: session state, current track and queue
// length, merged with the backend's best-effort position. A failing
// backend status never changes the state machine.
func (s *Session) Status(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	if st, err := s.adapter.Status(ctx); err == nil {
		snap.Position = st.Position
		snap.HasPosition = true
	}
	return snap
}

// Close stops playback and releases the backend resource. Called
// exactly once at daemon shutdown.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Stop(ctx); err != nil {
		zlog.Warn().Msgf("session: stop on shutdown failed: %v", err)
	}
	s.state = StateStopped
	s.current = nil
	return s.adapter.Close()
}
