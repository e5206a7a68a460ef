package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playd/playd/internal/app/adapter"
	"github.com/playd/playd/internal/domain/track"
)

// fakeAdapter records calls and fails on demand.
type fakeAdapter struct {
	mu        sync.Mutex
	playErr   error
	pauseErr  error
	resumeErr error
	stopErr   error
	statusErr error
	position  time.Duration

	played  []string
	pauses  int
	resumes int
	stops   int
}

func (f *fakeAdapter) Play(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, uri)
	return nil
}

func (f *fakeAdapter) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pauseErr != nil {
		return f.pauseErr
	}
	f.pauses++
	return nil
}

func (f *fakeAdapter) Resume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resumeErr != nil {
		return f.resumeErr
	}
	f.resumes++
	return nil
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stops++
	return nil
}

func (f *fakeAdapter) Status(context.Context) (adapter.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return adapter.Status{}, f.statusErr
	}
	return adapter.Status{State: adapter.StatePlaying, Position: f.position}, nil
}

func (f *fakeAdapter) Close() error { return nil }

func (f *fakeAdapter) setPlayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func mustTrack(t *testing.T, uri string) track.Track {
	t.Helper()
	trk, err := track.New(uri)
	require.NoError(t, err)
	return trk
}

func TestSession_PlayWithNothingCurrent(t *testing.T) {
	s := New(&fakeAdapter{})

	// Even with a non-empty queue, play does not pull from it.
	_, err := s.Enqueue(mustTrack(t, "a.mp3"))
	require.NoError(t, err)

	snap, err := s.Play(context.Background())
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.Equal(t, StateStopped, snap.State)
	assert.Equal(t, 1, snap.QueueLen)
}

func TestSession_Transitions(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAdapter{}
	s := New(fake)

	// enqueue leaves state untouched
	n, err := s.Enqueue(mustTrack(t, "a.mp3"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StateStopped, s.Status(ctx).State)

	// next pops the front and starts playing
	snap, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, snap.State)
	require.NotNil(t, snap.Track)
	assert.Equal(t, "a.mp3", snap.Track.URI)
	assert.Equal(t, 0, snap.QueueLen)
	assert.Equal(t, []string{"a.mp3"}, fake.played)

	// play while playing is an idempotent success
	snap, err = s.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, snap.State)
	assert.Len(t, fake.played, 1)

	// pause while playing pauses
	snap, err = s.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, snap.State)
	assert.Equal(t, 1, fake.pauses)

	// pause while paused is a no-op success
	snap, err = s.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, snap.State)
	assert.Equal(t, 1, fake.pauses)

	// play while paused resumes
	snap, err = s.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, 1, fake.resumes)
	assert.Len(t, fake.played, 1)

	// stop clears the current track
	snap, err = s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, snap.State)
	assert.Nil(t, snap.Track)
	assert.Equal(t, 1, fake.stops)
}

func TestSession_NextOnEmptyQueue(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeAdapter{})

	snap, err := s.Next(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.Equal(t, StateStopped, snap.State)

	// verified by a subsequent status call
	assert.Equal(t, StateStopped, s.Status(ctx).State)
}

func TestSession_EnqueueListFIFO(t *testing.T) {
	s := New(&fakeAdapter{})

	uris := []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"}
	for i, uri := range uris {
		n, err := s.Enqueue(mustTrack(t, uri))
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
	}

	listed := s.List()
	require.Len(t, listed, len(uris))
	for i, uri := range uris {
		assert.Equal(t, uri, listed[i].URI)
	}

	// List never mutates
	assert.Len(t, s.List(), len(uris))
}

func TestSession_EnqueueRejectsEmptyLocator(t *testing.T) {
	s := New(&fakeAdapter{})
	_, err := s.Enqueue(track.Track{})
	assert.Error(t, err)
	assert.Empty(t, s.List())
}

func TestSession_AdapterFailureAndRecovery(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAdapter{}
	s := New(fake)

	_, err := s.Enqueue(mustTrack(t, "a.mp3"))
	require.NoError(t, err)
	_, err = s.Enqueue(mustTrack(t, "b.mp3"))
	require.NoError(t, err)

	// play fails: session enters Error
	fake.setPlayErr(adapter.NewError(adapter.KindUnavailable, "backend gone"))
	snap, err := s.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, snap.State)

	// status reports Error and does not change it
	assert.Equal(t, StateError, s.Status(ctx).State)

	// a subsequent successful next recovers to Playing
	fake.setPlayErr(nil)
	snap, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, "b.mp3", snap.Track.URI)
}

func TestSession_PlayRecoversFromError(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAdapter{}
	s := New(fake)

	_, err := s.Enqueue(mustTrack(t, "a.mp3"))
	require.NoError(t, err)

	fake.setPlayErr(adapter.NewError(adapter.KindUnavailable, "backend gone"))
	_, err = s.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, s.Status(ctx).State)

	// play re-engages the adapter with the current track
	fake.setPlayErr(nil)
	snap, err := s.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, "a.mp3", snap.Track.URI)
}

func TestSession_StopRecoversFromError(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAdapter{}
	s := New(fake)

	_, err := s.Enqueue(mustTrack(t, "a.mp3"))
	require.NoError(t, err)
	fake.setPlayErr(adapter.NewError(adapter.KindBackend, "boom"))
	_, err = s.Next(ctx)
	require.Error(t, err)

	fake.setPlayErr(nil)
	snap, err := s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, snap.State)
	assert.Nil(t, snap.Track)
}

func TestSession_StatusMergesPosition(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAdapter{position: 42 * time.Second}
	s := New(fake)

	snap := s.Status(ctx)
	assert.True(t, snap.HasPosition)
	assert.Equal(t, 42*time.Second, snap.Position)

	// a failing backend status is merely absent, not an Error transition
	fake.statusErr = adapter.NewError(adapter.KindTimeout, "status timed out")
	snap = s.Status(ctx)
	assert.False(t, snap.HasPosition)
	assert.Equal(t, StateStopped, snap.State)
}

func TestSession_ConcurrentEnqueueLosesNothing(t *testing.T) {
	s := New(&fakeAdapter{})

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				trk, err := track.New("x.mp3")
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Enqueue(trk); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.List(), workers*perWorker)
}
