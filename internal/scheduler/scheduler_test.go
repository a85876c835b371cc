package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan string, 16)}
}

func (r *fireRecorder) fire(_ context.Context, caseID string) {
	r.mu.Lock()
	r.fired = append(r.fired, caseID)
	r.mu.Unlock()
	r.ch <- caseID
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func (r *fireRecorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case id := <-r.ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deadline fire")
		return ""
	}
}

func TestScheduler_FiresAtDeadline(t *testing.T) {
	rec := newFireRecorder()
	s := New(rec.fire, 2, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown()

	s.Arm("case-1", time.Now().Add(20*time.Millisecond))
	assert.Equal(t, "case-1", rec.wait(t))
	assert.Equal(t, 0, s.Active())
}

func TestScheduler_RearmReplacesTimer(t *testing.T) {
	rec := newFireRecorder()
	s := New(rec.fire, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown()

	s.Arm("case-1", time.Now().Add(time.Hour))
	s.Arm("case-1", time.Now().Add(20*time.Millisecond))
	require.Equal(t, 1, s.Active())

	assert.Equal(t, "case-1", rec.wait(t))

	// The replaced timer must never fire.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	rec := newFireRecorder()
	s := New(rec.fire, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown()

	s.Arm("case-1", time.Now().Add(30*time.Millisecond))
	s.Cancel("case-1")
	s.Cancel("case-1")
	s.Cancel("never-armed")
	assert.Equal(t, 0, s.Active())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestScheduler_PastDeadlineFiresImmediately(t *testing.T) {
	rec := newFireRecorder()
	s := New(rec.fire, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown()

	s.Arm("case-1", time.Now().Add(-time.Minute))
	assert.Equal(t, "case-1", rec.wait(t))
}

func TestScheduler_ShutdownStopsTimers(t *testing.T) {
	rec := newFireRecorder()
	s := New(rec.fire, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.Arm("case-1", time.Now().Add(time.Hour))
	s.Shutdown()
	assert.Equal(t, 0, s.Active())
}
