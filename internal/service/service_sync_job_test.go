package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spySyncService counts SyncAll calls so the tests can observe the ticker
// without real transports or stores.
type spySyncService struct {
	calls atomic.Int64
	err   error
}

func (s *spySyncService) Register(string, SyncStore) {}

func (s *spySyncService) SyncCollection(context.Context, string) error { return nil }

func (s *spySyncService) SyncAll(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestSyncJob_Start_CallsSyncAll(t *testing.T) {
	spy := &spySyncService{}
	job := NewSyncJob(spy)
	defer job.Stop()

	job.Start(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return spy.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond, "expected periodic SyncAll calls")
}

func TestSyncJob_Stop_HaltsTicker(t *testing.T) {
	spy := &spySyncService{}
	job := NewSyncJob(spy)

	job.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return spy.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	job.Stop()
	after := spy.calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, spy.calls.Load(), "no SyncAll calls after Stop")
}

func TestSyncJob_Stop_BeforeStart(t *testing.T) {
	job := NewSyncJob(&spySyncService{})

	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_DoubleStop(t *testing.T) {
	spy := &spySyncService{}
	job := NewSyncJob(spy)

	job.Start(context.Background(), 10*time.Millisecond)
	job.Stop()

	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_Restart(t *testing.T) {
	spy := &spySyncService{}
	job := NewSyncJob(spy)
	defer job.Stop()

	job.Start(context.Background(), 10*time.Millisecond)
	job.Stop()

	before := spy.calls.Load()
	job.Start(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return spy.calls.Load() > before
	}, time.Second, 5*time.Millisecond, "restarted job must resume ticking")
}

func TestSyncJob_Start_ReplacesRunningJob(t *testing.T) {
	spy := &spySyncService{}
	job := NewSyncJob(spy)
	defer job.Stop()

	job.Start(context.Background(), 10*time.Millisecond)
	job.Start(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return spy.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestSyncJob_ContextCancelStopsTicker(t *testing.T) {
	spy := &spySyncService{}
	job := NewSyncJob(spy)
	defer job.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return spy.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	after := spy.calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, spy.calls.Load(), "no SyncAll calls after context cancel")
}

func TestSyncJob_SyncErrorDoesNotStopJob(t *testing.T) {
	spy := &spySyncService{err: assert.AnError}
	job := NewSyncJob(spy)
	defer job.Stop()

	job.Start(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return spy.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond, "job keeps ticking despite SyncAll errors")
}
