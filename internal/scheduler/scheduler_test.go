package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	"github.com/smallbiznis/fieldops/internal/syncengine"
	syncrundomain "github.com/smallbiznis/fieldops/internal/syncrun/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSync struct {
	mu        sync.Mutex
	calls     int
	actorType string
	actorID   string
	deadline  bool
	err       error
	onCall    func()
}

func (f *fakeSync) RunIncremental(ctx context.Context) (syncengine.ChunkResult, error) {
	f.mu.Lock()
	f.calls++
	f.actorType, f.actorID = obscontext.ActorFromContext(ctx)
	_, f.deadline = ctx.Deadline()
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	return syncengine.ChunkResult{Done: true, ChunksTotal: 1, JobsProcessed: 3, Errors: []string{"job 9: boom"}}, f.err
}

func (f *fakeSync) RunBackfillChunk(context.Context, int) (syncengine.ChunkResult, error) {
	return syncengine.ChunkResult{}, errors.New("unexpected backfill")
}

func (f *fakeSync) ListRuns(context.Context, int) ([]syncrundomain.SyncRun, error) {
	return nil, nil
}

func (f *fakeSync) LatestRun(context.Context) (*syncrundomain.SyncRun, error) {
	return nil, syncrundomain.ErrNotFound
}

func newTestScheduler(t *testing.T, svc *fakeSync, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		Log:    zap.NewNop(),
		Config: cfg,
		Sync:   svc,
		GenID:  node,
	})
}

func TestRunOnceActsAsSystemWithTimeout(t *testing.T) {
	svc := &fakeSync{}
	s := newTestScheduler(t, svc, Config{RunInterval: time.Minute})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "system", svc.actorType)
	assert.Equal(t, "scheduler", svc.actorID)
	assert.True(t, svc.deadline)
}

func TestRunOnceReturnsSyncError(t *testing.T) {
	svc := &fakeSync{err: &syncengine.WindowError{RunType: syncrundomain.RunTypeIncremental, Err: context.DeadlineExceeded}}
	s := newTestScheduler(t, svc, Config{})

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeSync{}
	svc.onCall = cancel
	s := newTestScheduler(t, svc, Config{RunInterval: time.Hour})

	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, 1, svc.calls)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RunInterval: 2 * time.Minute}.withDefaults()
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)

	cfg = Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 10*time.Minute, cfg.RunTimeout)
}
