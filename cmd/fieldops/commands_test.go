package main

import (
	"context"
	"testing"

	"github.com/smallbiznis/fieldops/internal/syncengine"
	syncrundomain "github.com/smallbiznis/fieldops/internal/syncrun/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedSync struct {
	calls   []int
	total   int
	failAt  int
}

func (s *scriptedSync) RunBackfillChunk(_ context.Context, index int) (syncengine.ChunkResult, error) {
	s.calls = append(s.calls, index)
	if s.failAt >= 0 && index == s.failAt {
		return syncengine.ChunkResult{}, &syncengine.WindowError{
			RunType: syncrundomain.RunTypeBackfill,
			Chunk:   index,
			Err:     context.DeadlineExceeded,
		}
	}
	return syncengine.ChunkResult{
		Chunk:       index,
		ChunksTotal: s.total,
		Done:        index == s.total-1,
	}, nil
}

func (s *scriptedSync) RunIncremental(context.Context) (syncengine.ChunkResult, error) {
	return syncengine.ChunkResult{}, nil
}

func (s *scriptedSync) ListRuns(context.Context, int) ([]syncrundomain.SyncRun, error) {
	return nil, nil
}

func (s *scriptedSync) LatestRun(context.Context) (*syncrundomain.SyncRun, error) {
	return nil, syncrundomain.ErrNotFound
}

func TestRunBackfillWalksUntilDone(t *testing.T) {
	svc := &scriptedSync{total: 4, failAt: -1}

	require.NoError(t, runBackfill(context.Background(), svc, zap.NewNop(), 1))
	assert.Equal(t, []int{1, 2, 3}, svc.calls)
}

func TestRunBackfillStopsAtFailedWindow(t *testing.T) {
	svc := &scriptedSync{total: 4, failAt: 2}

	err := runBackfill(context.Background(), svc, zap.NewNop(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from 2")

	var windowErr *syncengine.WindowError
	require.ErrorAs(t, err, &windowErr)
	assert.Equal(t, 2, windowErr.Chunk)
	assert.Equal(t, []int{0, 1, 2}, svc.calls)
}

func TestRunBackfillHonoursCancellation(t *testing.T) {
	svc := &scriptedSync{total: 4, failAt: -1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, runBackfill(ctx, svc, zap.NewNop(), 0), context.Canceled)
	assert.Empty(t, svc.calls)
}
