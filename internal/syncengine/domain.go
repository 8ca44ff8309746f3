package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/fieldops/internal/enrichment"
	syncrundomain "github.com/smallbiznis/fieldops/internal/syncrun/domain"
)

var ErrInvalidChunk = errors.New("invalid_chunk_index")

// Service is what the HTTP surface, the CLI and the scheduler drive.
type Service interface {
	RunBackfillChunk(ctx context.Context, index int) (ChunkResult, error)
	RunIncremental(ctx context.Context) (ChunkResult, error)
	ListRuns(ctx context.Context, limit int) ([]syncrundomain.SyncRun, error)
	LatestRun(ctx context.Context) (*syncrundomain.SyncRun, error)
}

// WindowResult counts the work of one window. Errors holds per-job failures
// only; they never fail the window.
type WindowResult struct {
	Processed  int
	Created    int
	Updated    int
	Errors     []string
	Enrichment enrichment.Summary
	Invoices   enrichment.Summary
}

type ChunkResult struct {
	Done          bool     `json:"done"`
	Chunk         int      `json:"chunk"`
	ChunksTotal   int      `json:"chunks_total"`
	JobsProcessed int      `json:"jobs_processed"`
	JobsCreated   int      `json:"jobs_created"`
	JobsUpdated   int      `json:"jobs_updated"`
	Errors        []string `json:"errors,omitempty"`
	RunID         string   `json:"run_id,omitempty"`
}

// WindowError is returned when a whole window failed. The same chunk index
// can be retried.
type WindowError struct {
	RunType syncrundomain.RunType
	Chunk   int
	Err     error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s window %d failed: %v", e.RunType, e.Chunk, e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }
