package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type RunType string

const (
	RunTypeBackfill    RunType = "backfill"
	RunTypeIncremental RunType = "incremental"
)

// SyncRun spans one top-level invocation. A backfill run is opened by its
// first chunk and closed by its last; intermediate chunks keep it running.
type SyncRun struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	RunType       RunType      `gorm:"not null" json:"run_type"`
	Status        Status       `gorm:"not null" json:"status"`
	StartedAt     time.Time    `gorm:"not null" json:"started_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	ChunksTotal   int          `gorm:"not null" json:"chunks_total"`
	LastChunk     int          `gorm:"not null" json:"last_chunk"`
	JobsProcessed int          `gorm:"not null" json:"jobs_processed"`
	JobsCreated   int          `gorm:"not null" json:"jobs_created"`
	JobsUpdated   int          `gorm:"not null" json:"jobs_updated"`
	Errors        *string      `json:"errors,omitempty"`
}

func (SyncRun) TableName() string { return "sync_runs" }

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, run *SyncRun) error
	Update(ctx context.Context, db *gorm.DB, run *SyncRun) error
	// FindLatest returns the newest run of runType in any status, or nil.
	FindLatest(ctx context.Context, db *gorm.DB, runType RunType) (*SyncRun, error)
	Latest(ctx context.Context, db *gorm.DB) (*SyncRun, error)
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]SyncRun, error)
}

var ErrNotFound = errors.New("sync_run_not_found")
