package repository

import (
	"context"

	"github.com/smallbiznis/fieldops/internal/syncrun/domain"
	"gorm.io/gorm"
)

const maxListLimit = 100

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, run *domain.SyncRun) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sync_runs (id, run_type, status, started_at, completed_at, chunks_total, last_chunk,
		 jobs_processed, jobs_created, jobs_updated, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RunType,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.ChunksTotal,
		run.LastChunk,
		run.JobsProcessed,
		run.JobsCreated,
		run.JobsUpdated,
		run.Errors,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, run *domain.SyncRun) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sync_runs SET status = ?, completed_at = ?, chunks_total = ?, last_chunk = ?,
		 jobs_processed = ?, jobs_created = ?, jobs_updated = ?, errors = ?
		 WHERE id = ?`,
		run.Status,
		run.CompletedAt,
		run.ChunksTotal,
		run.LastChunk,
		run.JobsProcessed,
		run.JobsCreated,
		run.JobsUpdated,
		run.Errors,
		run.ID,
	).Error
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, runType domain.RunType) (*domain.SyncRun, error) {
	var runs []domain.SyncRun
	err := db.WithContext(ctx).Raw(
		`SELECT id, run_type, status, started_at, completed_at, chunks_total, last_chunk,
		 jobs_processed, jobs_created, jobs_updated, errors
		 FROM sync_runs WHERE run_type = ?
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		runType,
	).Scan(&runs).Error
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *repo) Latest(ctx context.Context, db *gorm.DB) (*domain.SyncRun, error) {
	runs, err := r.ListRecent(ctx, db, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = 20
	}
	var runs []domain.SyncRun
	err := db.WithContext(ctx).Raw(
		`SELECT id, run_type, status, started_at, completed_at, chunks_total, last_chunk,
		 jobs_processed, jobs_created, jobs_updated, errors
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	).Scan(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
