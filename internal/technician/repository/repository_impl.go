package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/fieldops/internal/technician/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, rows []domain.TechnicianRate) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "active", "refreshed_at", "updated_at"}),
		}).
		CreateInBatches(&rows, 200).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.TechnicianRate, error) {
	var rows []domain.TechnicianRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, name, hourly_rate, active, refreshed_at, created_at, updated_at
		 FROM technician_rates ORDER BY name, external_id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*domain.TechnicianRate, error) {
	var row domain.TechnicianRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, name, hourly_rate, active, refreshed_at, created_at, updated_at
		 FROM technician_rates WHERE external_id = ?`,
		externalID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) SetRate(ctx context.Context, db *gorm.DB, externalID int64, rate float64, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE technician_rates SET hourly_rate = ?, updated_at = ? WHERE external_id = ?`,
		rate, now, externalID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
