package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/job/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByExternalIDs(ctx context.Context, db *gorm.DB, externalIDs []int64) (map[int64]*domain.InstallJob, error) {
	out := make(map[int64]*domain.InstallJob, len(externalIDs))
	if len(externalIDs) == 0 {
		return out, nil
	}

	var jobs []*domain.InstallJob
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM install_jobs WHERE external_id IN ?`,
		externalIDs,
	).Scan(&jobs).Error
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		out[job.ExternalID] = job
	}
	return out, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InstallJob, error) {
	var job domain.InstallJob
	err := db.WithContext(ctx).Raw(
		`SELECT j.*, c.name AS contractor_name
		 FROM install_jobs j
		 LEFT JOIN contractors c ON c.id = j.contractor_id
		 WHERE j.id = ?`,
		id,
	).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InstallJob, error) {
	stmt := db.WithContext(ctx)
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var job domain.InstallJob
	err := stmt.Where("id = ?", id).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, job *domain.InstallJob) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(job)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.InstallJob{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) FindContractor(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contractor, error) {
	var contractor domain.Contractor
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, active, created_at, updated_at
		 FROM contractors WHERE id = ?`,
		id,
	).Scan(&contractor).Error
	if err != nil {
		return nil, err
	}
	if contractor.ID == 0 {
		return nil, nil
	}
	return &contractor, nil
}
