package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindByExternalIDs loads existing jobs in one query, keyed by external id.
	FindByExternalIDs(ctx context.Context, db *gorm.DB, externalIDs []int64) (map[int64]*InstallJob, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InstallJob, error)
	// FindByIDForUpdate locks the row on dialects that support it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InstallJob, error)
	// Create inserts job unless its external id already exists. It reports
	// whether a row was written.
	Create(ctx context.Context, db *gorm.DB, job *InstallJob) (bool, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	FindContractor(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contractor, error)
}
