package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TechnicianRate maps an external technician to an hourly rate. The rate is
// set by managers; the sync only refreshes name and active.
type TechnicianRate struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID  int64        `gorm:"not null;uniqueIndex" json:"external_id"`
	Name        string       `json:"name"`
	HourlyRate  *float64     `json:"hourly_rate,omitempty"`
	Active      bool         `json:"active"`
	RefreshedAt time.Time    `json:"refreshed_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (TechnicianRate) TableName() string { return "technician_rates" }

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, rows []TechnicianRate) error
	List(ctx context.Context, db *gorm.DB) ([]TechnicianRate, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*TechnicianRate, error)
	SetRate(ctx context.Context, db *gorm.DB, externalID int64, rate float64, now time.Time) error
}

var (
	ErrNotFound    = errors.New("not_found")
	ErrInvalidRate = errors.New("invalid_hourly_rate")
)
