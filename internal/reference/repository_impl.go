package reference

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/fieldops/internal/reference/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListTradeOverrides(ctx context.Context) ([]domain.TradeOverride, error) {
	var overrides []domain.TradeOverride
	err := r.db.WithContext(ctx).
		Raw(`SELECT business_unit_name, trade, updated_at FROM trade_overrides ORDER BY business_unit_name`).
		Scan(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *repository) UpsertTradeOverride(ctx context.Context, override domain.TradeOverride) error {
	override.BusinessUnitName = strings.TrimSpace(override.BusinessUnitName)
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "business_unit_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"trade", "updated_at"}),
		}).
		Create(&override).Error
}
