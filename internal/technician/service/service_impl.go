package service

import (
	"context"
	"math"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/clock"
	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	"github.com/smallbiznis/fieldops/internal/labor"
	"github.com/smallbiznis/fieldops/internal/technician/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("technician.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

// Refresh writes the upstream roster in place and returns the current rates.
func (s *Service) Refresh(ctx context.Context, techs []fsdomain.Technician) (labor.Rates, error) {
	now := s.clock.Now()
	rows := make([]domain.TechnicianRate, 0, len(techs))
	for _, t := range techs {
		rows = append(rows, domain.TechnicianRate{
			ID:          s.genID.Generate(),
			ExternalID:  t.ID,
			Name:        t.Name,
			Active:      t.Active,
			RefreshedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := s.repo.Upsert(ctx, s.db, rows); err != nil {
		return nil, err
	}
	return s.Rates(ctx)
}

func (s *Service) Rates(ctx context.Context) (labor.Rates, error) {
	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	rates := make(labor.Rates, len(rows))
	for _, row := range rows {
		if row.HourlyRate != nil && *row.HourlyRate > 0 {
			rates[row.ExternalID] = *row.HourlyRate
		}
	}
	return rates, nil
}

func (s *Service) List(ctx context.Context) ([]domain.TechnicianRate, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) SetRate(ctx context.Context, externalID int64, rate float64) (domain.TechnicianRate, error) {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return domain.TechnicianRate{}, domain.ErrInvalidRate
	}
	if err := s.repo.SetRate(ctx, s.db, externalID, labor.Round2(rate), s.clock.Now()); err != nil {
		return domain.TechnicianRate{}, err
	}
	row, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return domain.TechnicianRate{}, err
	}
	if row == nil {
		return domain.TechnicianRate{}, domain.ErrNotFound
	}
	s.log.Info("technician rate updated", zap.Int64("technician_id", externalID))
	return *row, nil
}
