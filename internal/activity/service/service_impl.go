package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/activity/domain"
	"github.com/smallbiznis/fieldops/internal/clock"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	"github.com/smallbiznis/fieldops/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry domain.Entry) (domain.ActivityLog, error) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return domain.ActivityLog{}, domain.ErrInvalidAction
	}
	if entry.JobID == 0 {
		return domain.ActivityLog{}, domain.ErrInvalidJob
	}
	if tx == nil {
		tx = s.db
	}

	_, actorID := obscontext.ActorFromContext(ctx)
	log := domain.ActivityLog{
		ID:           s.genID.Generate(),
		JobID:        entry.JobID,
		ContractorID: entry.ContractorID,
		Action:       action,
		Description:  strings.TrimSpace(entry.Description),
		OldValues:    jsonMap(entry.Old),
		NewValues:    jsonMap(entry.New),
		ActorID:      actorID,
		CreatedAt:    s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, tx, &log); err != nil {
		s.log.Warn("failed to write activity log",
			zap.String("action", action),
			zap.String("job_id", entry.JobID.String()),
			zap.Error(err),
		)
		return domain.ActivityLog{}, err
	}
	return log, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.JobID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidJob
	}

	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := decoded.Time()
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		JobID:  req.JobID,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(item *domain.ActivityLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > limit {
		items = items[:limit]
	}

	logs := make([]domain.ActivityLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := domain.ListResponse{Activity: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func jsonMap(in map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range in {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
