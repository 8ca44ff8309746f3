package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry is one transition to record.
type Entry struct {
	JobID        snowflake.ID
	ContractorID *snowflake.ID
	Action       string
	Description  string
	Old          map[string]any
	New          map[string]any
}

type ListRequest struct {
	pagination.Pagination
	JobID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Activity []ActivityLog `json:"activity"`
}

type Service interface {
	// Record appends entry using tx so the write commits with the transition
	// that produced it. A nil tx uses the service's own connection.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (ActivityLog, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidJob       = errors.New("invalid_job")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
