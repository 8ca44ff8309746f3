package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/payment"
)

type UpdatePaymentRequest struct {
	JobID         snowflake.ID
	Status        *payment.Status
	Amount        *float64
	ExpectedDate  *time.Time
	Notes         *string
	InvoiceSource *payment.InvoiceSource
}

type UpdateAssignmentRequest struct {
	JobID          snowflake.ID
	AssignmentType AssignmentType
	ContractorID   *snowflake.ID
}

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (InstallJob, error)
	UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (InstallJob, error)
	UpdateAssignment(ctx context.Context, req UpdateAssignmentRequest) (InstallJob, error)
}

var (
	ErrNotFound              = errors.New("not_found")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidAssignmentType = errors.New("invalid_assignment_type")
	ErrContractorRequired    = errors.New("contractor_required")
	ErrContractorNotFound    = errors.New("contractor_not_found")
)
