package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/fieldops/internal/activity/domain"
	"github.com/smallbiznis/fieldops/internal/clock"
	"github.com/smallbiznis/fieldops/internal/job/domain"
	"github.com/smallbiznis/fieldops/internal/notification"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	"github.com/smallbiznis/fieldops/internal/payment"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	ActivitySvc activitydomain.Service
	Notifier    notification.Enqueuer `optional:"true"`
	Clock       clock.Clock           `optional:"true"`
	Metrics     *obsmetrics.Metrics   `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	activity activitydomain.Service
	notifier notification.Enqueuer
	clock    clock.Clock
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("job.service"),
		repo:     p.Repo,
		activity: p.ActivitySvc,
		notifier: p.Notifier,
		clock:    clk,
		metrics:  p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.InstallJob, error) {
	if id == 0 {
		return domain.InstallJob{}, domain.ErrInvalidID
	}
	job, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.InstallJob{}, err
	}
	if job == nil {
		return domain.InstallJob{}, domain.ErrNotFound
	}
	return *job, nil
}

func (s *Service) UpdatePayment(ctx context.Context, req domain.UpdatePaymentRequest) (domain.InstallJob, error) {
	if req.JobID == 0 {
		return domain.InstallJob{}, domain.ErrInvalidID
	}
	if req.Amount != nil && *req.Amount < 0 {
		return domain.InstallJob{}, payment.ErrInvalidAmount
	}

	_, actorID := obscontext.ActorFromContext(ctx)
	var (
		outcome payment.Outcome
		before  domain.InstallJob
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := s.repo.FindByIDForUpdate(ctx, tx, req.JobID)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrNotFound
		}
		before = *job

		outcome = payment.Transition(job.Payment(), payment.Request{
			Status:        req.Status,
			Amount:        req.Amount,
			ExpectedDate:  req.ExpectedDate,
			Notes:         req.Notes,
			InvoiceSource: req.InvoiceSource,
			ActorID:       actorID,
		}, hasContractor(job), s.clock.Now())

		if err := s.repo.UpdateFields(ctx, tx, job.ID, domain.PaymentColumns(outcome.Next)); err != nil {
			return err
		}
		if !outcome.Audit {
			return nil
		}
		_, err = s.activity.Record(ctx, tx, paymentActivity(job, outcome))
		return err
	})
	if err != nil {
		return domain.InstallJob{}, err
	}

	if outcome.StatusChanged {
		s.metrics.RecordPaymentTransition(ctx, string(outcome.Previous.Status), string(outcome.Next.Status))
		s.log.Info("payment status changed",
			zap.String("job_id", req.JobID.String()),
			zap.String("from", string(outcome.Previous.Status)),
			zap.String("to", string(outcome.Next.Status)),
		)
	}

	updated, err := s.Get(ctx, req.JobID)
	if err != nil {
		return domain.InstallJob{}, err
	}
	if outcome.Notify {
		s.notify(ctx, before, updated)
	}
	return updated, nil
}

func (s *Service) UpdateAssignment(ctx context.Context, req domain.UpdateAssignmentRequest) (domain.InstallJob, error) {
	if req.JobID == 0 {
		return domain.InstallJob{}, domain.ErrInvalidID
	}
	if _, err := domain.ParseAssignmentType(string(req.AssignmentType)); err != nil {
		return domain.InstallJob{}, err
	}
	if req.AssignmentType == domain.AssignmentContractor && (req.ContractorID == nil || *req.ContractorID == 0) {
		return domain.InstallJob{}, domain.ErrContractorRequired
	}

	var changed bool
	var from domain.AssignmentType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := s.repo.FindByIDForUpdate(ctx, tx, req.JobID)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrNotFound
		}
		from = job.AssignmentType

		fields := map[string]any{"assignment_type": req.AssignmentType}
		var contractorID *snowflake.ID
		if req.AssignmentType == domain.AssignmentContractor {
			contractor, err := s.repo.FindContractor(ctx, tx, *req.ContractorID)
			if err != nil {
				return err
			}
			if contractor == nil {
				return domain.ErrContractorNotFound
			}
			contractorID = &contractor.ID
		}
		fields["contractor_id"] = contractorID

		// Payment tracking only applies to contractor work.
		resetPayment := job.AssignmentType == domain.AssignmentContractor && req.AssignmentType != domain.AssignmentContractor
		if resetPayment {
			for k, v := range domain.PaymentColumns(payment.Reset()) {
				fields[k] = v
			}
		}

		changed = job.AssignmentType != req.AssignmentType || !sameContractor(job.ContractorID, contractorID)
		if !changed {
			return nil
		}
		if err := s.repo.UpdateFields(ctx, tx, job.ID, fields); err != nil {
			return err
		}

		old := map[string]any{"assignment_type": job.AssignmentType, "contractor_id": idString(job.ContractorID)}
		next := map[string]any{"assignment_type": req.AssignmentType, "contractor_id": idString(contractorID)}
		if resetPayment {
			old["payment_status"] = job.PaymentStatus
			old["payment_amount"] = job.PaymentAmount
			next["payment_status"] = payment.StatusNone
			next["payment_amount"] = nil
		}
		logContractor := contractorID
		if logContractor == nil {
			logContractor = job.ContractorID
		}
		_, err = s.activity.Record(ctx, tx, activitydomain.Entry{
			JobID:        job.ID,
			ContractorID: logContractor,
			Action:       activitydomain.ActionAssignmentChanged,
			Description:  fmt.Sprintf("Assignment changed from %s to %s", job.AssignmentType, req.AssignmentType),
			Old:          old,
			New:          next,
		})
		return err
	})
	if err != nil {
		return domain.InstallJob{}, err
	}
	if changed {
		s.metrics.RecordAssignmentChange(ctx, string(from), string(req.AssignmentType))
	}
	return s.Get(ctx, req.JobID)
}

// notify hands the task to the queue and returns immediately.
func (s *Service) notify(ctx context.Context, before, job domain.InstallJob) {
	if s.notifier == nil || job.ContractorID == nil {
		return
	}
	contractor, err := s.repo.FindContractor(ctx, s.db, *job.ContractorID)
	if err != nil || contractor == nil {
		s.log.Warn("skip notification, contractor lookup failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return
	}

	task := notification.Task{
		JobID:          job.ID,
		JobNumber:      job.JobNumber,
		ContractorName: contractor.Name,
		Status:         job.PaymentStatus,
		Amount:         job.PaymentAmount,
		ExpectedDate:   job.PaymentExpectedDate,
		CreatedAt:      s.clock.Now(),
	}
	if contractor.Email != nil {
		task.ContractorEmail = *contractor.Email
	}
	if !s.notifier.Enqueue(task) {
		s.log.Warn("payment notification not queued",
			zap.String("job_id", job.ID.String()),
			zap.String("from", string(before.PaymentStatus)),
			zap.String("to", string(job.PaymentStatus)),
		)
	}
}

func paymentActivity(job *domain.InstallJob, out payment.Outcome) activitydomain.Entry {
	action := activitydomain.ActionPaymentAmountChanged
	desc := fmt.Sprintf("Payment amount changed from %s to %s", formatAmount(out.Previous.Amount), formatAmount(out.Next.Amount))
	if out.StatusChanged {
		action = activitydomain.ActionPaymentStatusChanged
		desc = fmt.Sprintf("Payment status changed from %s to %s", out.Previous.Status, out.Next.Status)
	}
	return activitydomain.Entry{
		JobID:        job.ID,
		ContractorID: job.ContractorID,
		Action:       action,
		Description:  desc,
		Old: map[string]any{
			"payment_status": out.Previous.Status,
			"payment_amount": out.Previous.Amount,
		},
		New: map[string]any{
			"payment_status": out.Next.Status,
			"payment_amount": out.Next.Amount,
		},
	}
}

func hasContractor(job *domain.InstallJob) bool {
	return job.AssignmentType == domain.AssignmentContractor && job.ContractorID != nil
}

func sameContractor(a, b *snowflake.ID) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return *a == *b
	}
}

func idString(id *snowflake.ID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func formatAmount(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%.2f", *v)
}
