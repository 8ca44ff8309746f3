package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/smallbiznis/fieldops/internal/activity/domain"
	activityrepo "github.com/smallbiznis/fieldops/internal/activity/repository"
	activityservice "github.com/smallbiznis/fieldops/internal/activity/service"
	"github.com/smallbiznis/fieldops/internal/clock"
	"github.com/smallbiznis/fieldops/internal/job/domain"
	jobrepo "github.com/smallbiznis/fieldops/internal/job/repository"
	jobservice "github.com/smallbiznis/fieldops/internal/job/service"
	"github.com/smallbiznis/fieldops/internal/notification"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	"github.com/smallbiznis/fieldops/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captureQueue struct {
	mu    sync.Mutex
	tasks []notification.Task
}

func (q *captureQueue) Enqueue(task notification.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return true
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	activity activitydomain.Service
	queue    *captureQueue
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	activitySvc := activityservice.New(activityservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  activityrepo.Provide(),
		Clock: clk,
	})
	queue := &captureQueue{}
	svc := jobservice.New(jobservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		Repo:        jobrepo.Provide(),
		ActivitySvc: activitySvc,
		Notifier:    queue,
		Clock:       clk,
	})
	return &fixture{db: db, node: node, svc: svc, activity: activitySvc, queue: queue, clock: clk}
}

func (f *fixture) seedContractor(t *testing.T, name, email string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Exec(
		`INSERT INTO contractors (id, name, email, active, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?)`,
		id, name, email, time.Now().UTC(), time.Now().UTC(),
	).Error)
	return id
}

func (f *fixture) seedJob(t *testing.T, contractorID *snowflake.ID) snowflake.ID {
	t.Helper()
	assignment := domain.AssignmentUnassigned
	if contractorID != nil {
		assignment = domain.AssignmentContractor
	}
	job := domain.InstallJob{
		ID:             f.node.Generate(),
		ExternalID:     int64(f.node.Generate()),
		JobNumber:      "1001",
		Status:         "Completed",
		Trade:          domain.TradeHVAC,
		AssignmentType: assignment,
		ContractorID:   contractorID,
		PaymentStatus:  payment.StatusNone,
		LastSyncedAt:   time.Now().UTC(),
	}
	created, err := jobrepo.Provide().Create(context.Background(), f.db, &job)
	require.NoError(t, err)
	require.True(t, created)
	return job.ID
}

func statusPtr(s payment.Status) *payment.Status { return &s }

func sourcePtr(s payment.InvoiceSource) *payment.InvoiceSource { return &s }

func TestUpdatePaymentManagerTextApprovesAndNotifies(t *testing.T) {
	f := newFixture(t)
	contractorID := f.seedContractor(t, "Ace Plumbing", "ace@example.com")
	jobID := f.seedJob(t, &contractorID)

	ctx := obscontext.WithActor(context.Background(), "user", "mgr-7")
	amount := 450.0
	job, err := f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{
		JobID:         jobID,
		Status:        statusPtr(payment.StatusReceived),
		InvoiceSource: sourcePtr(payment.SourceManagerText),
		Amount:        &amount,
	})
	require.NoError(t, err)

	assert.Equal(t, payment.StatusReadyToPay, job.PaymentStatus)
	require.NotNil(t, job.PaymentApprovedAt)
	require.NotNil(t, job.PaymentApprovedBy)
	assert.Equal(t, "mgr-7", *job.PaymentApprovedBy)
	require.NotNil(t, job.ContractorName)
	assert.Equal(t, "Ace Plumbing", *job.ContractorName)

	logs, err := f.activity.List(context.Background(), activitydomain.ListRequest{JobID: jobID})
	require.NoError(t, err)
	require.Len(t, logs.Activity, 1)
	assert.Equal(t, activitydomain.ActionPaymentStatusChanged, logs.Activity[0].Action)
	assert.Equal(t, "none", logs.Activity[0].OldValues["payment_status"])
	assert.Equal(t, "ready_to_pay", logs.Activity[0].NewValues["payment_status"])
	assert.Equal(t, "mgr-7", logs.Activity[0].ActorID)

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, "ace@example.com", f.queue.tasks[0].ContractorEmail)
	assert.Equal(t, payment.StatusReadyToPay, f.queue.tasks[0].Status)
}

func TestUpdatePaymentNoneClearsTimestamps(t *testing.T) {
	f := newFixture(t)
	contractorID := f.seedContractor(t, "Ace Plumbing", "ace@example.com")
	jobID := f.seedJob(t, &contractorID)
	ctx := context.Background()

	_, err := f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{
		JobID:         jobID,
		Status:        statusPtr(payment.StatusReceived),
		InvoiceSource: sourcePtr(payment.SourceAPEmail),
	})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{JobID: jobID, Status: statusPtr(payment.StatusPaid)})
	require.NoError(t, err)

	job, err := f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{JobID: jobID, Status: statusPtr(payment.StatusNone)})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusNone, job.PaymentStatus)
	assert.Nil(t, job.PaymentReceivedAt)
	assert.Nil(t, job.PaymentApprovedAt)
	assert.Nil(t, job.PaymentPaidAt)
	assert.Nil(t, job.InvoiceSource)

	logs, err := f.activity.List(ctx, activitydomain.ListRequest{JobID: jobID})
	require.NoError(t, err)
	assert.Len(t, logs.Activity, 3)
	// none is never announced to the contractor
	assert.Len(t, f.queue.tasks, 2)
}

func TestUpdatePaymentAmountOnlyAndNoop(t *testing.T) {
	f := newFixture(t)
	jobID := f.seedJob(t, nil)
	ctx := context.Background()

	amount := 100.0
	_, err := f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{JobID: jobID, Amount: &amount})
	require.NoError(t, err)
	_, err = f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{JobID: jobID, Amount: &amount})
	require.NoError(t, err)

	logs, err := f.activity.List(ctx, activitydomain.ListRequest{JobID: jobID})
	require.NoError(t, err)
	require.Len(t, logs.Activity, 1)
	assert.Equal(t, activitydomain.ActionPaymentAmountChanged, logs.Activity[0].Action)
	assert.Empty(t, f.queue.tasks)
}

func TestUpdatePaymentNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdatePayment(context.Background(), domain.UpdatePaymentRequest{
		JobID:  f.node.Generate(),
		Status: statusPtr(payment.StatusPaid),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSwitchingAwayFromContractorResetsPayment(t *testing.T) {
	f := newFixture(t)
	contractorID := f.seedContractor(t, "Ace Plumbing", "")
	jobID := f.seedJob(t, &contractorID)
	ctx := context.Background()

	amount := 300.0
	_, err := f.svc.UpdatePayment(ctx, domain.UpdatePaymentRequest{
		JobID:         jobID,
		Status:        statusPtr(payment.StatusReceived),
		InvoiceSource: sourcePtr(payment.SourceManagerText),
		Amount:        &amount,
	})
	require.NoError(t, err)

	job, err := f.svc.UpdateAssignment(ctx, domain.UpdateAssignmentRequest{
		JobID:          jobID,
		AssignmentType: domain.AssignmentInHouse,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentInHouse, job.AssignmentType)
	assert.Nil(t, job.ContractorID)
	assert.Equal(t, payment.StatusNone, job.PaymentStatus)
	assert.Nil(t, job.PaymentAmount)
	assert.Nil(t, job.PaymentReceivedAt)
	assert.Nil(t, job.InvoiceSource)

	logs, err := f.activity.List(ctx, activitydomain.ListRequest{JobID: jobID})
	require.NoError(t, err)
	require.Len(t, logs.Activity, 2)
	assert.Equal(t, activitydomain.ActionAssignmentChanged, logs.Activity[0].Action)
}

func TestUpdateAssignmentValidation(t *testing.T) {
	f := newFixture(t)
	jobID := f.seedJob(t, nil)
	ctx := context.Background()

	_, err := f.svc.UpdateAssignment(ctx, domain.UpdateAssignmentRequest{JobID: jobID, AssignmentType: "freelance"})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignmentType)

	_, err = f.svc.UpdateAssignment(ctx, domain.UpdateAssignmentRequest{JobID: jobID, AssignmentType: domain.AssignmentContractor})
	assert.ErrorIs(t, err, domain.ErrContractorRequired)

	missing := f.node.Generate()
	_, err = f.svc.UpdateAssignment(ctx, domain.UpdateAssignmentRequest{
		JobID:          jobID,
		AssignmentType: domain.AssignmentContractor,
		ContractorID:   &missing,
	})
	assert.ErrorIs(t, err, domain.ErrContractorNotFound)

	job, err := f.svc.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentUnassigned, job.AssignmentType)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts := []string{
		`CREATE TABLE contractors (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE install_jobs (
			id INTEGER PRIMARY KEY,
			external_id INTEGER NOT NULL UNIQUE,
			job_number TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			trade TEXT NOT NULL DEFAULT 'hvac',
			business_unit_id INTEGER,
			business_unit_name TEXT,
			job_type_name TEXT,
			customer_id INTEGER,
			customer_name TEXT,
			customer_phone TEXT,
			customer_email TEXT,
			location_id INTEGER,
			location_address TEXT,
			scheduled_date DATETIME,
			completed_date DATETIME,
			total REAL,
			invoice_id INTEGER,
			invoice_number TEXT,
			invoice_date DATETIME,
			invoice_sync_status TEXT,
			assignment_type TEXT NOT NULL DEFAULT 'unassigned',
			contractor_id INTEGER,
			payment_status TEXT NOT NULL DEFAULT 'none',
			payment_amount REAL,
			payment_expected_date DATETIME,
			payment_notes TEXT,
			invoice_source TEXT,
			payment_received_at DATETIME,
			payment_approved_at DATETIME,
			payment_approved_by TEXT,
			payment_paid_at DATETIME,
			labor_hours REAL,
			labor_cost REAL,
			technician_id INTEGER,
			technician_count INTEGER,
			last_synced_at DATETIME NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE activity_logs (
			id INTEGER PRIMARY KEY,
			job_id INTEGER NOT NULL,
			contractor_id INTEGER,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			old_values TEXT,
			new_values TEXT,
			actor_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
