package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	"github.com/smallbiznis/fieldops/internal/fieldservice/mock"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
	jobrepo "github.com/smallbiznis/fieldops/internal/job/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(`CREATE TABLE contractors (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE install_jobs (
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
	)`).Error)
	return db
}

func seedJob(t *testing.T, db *gorm.DB, job *jobdomain.InstallJob) *jobdomain.InstallJob {
	t.Helper()
	job.AssignmentType = jobdomain.AssignmentUnassigned
	job.PaymentStatus = "none"
	job.Trade = jobdomain.TradeHVAC
	job.LastSyncedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	created, err := jobrepo.Provide().Create(context.Background(), db, job)
	require.NoError(t, err)
	require.True(t, created)
	return job
}

func ptr[T any](v T) *T { return &v }

func TestEnrichIsolatesFailuresAndKeepsExistingValues(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)

	a := seedJob(t, db, &jobdomain.InstallJob{ID: snowflake.ID(1), ExternalID: 101, CustomerID: ptr(int64(10)), LocationID: ptr(int64(20))})
	b := seedJob(t, db, &jobdomain.InstallJob{ID: snowflake.ID(2), ExternalID: 102, CustomerID: ptr(int64(10)), LocationID: ptr(int64(21)), LocationAddress: ptr("1 Old Rd")})
	c := seedJob(t, db, &jobdomain.InstallJob{ID: snowflake.ID(3), ExternalID: 103, CustomerID: ptr(int64(11)), CustomerName: ptr("Kept Name")})

	client.EXPECT().GetCustomer(gomock.Any(), int64(10)).Return(fsdomain.Customer{ID: 10, Name: "Dana Reyes", Phone: "555-0101"}, nil).Times(1)
	client.EXPECT().GetCustomer(gomock.Any(), int64(11)).Return(fsdomain.Customer{}, errors.New("boom")).Times(1)
	client.EXPECT().GetLocation(gomock.Any(), int64(20)).Return(fsdomain.Location{ID: 20, Address: fsdomain.Address{Street: "9 Elm St", City: "Tulsa", State: "OK"}}, nil)
	client.EXPECT().GetLocation(gomock.Any(), int64(21)).Return(fsdomain.Location{ID: 21}, nil)

	w := New(Params{DB: db, Log: zap.NewNop(), Client: client, Repo: jobrepo.Provide()})
	summary := w.Enrich(context.Background(), []*jobdomain.InstallJob{a, b, c}, 2)

	assert.Equal(t, Summary{Attempted: 4, Succeeded: 3}, summary)

	repo := jobrepo.Provide()
	got, err := repo.FindByID(context.Background(), db, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CustomerName)
	assert.Equal(t, "Dana Reyes", *got.CustomerName)
	assert.Equal(t, "555-0101", *got.CustomerPhone)
	assert.Nil(t, got.CustomerEmail)
	assert.Equal(t, "9 Elm St, Tulsa, OK", *got.LocationAddress)

	got, err = repo.FindByID(context.Background(), db, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Old Rd", *got.LocationAddress)

	got, err = repo.FindByID(context.Background(), db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept Name", *got.CustomerName)
}

func TestResolveInvoices(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)

	invoiceDate := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	a := seedJob(t, db, &jobdomain.InstallJob{ID: snowflake.ID(1), ExternalID: 101, InvoiceID: ptr(int64(500))})
	b := seedJob(t, db, &jobdomain.InstallJob{ID: snowflake.ID(2), ExternalID: 102})

	client.EXPECT().GetInvoice(gomock.Any(), int64(500)).Return(fsdomain.Invoice{ID: 500, ReferenceNumber: "INV-500", InvoiceDate: &invoiceDate, SyncStatus: "Posted"}, nil)

	w := New(Params{DB: db, Log: zap.NewNop(), Client: client, Repo: jobrepo.Provide()})
	summary := w.ResolveInvoices(context.Background(), []*jobdomain.InstallJob{a, b}, 0)
	assert.Equal(t, Summary{Attempted: 1, Succeeded: 1}, summary)

	got, err := jobrepo.Provide().FindByID(context.Background(), db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-500", *got.InvoiceNumber)
	assert.Equal(t, "Posted", *got.InvoiceSyncStatus)
	require.NotNil(t, got.InvoiceDate)
	assert.True(t, invoiceDate.Equal(*got.InvoiceDate))
}

func TestEnrichCapsInFlightRequests(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)

	const workers = 3
	var jobs []*jobdomain.InstallJob
	for i := 1; i <= 12; i++ {
		jobs = append(jobs, seedJob(t, db, &jobdomain.InstallJob{
			ID:         snowflake.ID(i),
			ExternalID: int64(100 + i),
			CustomerID: ptr(int64(i)),
		}))
	}

	var inFlight, peak atomic.Int32
	client.EXPECT().GetCustomer(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id int64) (fsdomain.Customer, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return fsdomain.Customer{ID: id, Name: fmt.Sprintf("Customer %d", id)}, nil
	}).Times(12)

	w := New(Params{DB: db, Log: zap.NewNop(), Client: client, Repo: jobrepo.Provide()})
	summary := w.Enrich(context.Background(), jobs, workers)

	assert.Equal(t, Summary{Attempted: 12, Succeeded: 12}, summary)
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.GreaterOrEqual(t, peak.Load(), int32(2))
	assert.Zero(t, inFlight.Load())
}

func TestEnrichNoJobs(t *testing.T) {
	w := &Worker{log: zap.NewNop()}
	assert.Equal(t, Summary{}, w.Enrich(context.Background(), nil, 5))
}
