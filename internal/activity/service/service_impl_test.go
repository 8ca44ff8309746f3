package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fieldops/internal/activity/domain"
	"github.com/smallbiznis/fieldops/internal/activity/repository"
	"github.com/smallbiznis/fieldops/internal/activity/service"
	"github.com/smallbiznis/fieldops/internal/clock"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	"github.com/smallbiznis/fieldops/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	}), clk
}

func TestRecordStoresActorAndSnapshots(t *testing.T) {
	svc, _ := newService(t)
	ctx := obscontext.WithActor(context.Background(), "user", "42")

	entry, err := svc.Record(ctx, nil, domain.Entry{
		JobID:       snowflake.ID(100),
		Action:      domain.ActionPaymentStatusChanged,
		Description: "  Payment status changed from none to received ",
		Old:         map[string]any{"payment_status": "none", "": "dropped"},
		New:         map[string]any{"payment_status": "received"},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", entry.ActorID)
	assert.Equal(t, "Payment status changed from none to received", entry.Description)
	assert.NotContains(t, entry.OldValues, "")

	resp, err := svc.List(ctx, domain.ListRequest{JobID: snowflake.ID(100)})
	require.NoError(t, err)
	require.Len(t, resp.Activity, 1)
	assert.Equal(t, entry.ID, resp.Activity[0].ID)
	assert.Equal(t, "received", resp.Activity[0].NewValues["payment_status"])
	assert.False(t, resp.HasMore)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Record(context.Background(), nil, domain.Entry{JobID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	_, err = svc.Record(context.Background(), nil, domain.Entry{Action: domain.ActionAssignmentChanged})
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, clk := newService(t)
	ctx := context.Background()
	jobID := snowflake.ID(200)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		entry, err := svc.Record(ctx, nil, domain.Entry{
			JobID:       jobID,
			Action:      domain.ActionAssignmentChanged,
			Description: fmt.Sprintf("change %d", i),
		})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
		clk.Advance(time.Minute)
	}
	_, err := svc.Record(ctx, nil, domain.Entry{JobID: 999, Action: domain.ActionAssignmentChanged})
	require.NoError(t, err)

	first, err := svc.List(ctx, domain.ListRequest{
		JobID:      jobID,
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Activity, 2)
	assert.Equal(t, ids[2], first.Activity[0].ID)
	assert.Equal(t, ids[1], first.Activity[1].ID)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, domain.ListRequest{
		JobID:      jobID,
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Activity, 1)
	assert.Equal(t, ids[0], second.Activity[0].ID)
	assert.False(t, second.HasMore)
}

func TestListRejectsBadToken(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.List(context.Background(), domain.ListRequest{
		JobID:      1,
		Pagination: pagination.Pagination{PageToken: "not-a-token"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)

	_, err = svc.List(context.Background(), domain.ListRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
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

	require.NoError(t, db.Exec(`CREATE TABLE activity_logs (
		id INTEGER PRIMARY KEY,
		job_id INTEGER NOT NULL,
		contractor_id INTEGER,
		action TEXT NOT NULL,
		description TEXT NOT NULL,
		old_values TEXT,
		new_values TEXT,
		actor_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME
	)`).Error)
	return db
}
