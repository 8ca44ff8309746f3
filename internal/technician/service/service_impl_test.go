package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fieldops/internal/clock"
	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	"github.com/smallbiznis/fieldops/internal/technician/domain"
	"github.com/smallbiznis/fieldops/internal/technician/repository"
	"github.com/smallbiznis/fieldops/internal/technician/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*service.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(`CREATE TABLE technician_rates (
		id INTEGER PRIMARY KEY,
		external_id INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		hourly_rate REAL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		refreshed_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func TestRefreshKeepsManagerRate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, []fsdomain.Technician{{ID: 7, Name: "Ana", Active: true}, {ID: 8, Name: "Ben", Active: true}})
	require.NoError(t, err)

	row, err := svc.SetRate(ctx, 7, 42.126)
	require.NoError(t, err)
	require.NotNil(t, row.HourlyRate)
	assert.Equal(t, 42.13, *row.HourlyRate)

	rates, err := svc.Refresh(ctx, []fsdomain.Technician{{ID: 7, Name: "Ana Diaz", Active: false}})
	require.NoError(t, err)
	assert.Equal(t, 42.13, rates[7])
	_, known := rates[8]
	assert.False(t, known)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana Diaz", rows[0].Name)
	assert.False(t, rows[0].Active)
}

func TestSetRateValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.SetRate(ctx, 7, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	_, err = svc.SetRate(ctx, 99, 30)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
