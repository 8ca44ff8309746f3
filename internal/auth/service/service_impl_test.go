package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fieldops/internal/auth/domain"
	"github.com/smallbiznis/fieldops/internal/auth/repository"
	"github.com/smallbiznis/fieldops/internal/clock"
	"github.com/smallbiznis/fieldops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(`CREATE TABLE user_sessions (
		token_hash TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL
	)`).Error)

	cfg := config.Config{SchedulerToken: "cron-secret"}
	return New(zap.NewNop(), cfg, repository.New(db), clock.NewFakeClock(now)), db
}

func seedSession(t *testing.T, db *gorm.DB, token, userID, role string, expiresAt time.Time, revokedAt *time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Session{
		TokenHash: hashToken(token),
		UserID:    userID,
		Role:      role,
		ExpiresAt: expiresAt,
		RevokedAt: revokedAt,
		CreatedAt: now.Add(-time.Hour),
	}).Error)
}

func TestAuthenticateSession(t *testing.T) {
	svc, db := newTestService(t)
	seedSession(t, db, "valid", "42", "Manager", now.Add(time.Hour), nil)

	principal, err := svc.Authenticate(context.Background(), domain.Credentials{SessionToken: "valid"})
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalUser, principal.Type)
	assert.Equal(t, "manager", principal.Role)
	assert.Equal(t, "user:42", principal.Subject())

	// a bearer session token works when no cookie is present
	principal, err = svc.Authenticate(context.Background(), domain.Credentials{BearerToken: "valid"})
	require.NoError(t, err)
	assert.Equal(t, "42", principal.ID)
}

func TestAuthenticateRejectsBadSessions(t *testing.T) {
	svc, db := newTestService(t)
	revokedAt := now.Add(-time.Minute)
	seedSession(t, db, "expired", "1", "owner", now, nil)
	seedSession(t, db, "revoked", "2", "owner", now.Add(time.Hour), &revokedAt)

	ctx := context.Background()
	_, err := svc.Authenticate(ctx, domain.Credentials{SessionToken: "expired"})
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	_, err = svc.Authenticate(ctx, domain.Credentials{SessionToken: "revoked"})
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)

	_, err = svc.Authenticate(ctx, domain.Credentials{SessionToken: "unknown"})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = svc.Authenticate(ctx, domain.Credentials{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestAuthenticateSchedulerToken(t *testing.T) {
	svc, _ := newTestService(t)

	principal, err := svc.Authenticate(context.Background(), domain.Credentials{BearerToken: "cron-secret"})
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalSystem, principal.Type)
	assert.Equal(t, "scheduler", principal.Role)
	assert.Equal(t, "system:scheduler", principal.Subject())

	_, err = svc.Authenticate(context.Background(), domain.Credentials{BearerToken: "cron-secreT"})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}
