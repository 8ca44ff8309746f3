// Package domain contains core types for request authentication.
package domain

import (
	"context"
	"time"
)

// Session is an interactive login issued by the dashboard. Only the hash of
// the token is stored.
type Session struct {
	TokenHash string     `gorm:"column:token_hash;primaryKey"`
	UserID    string     `gorm:"column:user_id;not null"`
	Role      string     `gorm:"column:role;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "user_sessions" }

type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalSystem PrincipalType = "system"
)

// Principal is the resolved caller of a request.
type Principal struct {
	Type PrincipalType
	ID   string
	Role string
}

// Subject is the authorization subject, e.g. "user:42".
func (p Principal) Subject() string {
	return string(p.Type) + ":" + p.ID
}

// Credentials carries what the caller presented. Either field may be empty.
type Credentials struct {
	SessionToken string
	BearerToken  string
}

type SessionRepository interface {
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
}

type Service interface {
	Authenticate(ctx context.Context, creds Credentials) (Principal, error)
}
