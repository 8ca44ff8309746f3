package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/smallbiznis/fieldops/internal/auth/domain"
	"github.com/smallbiznis/fieldops/internal/clock"
	"github.com/smallbiznis/fieldops/internal/config"
	"go.uber.org/zap"
)

const schedulerPrincipalID = "scheduler"

type Service struct {
	log            *zap.Logger
	sessionRepo    domain.SessionRepository
	clock          clock.Clock
	schedulerToken string
}

func New(log *zap.Logger, cfg config.Config, sessionRepo domain.SessionRepository, clk clock.Clock) domain.Service {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:            log.Named("auth.service"),
		sessionRepo:    sessionRepo,
		clock:          clk,
		schedulerToken: strings.TrimSpace(cfg.SchedulerToken),
	}
}

// Authenticate resolves the caller. A bearer token equal to the configured
// scheduler credential yields the system principal; otherwise the session
// cookie, then the bearer token, is looked up as a session token.
func (s *Service) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Principal, error) {
	bearer := strings.TrimSpace(creds.BearerToken)
	if bearer != "" && s.isSchedulerToken(bearer) {
		return domain.Principal{
			Type: domain.PrincipalSystem,
			ID:   schedulerPrincipalID,
			Role: "scheduler",
		}, nil
	}

	token := strings.TrimSpace(creds.SessionToken)
	if token == "" {
		token = bearer
	}
	if token == "" {
		return domain.Principal{}, domain.ErrMissingCredentials
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Principal{}, domain.ErrInvalidSession
		}
		return domain.Principal{}, err
	}

	if session.RevokedAt != nil {
		return domain.Principal{}, domain.ErrSessionRevoked
	}
	if !s.clock.Now().Before(session.ExpiresAt) {
		return domain.Principal{}, domain.ErrSessionExpired
	}

	return domain.Principal{
		Type: domain.PrincipalUser,
		ID:   session.UserID,
		Role: strings.ToLower(strings.TrimSpace(session.Role)),
	}, nil
}

func (s *Service) isSchedulerToken(token string) bool {
	if s.schedulerToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.schedulerToken)) == 1
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
