package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fieldops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minWait = 50 * time.Millisecond

// OutboundLimiter paces calls to the field-service platform. Processes that
// share a redis instance share the budget. A nil limiter never blocks.
type OutboundLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewOutboundLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *OutboundLimiter {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	rate := cfg.FieldService.RateLimitPerSecond
	if addr == "" || rate <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
	}
	return newOutboundLimiter(NewTokenBucket(client), rate, cfg.FieldService.RateLimitBurst, log)
}

func newOutboundLimiter(bucket *TokenBucket, rate float64, burst int, log *zap.Logger) *OutboundLimiter {
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboundLimiter{bucket: bucket, rate: rate, burst: burst, log: log.Named("ratelimit")}
}

// Wait blocks until a token for key is available or ctx ends. Redis failures
// fail open so a cache outage cannot stop a sync.
func (l *OutboundLimiter) Wait(ctx context.Context, key string) error {
	if l == nil || l.bucket == nil {
		return nil
	}
	for {
		res, err := l.bucket.Allow(ctx, "ratelimit:"+key, l.rate, l.burst)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Warn("rate limiter unavailable, proceeding", zap.String("key", key), zap.Error(err))
			return nil
		}
		if res.Allowed {
			return nil
		}

		wait := res.RetryAfter
		if wait < minWait {
			wait = minWait
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	case int64:
		return float64(val)
	default:
		return 0
	}
}
