package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brightlearn/campus/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Action names the throttled operation classes.
type Action string

const (
	ActionPassword Action = "password"
	ActionProfile  Action = "profile"
	ActionRevoke   Action = "revoke"
)

const secondsPerHour = 3600

type actionLimit struct {
	rate  float64 // tokens per second
	burst int
}

// AccountLimiter throttles sensitive operations per account. A nil limiter
// (redis not configured) allows everything, and redis failures fail open:
// throttling is protection, not a dependency.
type AccountLimiter struct {
	bucket *TokenBucket
	locker *Locker
	limits map[Action]actionLimit
	log    *zap.Logger
}

func NewAccountLimiter(cfg config.Config, log *zap.Logger) (*AccountLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	for name, v := range map[string]float64{
		"password": limitCfg.PasswordPerHour,
		"profile":  limitCfg.ProfilePerHour,
		"revoke":   limitCfg.RevokePerHour,
	} {
		if v <= 0 {
			return nil, fmt.Errorf("rate limit %s per-hour must be positive", name)
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &AccountLimiter{
		bucket: NewTokenBucket(client),
		locker: NewLocker(client),
		limits: map[Action]actionLimit{
			ActionPassword: {rate: limitCfg.PasswordPerHour / secondsPerHour, burst: limitCfg.PasswordBurst},
			ActionProfile:  {rate: limitCfg.ProfilePerHour / secondsPerHour, burst: limitCfg.ProfileBurst},
			ActionRevoke:   {rate: limitCfg.RevokePerHour / secondsPerHour, burst: limitCfg.RevokeBurst},
		},
		log: log.Named("ratelimit"),
	}, nil
}

// Allow reports whether the account may perform the action now. The second
// return is the suggested retry delay when throttled.
func (l *AccountLimiter) Allow(ctx context.Context, action Action, accountID string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	limit, ok := l.limits[action]
	if !ok {
		return true, 0
	}

	key := fmt.Sprintf("throttle:%s:%s", action, accountID)
	res, err := l.bucket.Allow(ctx, key, limit.rate, limit.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request",
			zap.String("action", string(action)),
			zap.Error(err))
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}

// JobLocker exposes the distributed lock for background jobs. Nil when the
// limiter (and thus redis) is not configured.
func (l *AccountLimiter) JobLocker() *Locker {
	if l == nil {
		return nil
	}
	return l.locker
}
