// Package scheduler runs the periodic session sweep: expired sessions and
// revoked sessions past their retention window are deleted in the background.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/clock"
	obsmetrics "github.com/brightlearn/campus/internal/observability/metrics"
	"github.com/brightlearn/campus/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependencies")

const sweepLockKey = "jobs:session_sweep:lock"

type Params struct {
	fx.In

	Log      *zap.Logger
	Sessions domain.SessionManager
	Clock    clock.Clock
	Limiter  *ratelimit.AccountLimiter `optional:"true"`
	Config   Config                    `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	sessions domain.SessionManager
	clock    clock.Clock
	locker   *ratelimit.Locker
	cfg      Config
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Sessions == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		sessions: p.Sessions,
		clock:    p.Clock,
		locker:   p.Limiter.JobLocker(),
		cfg:      p.Config.withDefaults(),
	}, nil
}

// RunOnce executes one sweep under the job timeout. With redis configured,
// a distributed lock keeps concurrent instances from sweeping twice; lock
// acquisition failures degrade to running anyway since the sweep is
// idempotent.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.cfg.JobTimeout)
		if err != nil {
			s.log.Warn("sweep lock unavailable, running anyway", zap.Error(err))
		} else if !ok {
			s.log.Debug("sweep already running elsewhere, skipping")
			return nil
		} else {
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
					s.log.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	const job = "session_cleanup"
	metrics := obsmetrics.Scheduler()
	metrics.IncJobRun(job)
	start := s.clock.Now()

	deleted, err := s.sessions.Cleanup(ctx)
	metrics.ObserveJobDuration(job, s.clock.Now().Sub(start))
	if err != nil {
		metrics.IncJobError(job)
		return fmt.Errorf("%s: %w", job, err)
	}

	if deleted > 0 {
		metrics.AddSessionsDeleted("swept", deleted)
		s.log.Info("session sweep completed", zap.Int64("deleted", deleted))
	}
	return nil
}

// RunForever sweeps once per interval until the context is canceled.
// Failures are logged and never stop the loop.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("session sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
