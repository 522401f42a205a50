package schedule

import (
	"context"
	"fmt"
	"time"

	"ztfalerts/internal/common/cache"
	"ztfalerts/internal/common/metrics"
	"ztfalerts/pkg/utils/logger"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Job is one pass of a periodic task.
type Job func(ctx context.Context) error

const (
	statusOK      = "ok"
	statusError   = "error"
	statusSkipped = "skipped"
)

// Runner runs a job immediately and then once per Interval until the context ends.
type Runner struct {
	Name     string
	Interval time.Duration
	Clock    clock.Clock

	// Locker is optional. When set, a pass runs only if LockKey can be taken.
	Locker  cache.Locker
	LockKey string
	LockTTL time.Duration
}

// Run blocks until ctx is done. Job failures are logged and do not stop the schedule.
func (r *Runner) Run(ctx context.Context, job Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if r.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	clk := r.Clock
	if clk == nil {
		clk = clock.New()
	}

	ticker := clk.Ticker(r.Interval)
	defer ticker.Stop()

	logger.Info(ctx, "scheduler started", zap.String("job", r.Name), zap.Duration("interval", r.Interval))
	r.RunOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "scheduler stopped", zap.String("job", r.Name))
			return nil
		case <-ticker.C:
			r.RunOnce(ctx, job)
		}
	}
}

// RunOnce executes a single guarded pass and reports its status.
func (r *Runner) RunOnce(ctx context.Context, job Job) string {
	clk := r.Clock
	if clk == nil {
		clk = clock.New()
	}

	if r.Locker != nil {
		ttl := r.LockTTL
		if ttl <= 0 {
			ttl = r.Interval
		}
		lease, ok, err := r.Locker.TryLock(ctx, r.LockKey, ttl)
		if err != nil {
			logger.Error(ctx, "acquire job lock failed", zap.String("job", r.Name), zap.Error(err))
			metrics.JobDurationSeconds.WithLabelValues(r.Name, statusError).Observe(0)
			return statusError
		}
		if !ok {
			logger.Info(ctx, "job lock held elsewhere, skipping run", zap.String("job", r.Name), zap.String("lock", r.LockKey))
			metrics.JobDurationSeconds.WithLabelValues(r.Name, statusSkipped).Observe(0)
			return statusSkipped
		}
		defer func() {
			if err := lease.Unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn(ctx, "release job lock failed", zap.String("job", r.Name), zap.Error(err))
			}
		}()
	}

	start := clk.Now()
	err := job(ctx)
	elapsed := clk.Since(start)
	if err != nil {
		logger.Error(ctx, "scheduled run failed", zap.String("job", r.Name), zap.Duration("duration", elapsed), zap.Error(err))
		metrics.JobDurationSeconds.WithLabelValues(r.Name, statusError).Observe(elapsed.Seconds())
		return statusError
	}
	logger.Info(ctx, "scheduled run finished", zap.String("job", r.Name), zap.Duration("duration", elapsed))
	metrics.JobDurationSeconds.WithLabelValues(r.Name, statusOK).Observe(elapsed.Seconds())
	return statusOK
}
