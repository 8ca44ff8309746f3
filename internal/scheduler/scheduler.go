package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/clock"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	"github.com/smallbiznis/fieldops/internal/syncengine"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobIncrementalSync = "incremental_sync"

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  Config
	Sync    syncengine.Service
	GenID   *snowflake.Node
	Clock   clock.Clock             `optional:"true"`
	Metrics *obsmetrics.SyncMetrics `optional:"true"`
}

// Scheduler is one more sequential caller of the sync trigger. It never runs
// two syncs at once: each run finishes or times out before the next tick.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	sync    syncengine.Service
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.SyncMetrics
}

func New(p Params) *Scheduler {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler"),
		cfg:     p.Config.withDefaults(),
		sync:    p.Sync,
		genID:   p.GenID,
		clock:   clk,
		metrics: p.Metrics,
	}
}

// RunOnce triggers one incremental sync bounded by the run timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobIncrementalSync, s.cfg.RunTimeout, func(ctx context.Context, run *jobRun) error {
		res, err := s.sync.RunIncremental(ctx)
		run.AddProcessed(res.JobsProcessed)
		for range res.Errors {
			run.IncError()
		}
		return err
	})
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	s.metrics.IncSchedulerRun()

	err := fn(ctx, run)
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick retries the same window
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logSchedulerError(ctx, "scheduler.job.timeout", name, err)
		return err
	}
	s.logSchedulerError(ctx, "scheduler.job.failed", name, err)
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
