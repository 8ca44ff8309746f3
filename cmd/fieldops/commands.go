package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	"github.com/smallbiznis/fieldops/internal/scheduler"
	"github.com/smallbiznis/fieldops/internal/server"
	"github.com/smallbiznis/fieldops/internal/syncengine"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cliActorID = "cli"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the optional in-process scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				coreModules(),
				server.Module,
				scheduler.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newBackfillCmd() *cobra.Command {
	var from int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Walk every backfill chunk from --from until the range is done",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 0 {
				return fmt.Errorf("--from must be >= 0, got %d", from)
			}
			return withSyncService(cmd.Context(), func(ctx context.Context, svc syncengine.Service, log *zap.Logger) error {
				return runBackfill(ctx, svc, log, from)
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "chunk index to start from; use the failed index to resume")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one incremental sync over the recent lookback window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncService(cmd.Context(), func(ctx context.Context, svc syncengine.Service, log *zap.Logger) error {
				result, err := svc.RunIncremental(ctx)
				if err != nil {
					return err
				}
				log.Info("incremental sync finished",
					zap.String("run_id", result.RunID),
					zap.Int("jobs_processed", result.JobsProcessed),
					zap.Int("jobs_created", result.JobsCreated),
					zap.Int("jobs_updated", result.JobsUpdated),
					zap.Int("job_errors", len(result.Errors)),
				)
				return nil
			})
		},
	}
}

func runBackfill(ctx context.Context, svc syncengine.Service, log *zap.Logger, from int) error {
	for chunk := from; ; chunk++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := svc.RunBackfillChunk(ctx, chunk)
		if err != nil {
			var windowErr *syncengine.WindowError
			if errors.As(err, &windowErr) {
				return fmt.Errorf("%w; resume with --from %d", err, windowErr.Chunk)
			}
			return err
		}
		log.Info("backfill chunk finished",
			zap.Int("chunk", result.Chunk),
			zap.Int("chunks_total", result.ChunksTotal),
			zap.Int("jobs_processed", result.JobsProcessed),
			zap.Int("jobs_created", result.JobsCreated),
			zap.Int("jobs_updated", result.JobsUpdated),
			zap.Int("job_errors", len(result.Errors)),
		)
		if result.Done {
			return nil
		}
	}
}

// withSyncService starts the core graph without HTTP and hands fn a context
// that acts as the system CLI actor and is cancelled on SIGINT/SIGTERM.
func withSyncService(parent context.Context, fn func(context.Context, syncengine.Service, *zap.Logger) error) error {
	if parent == nil {
		parent = context.Background()
	}
	var (
		svc syncengine.Service
		log *zap.Logger
	)
	app := fx.New(
		coreModules(),
		fx.NopLogger,
		fx.Populate(&svc, &log),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(parent, fx.DefaultTimeout)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancelStop()
		if err := app.Stop(stopCtx); err != nil {
			log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = obscontext.WithActor(ctx, "system", cliActorID)

	return fn(ctx, svc, log.Named("cli"))
}
