package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/activity"
	"github.com/smallbiznis/fieldops/internal/clock"
	"github.com/smallbiznis/fieldops/internal/config"
	"github.com/smallbiznis/fieldops/internal/enrichment"
	"github.com/smallbiznis/fieldops/internal/fieldservice"
	"github.com/smallbiznis/fieldops/internal/job"
	"github.com/smallbiznis/fieldops/internal/migration"
	"github.com/smallbiznis/fieldops/internal/notification"
	"github.com/smallbiznis/fieldops/internal/observability"
	"github.com/smallbiznis/fieldops/internal/providers"
	"github.com/smallbiznis/fieldops/internal/ratelimit"
	"github.com/smallbiznis/fieldops/internal/reference"
	"github.com/smallbiznis/fieldops/internal/syncengine"
	"github.com/smallbiznis/fieldops/internal/syncrun"
	"github.com/smallbiznis/fieldops/internal/technician"
	"github.com/smallbiznis/fieldops/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	root := &cobra.Command{
		Use:           "fieldops",
		Short:         "Field-service job sync and payment tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newBackfillCmd(), newSyncCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// coreModules is everything the sync engine needs, without the HTTP surface.
func coreModules() fx.Option {
	return fx.Options(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Upstream
		ratelimit.Module,
		fieldservice.Module,
		reference.Module,

		// Functional Domains
		providers.Module,
		notification.Module,
		technician.Module,
		syncrun.Module,
		job.Module,
		activity.Module,
		enrichment.Module,
		syncengine.Module,
	)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
