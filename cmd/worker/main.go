package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/fleet/internal/activity"
	"github.com/edvin/fleet/internal/config"
	"github.com/edvin/fleet/internal/db"
	"github.com/edvin/fleet/internal/logging"
	"github.com/edvin/fleet/internal/metrics"
	"github.com/edvin/fleet/internal/provisioner"
	"github.com/edvin/fleet/internal/workflow"
)

const taskQueue = "fleet-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, taskQueue, worker.Options{})

	// Register activities
	fleetDBActivities := activity.NewFleetDB(pool)
	w.RegisterActivity(fleetDBActivities)

	providerClient := provisioner.NewHTTPClient(cfg.ProviderAPIURL, cfg.ProviderAPIToken)
	providerActivities := activity.NewProvisioner(providerClient)
	w.RegisterActivity(providerActivities)

	// Register workflows
	w.RegisterWorkflow(workflow.DedicatedDeploymentWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("worker failed")
	}

	logger.Info().Msg("shutting down worker")
}
