package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/hallvard/opsuite/internal/activity"
	"github.com/hallvard/opsuite/internal/config"
	"github.com/hallvard/opsuite/internal/core"
	"github.com/hallvard/opsuite/internal/db"
	"github.com/hallvard/opsuite/internal/logging"
	"github.com/hallvard/opsuite/internal/metrics"
	"github.com/hallvard/opsuite/internal/storage"
	"github.com/hallvard/opsuite/internal/workflow"
)

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

	store := storage.NewS3Store(logger, cfg)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, core.TaskQueue, worker.Options{})

	// Register activities
	backupActivities := activity.NewBackup(pool, store, logger)
	w.RegisterActivity(backupActivities)

	backups := core.NewBackupService(pool, tc)
	scheduler := core.NewSchedulerService(pool, backups, logger, cfg.SchedulerConcurrency)
	reaper := core.NewReaperService(pool, store, logger)
	w.RegisterActivity(activity.NewMaintenance(scheduler, reaper))

	// Register workflows
	w.RegisterWorkflow(workflow.CreateBackupWorkflow)
	w.RegisterWorkflow(workflow.RestoreBackupWorkflow)
	w.RegisterWorkflow(workflow.DeleteBackupWorkflow)
	w.RegisterWorkflow(workflow.ScheduledBackupsWorkflow)
	w.RegisterWorkflow(workflow.RetentionReaperWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", core.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "scheduled-backups-cron",
			cron:     "* * * * *",
			workflow: workflow.ScheduledBackupsWorkflow,
		},
		{
			id:       "retention-reaper-cron",
			cron:     "0 * * * *",
			workflow: workflow.RetentionReaperWorkflow,
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				TaskQueue: core.TaskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
