package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/platform"
)

// SchedulerService turns due backup schedules into scheduled backups.
// Tick is invoked periodically from a cron workflow on the worker; it
// is safe to call from multiple processes since backup creation is
// serialized per tenant by the database.
type SchedulerService struct {
	db          DB
	backups     *BackupService
	logger      zerolog.Logger
	concurrency int
}

func NewSchedulerService(db DB, backups *BackupService, logger zerolog.Logger, concurrency int) *SchedulerService {
	if concurrency < 1 {
		concurrency = 4
	}
	return &SchedulerService{
		db:          db,
		backups:     backups,
		logger:      logger.With().Str("component", "scheduler").Logger(),
		concurrency: concurrency,
	}
}

type TickResult struct {
	Due       int `json:"due"`
	Triggered int `json:"triggered"`
	Failed    int `json:"failed"`
}

// Tick finds every enabled schedule whose next_run_at has passed and
// triggers a scheduled backup for each. Failures are isolated per
// schedule, and next_run_at is always advanced so one bad tenant can
// never stall the scheduler.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE is_enabled AND next_run_at <= $1 ORDER BY next_run_at`, now)
	if err != nil {
		return TickResult{}, fmt.Errorf("query due schedules: %w", err)
	}
	defer rows.Close()

	var due []model.BackupSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return TickResult{}, fmt.Errorf("scan schedule: %w", err)
		}
		due = append(due, *sched)
	}
	if err := rows.Err(); err != nil {
		return TickResult{}, fmt.Errorf("iterate schedules: %w", err)
	}

	var triggered, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, sched := range due {
		sched := sched
		g.Go(func() error {
			if s.runSchedule(gctx, sched, now) {
				triggered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return TickResult{
		Due:       len(due),
		Triggered: int(triggered.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

func (s *SchedulerService) runSchedule(ctx context.Context, sched model.BackupSchedule, now time.Time) bool {
	next, nextErr := platform.NextCronRun(sched.CronPattern, sched.Timezone, now)
	if nextErr != nil {
		// Stored pattern or timezone went bad (for example a removed
		// tzdata zone). Push the schedule an hour out so it is retried
		// but does not spin.
		next = now.Add(time.Hour)
	}

	b, err := s.backups.Create(ctx, CreateBackupParams{
		TenantID:      sched.TenantID,
		BackupType:    model.BackupTypeScheduled,
		RetentionDays: sched.RetentionDays,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("tenantId", sched.TenantID).Msg("scheduled backup failed to start")
		msg := err.Error()
		if _, uerr := s.db.Exec(ctx,
			`UPDATE backup_schedules
			 SET last_error = $1, consecutive_failures = consecutive_failures + 1, next_run_at = $2, updated_at = now()
			 WHERE id = $3`,
			msg, next, sched.ID); uerr != nil {
			s.logger.Error().Err(uerr).Str("scheduleId", sched.ID).Msg("failed to record schedule failure")
		}
		return false
	}

	s.logger.Info().Str("tenantId", sched.TenantID).Str("backupId", b.ID).Msg("scheduled backup started")
	if _, uerr := s.db.Exec(ctx,
		`UPDATE backup_schedules
		 SET last_run_at = $1, last_backup_id = $2, last_error = NULL, consecutive_failures = 0, next_run_at = $3, updated_at = now()
		 WHERE id = $4`,
		now, b.ID, next, sched.ID); uerr != nil {
		s.logger.Error().Err(uerr).Str("scheduleId", sched.ID).Msg("failed to record schedule run")
	}
	return true
}
