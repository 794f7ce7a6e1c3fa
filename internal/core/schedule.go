package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/platform"
)

const scheduleColumns = `id, tenant_id, cron_pattern, timezone, is_enabled, retention_days, max_backups,
	last_run_at, last_backup_id, next_run_at, last_error, consecutive_failures, created_at, updated_at`

type ScheduleService struct {
	db  DB
	now func() time.Time
}

func NewScheduleService(db DB) *ScheduleService {
	return &ScheduleService{db: db, now: time.Now}
}

type ScheduleParams struct {
	CronPattern   string
	Timezone      string
	IsEnabled     bool
	RetentionDays *int
	MaxBackups    *int
}

func (p ScheduleParams) validate() error {
	if err := platform.ValidateCronPattern(p.CronPattern); err != nil {
		return fmt.Errorf("invalid cron pattern %q: %v: %w", p.CronPattern, err, ErrValidation)
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", p.Timezone, ErrValidation)
	}
	if p.RetentionDays != nil && *p.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive: %w", ErrValidation)
	}
	if p.MaxBackups != nil && *p.MaxBackups <= 0 {
		return fmt.Errorf("max_backups must be positive: %w", ErrValidation)
	}
	return nil
}

// Create registers the backup schedule for a tenant. Each tenant has at
// most one schedule; a second create fails with ErrConflict.
func (s *ScheduleService) Create(ctx context.Context, tenantID string, p ScheduleParams) (*model.BackupSchedule, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1 AND deleted_at IS NULL)`, tenantID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check tenant %s: %w", tenantID, err)
	}
	if !exists {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrNotFound)
	}

	now := s.now().UTC()
	next, err := platform.NextCronRun(p.CronPattern, p.Timezone, now)
	if err != nil {
		return nil, fmt.Errorf("compute next run: %v: %w", err, ErrValidation)
	}

	sched := &model.BackupSchedule{
		ID:            platform.NewID(),
		TenantID:      tenantID,
		CronPattern:   p.CronPattern,
		Timezone:      p.Timezone,
		IsEnabled:     p.IsEnabled,
		RetentionDays: p.RetentionDays,
		MaxBackups:    p.MaxBackups,
		NextRunAt:     next,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO backup_schedules (id, tenant_id, cron_pattern, timezone, is_enabled, retention_days, max_backups, next_run_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sched.ID, sched.TenantID, sched.CronPattern, sched.Timezone, sched.IsEnabled,
		sched.RetentionDays, sched.MaxBackups, sched.NextRunAt, sched.CreatedAt, sched.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("tenant %s already has a backup schedule: %w", tenantID, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert backup schedule: %w", err)
	}
	return sched, nil
}

func (s *ScheduleService) GetByTenant(ctx context.Context, tenantID string) (*model.BackupSchedule, error) {
	sched, err := scanSchedule(s.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE tenant_id = $1`, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("backup schedule for tenant %s: %w", tenantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup schedule for tenant %s: %w", tenantID, err)
	}
	return sched, nil
}

// Update replaces the schedule configuration for a tenant and
// recomputes the next run from the new pattern and timezone.
func (s *ScheduleService) Update(ctx context.Context, tenantID string, p ScheduleParams) (*model.BackupSchedule, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	next, err := platform.NextCronRun(p.CronPattern, p.Timezone, now)
	if err != nil {
		return nil, fmt.Errorf("compute next run: %v: %w", err, ErrValidation)
	}

	sched, err := scanSchedule(s.db.QueryRow(ctx,
		`UPDATE backup_schedules
		 SET cron_pattern = $1, timezone = $2, is_enabled = $3, retention_days = $4, max_backups = $5, next_run_at = $6, updated_at = $7
		 WHERE tenant_id = $8
		 RETURNING `+scheduleColumns,
		p.CronPattern, p.Timezone, p.IsEnabled, p.RetentionDays, p.MaxBackups, next, now, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("backup schedule for tenant %s: %w", tenantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update backup schedule for tenant %s: %w", tenantID, err)
	}
	return sched, nil
}

func (s *ScheduleService) List(ctx context.Context) ([]model.BackupSchedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list backup schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.BackupSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup schedule: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleService) Delete(ctx context.Context, tenantID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM backup_schedules WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("delete backup schedule for tenant %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("backup schedule for tenant %s: %w", tenantID, ErrNotFound)
	}
	return nil
}

func scanSchedule(row scannable) (*model.BackupSchedule, error) {
	var sc model.BackupSchedule
	err := row.Scan(&sc.ID, &sc.TenantID, &sc.CronPattern, &sc.Timezone, &sc.IsEnabled,
		&sc.RetentionDays, &sc.MaxBackups, &sc.LastRunAt, &sc.LastBackupID,
		&sc.NextRunAt, &sc.LastError, &sc.ConsecutiveFailures, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}
