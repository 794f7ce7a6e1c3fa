package activity

import (
	"context"
	"time"

	"github.com/hallvard/opsuite/internal/core"
)

// Maintenance contains the activities behind the cron workflows.
type Maintenance struct {
	scheduler *core.SchedulerService
	reaper    *core.ReaperService
}

// NewMaintenance creates a new Maintenance activity struct.
func NewMaintenance(scheduler *core.SchedulerService, reaper *core.ReaperService) *Maintenance {
	return &Maintenance{scheduler: scheduler, reaper: reaper}
}

// RunSchedulerTick triggers scheduled backups that are due.
func (a *Maintenance) RunSchedulerTick(ctx context.Context) (core.TickResult, error) {
	return a.scheduler.Tick(ctx, time.Now().UTC())
}

// ReapExpiredBackups enforces retention across all tenants.
func (a *Maintenance) ReapExpiredBackups(ctx context.Context) (core.ReapResult, error) {
	return a.reaper.Reap(ctx, time.Now().UTC())
}
