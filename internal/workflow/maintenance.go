package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hallvard/opsuite/internal/core"
)

// ScheduledBackupsWorkflow runs every minute from a Temporal cron schedule
// and triggers scheduled backups that are due.
func ScheduledBackupsWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result core.TickResult
	err := workflow.ExecuteActivity(ctx, "RunSchedulerTick").Get(ctx, &result)
	if err != nil {
		return err
	}
	if result.Due > 0 {
		workflow.GetLogger(ctx).Info("scheduler tick",
			"due", result.Due, "triggered", result.Triggered, "failed", result.Failed)
	}
	return nil
}

// RetentionReaperWorkflow runs hourly and enforces backup retention.
func RetentionReaperWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result core.ReapResult
	err := workflow.ExecuteActivity(ctx, "ReapExpiredBackups").Get(ctx, &result)
	if err != nil {
		return err
	}
	if result.Expired > 0 || result.Evicted > 0 {
		workflow.GetLogger(ctx).Info("retention reap",
			"expired", result.Expired, "evicted", result.Evicted)
	}
	return nil
}
