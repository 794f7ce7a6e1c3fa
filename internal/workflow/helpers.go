package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/hallvard/opsuite/internal/activity"
)

// setBackupFailed marks the backup failed with the error message.
// Called on the failure paths of the backup workflow; best effort.
func setBackupFailed(ctx workflow.Context, backupID string, err error) error {
	return workflow.ExecuteActivity(ctx, "SetBackupFailed", activity.SetBackupFailedParams{
		BackupID: backupID,
		Message:  err.Error(),
	}).Get(ctx, nil)
}

func updateProgress(ctx workflow.Context, backupID string, progress int, step string) error {
	return workflow.ExecuteActivity(ctx, "UpdateBackupProgress", activity.UpdateBackupProgressParams{
		BackupID:    backupID,
		Progress:    progress,
		CurrentStep: step,
	}).Get(ctx, nil)
}
