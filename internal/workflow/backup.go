package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hallvard/opsuite/internal/activity"
	"github.com/hallvard/opsuite/internal/model"
)

// CreateBackupWorkflow captures a consistent snapshot of one tenant:
// the relational export and the file archive run in parallel, then the
// manifest write completes the backup. Any failure marks the backup
// failed, which releases the per-tenant lock.
func CreateBackupWorkflow(ctx workflow.Context, params model.CreateBackupWorkflowParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	backupID := params.BackupID

	var bctx activity.BackupContext
	err := workflow.ExecuteActivity(ctx, "ClaimBackup", backupID).Get(ctx, &bctx)
	if err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	_ = updateProgress(ctx, backupID, 10, "exporting data")

	exportFut := workflow.ExecuteActivity(ctx, "ExportTenantData", activity.ExportTenantDataParams{
		BackupID:         backupID,
		TenantID:         bctx.Backup.TenantID,
		IncludeAuditLogs: params.IncludeAuditLogs,
	})
	archiveFut := workflow.ExecuteActivity(ctx, "ArchiveTenantFiles", activity.ArchiveTenantFilesParams{
		BackupID: backupID,
		TenantID: bctx.Backup.TenantID,
	})

	var export activity.ExportTenantDataResult
	if err := exportFut.Get(ctx, &export); err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	_ = updateProgress(ctx, backupID, 50, "archiving files")

	var files []model.ManifestFile
	if err := archiveFut.Get(ctx, &files); err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	_ = updateProgress(ctx, backupID, 85, "writing manifest")

	err = workflow.ExecuteActivity(ctx, "FinalizeBackup", activity.FinalizeBackupParams{
		BackupID:          backupID,
		Checksum:          export.Checksum,
		SchemaVersion:     export.SchemaVersion,
		Stats:             export.Stats,
		Files:             files,
		DatabaseSizeBytes: export.DatabaseSizeBytes,
	}).Get(ctx, nil)
	if err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}
	return nil
}

// RestoreBackupWorkflow restores a backup into its tenant. A dry run
// only computes the diff. A real restore applies the data and files,
// then marks the backup restored; on failure the backup flips back to
// completed since the snapshot itself is still intact.
func RestoreBackupWorkflow(ctx workflow.Context, params model.RestoreWorkflowParams) (*model.RestoreResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	if params.DryRun {
		var result model.RestoreResult
		err := workflow.ExecuteActivity(ctx, "ComputeRestoreDiff", params).Get(ctx, &result)
		if err != nil {
			return nil, err
		}
		return &result, nil
	}

	_ = updateProgress(ctx, params.BackupID, 20, "verifying backup data")

	var result model.RestoreResult
	err := workflow.ExecuteActivity(ctx, "ApplyRestore", params).Get(ctx, &result)
	if err != nil {
		_ = workflow.ExecuteActivity(ctx, "RevertBackupToCompleted", activity.RevertBackupToCompletedParams{
			BackupID: params.BackupID,
			Message:  err.Error(),
		}).Get(ctx, nil)
		return nil, err
	}

	err = workflow.ExecuteActivity(ctx, "MarkBackupRestored", activity.MarkBackupRestoredParams{
		BackupID:     params.BackupID,
		RestoredByID: params.RequestedByID,
	}).Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteBackupWorkflow removes a deleted backup's objects from storage.
// The row is marked deleted before this workflow starts.
func DeleteBackupWorkflow(ctx workflow.Context, backupID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	return workflow.ExecuteActivity(ctx, "DeleteBackupObjects", backupID).Get(ctx, nil)
}
