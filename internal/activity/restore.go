package activity

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/hallvard/opsuite/internal/backup"
	"github.com/hallvard/opsuite/internal/model"
)

func (a *Backup) loadManifest(ctx context.Context, backupID string) (*model.BackupManifest, error) {
	var storageKey string
	err := a.db.QueryRow(ctx, `SELECT storage_key FROM tenant_backups WHERE id = $1`, backupID).Scan(&storageKey)
	if err != nil {
		return nil, fmt.Errorf("get backup %s storage key: %w", backupID, err)
	}

	data, err := a.store.Get(ctx, backup.ManifestKey(storageKey))
	if err != nil {
		return nil, fmt.Errorf("download manifest: %w", err)
	}
	manifest, err := backup.DecodeManifest(data)
	if errors.Is(err, backup.ErrSchemaTooNew) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "SchemaTooNew", err)
	}
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

func (a *Backup) fetchVerified(ctx context.Context, backupID string) (*model.BackupManifest, *backup.Document, error) {
	manifest, err := a.loadManifest(ctx, backupID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := backup.NewRestorer(a.db, a.store, a.logger).FetchDocument(ctx, manifest)
	if errors.Is(err, backup.ErrCorruptBackup) {
		return nil, nil, temporal.NewNonRetryableApplicationError(err.Error(), "CorruptBackup", err)
	}
	if err != nil {
		return nil, nil, err
	}
	return manifest, doc, nil
}

// ComputeRestoreDiff verifies the backup and reports what a restore
// would do, without touching the live stores. Manifest download,
// checksum verification and the diff run inside one activity so the
// data document never crosses the Temporal payload boundary.
func (a *Backup) ComputeRestoreDiff(ctx context.Context, params model.RestoreWorkflowParams) (*model.RestoreResult, error) {
	manifest, doc, err := a.fetchVerified(ctx, params.BackupID)
	if err != nil {
		return nil, err
	}
	diff, err := backup.NewRestorer(a.db, a.store, a.logger).ComputeDiff(ctx, manifest, doc, params.OverwriteExisting)
	if err != nil {
		return nil, err
	}
	return &model.RestoreResult{
		Success: true,
		Message: "dry run; no changes applied",
		Diff:    diff,
	}, nil
}

// ApplyRestore verifies the backup and reinserts its data and files
// into the live stores.
func (a *Backup) ApplyRestore(ctx context.Context, params model.RestoreWorkflowParams) (*model.RestoreResult, error) {
	manifest, doc, err := a.fetchVerified(ctx, params.BackupID)
	if err != nil {
		return nil, err
	}
	diff, err := backup.NewRestorer(a.db, a.store, a.logger).Apply(ctx, manifest, doc, params.OverwriteExisting)
	if err != nil {
		return nil, err
	}
	return &model.RestoreResult{
		Success: true,
		Message: "restore applied",
		Diff:    diff,
	}, nil
}

// MarkBackupRestoredParams holds the parameters for MarkBackupRestored.
type MarkBackupRestoredParams struct {
	BackupID     string  `json:"backup_id"`
	RestoredByID *string `json:"restored_by_id,omitempty"`
}

// MarkBackupRestored records a successful restore and releases the
// tenant lock.
func (a *Backup) MarkBackupRestored(ctx context.Context, params MarkBackupRestoredParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE tenant_backups
		 SET status = $1, progress = 100, current_step = '', restored_at = now(), restored_by_id = $2
		 WHERE id = $3`,
		model.BackupStatusRestored, params.RestoredByID, params.BackupID)
	if err != nil {
		return fmt.Errorf("mark backup %s restored: %w", params.BackupID, err)
	}
	return nil
}

// RevertBackupToCompletedParams holds the parameters for
// RevertBackupToCompleted.
type RevertBackupToCompletedParams struct {
	BackupID string `json:"backup_id"`
	Message  string `json:"message"`
}

// RevertBackupToCompleted returns a backup from restoring to completed
// after a failed restore, recording why the restore failed. The backup
// itself is still intact; only the restore attempt failed.
func (a *Backup) RevertBackupToCompleted(ctx context.Context, params RevertBackupToCompletedParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE tenant_backups SET status = $1, progress = 100, current_step = '', error_message = $2
		 WHERE id = $3 AND status = $4`,
		model.BackupStatusCompleted, params.Message, params.BackupID, model.BackupStatusRestoring)
	if err != nil {
		return fmt.Errorf("revert backup %s to completed: %w", params.BackupID, err)
	}
	return nil
}
