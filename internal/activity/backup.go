package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/hallvard/opsuite/internal/backup"
	"github.com/hallvard/opsuite/internal/metrics"
	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/storage"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Backup contains the activities behind the backup and restore
// workflows. All state lives in the core database and the blob store;
// the struct itself is stateless and safe for concurrent use.
type Backup struct {
	db     DB
	store  storage.BlobStore
	logger zerolog.Logger
}

// NewBackup creates a new Backup activity struct.
func NewBackup(db DB, store storage.BlobStore, logger zerolog.Logger) *Backup {
	return &Backup{db: db, store: store, logger: logger.With().Str("component", "backup-activity").Logger()}
}

// BackupContext bundles the backup row with its tenant for the workflows.
type BackupContext struct {
	Backup model.TenantBackup `json:"backup"`
	Tenant model.Tenant       `json:"tenant"`
}

// ClaimBackup flips a pending backup to in_progress and returns the
// backup together with its tenant. A retried activity finds the row
// already in_progress and proceeds; any other status aborts.
func (a *Backup) ClaimBackup(ctx context.Context, backupID string) (*BackupContext, error) {
	_, err := a.db.Exec(ctx,
		`UPDATE tenant_backups SET status = $1, progress = 5, current_step = 'starting'
		 WHERE id = $2 AND status = $3`,
		model.BackupStatusInProgress, backupID, model.BackupStatusPending)
	if err != nil {
		return nil, fmt.Errorf("claim backup %s: %w", backupID, err)
	}

	bctx, err := a.getBackupContext(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if bctx.Backup.Status != model.BackupStatusInProgress {
		return nil, fmt.Errorf("backup %s is %s, expected %s", backupID, bctx.Backup.Status, model.BackupStatusInProgress)
	}
	return bctx, nil
}

func (a *Backup) getBackupContext(ctx context.Context, backupID string) (*BackupContext, error) {
	var bctx BackupContext
	b := &bctx.Backup
	t := &bctx.Tenant
	err := a.db.QueryRow(ctx,
		`SELECT b.id, b.tenant_id, b.name, b.backup_type, b.status, b.progress, b.current_step, b.storage_key,
		        b.retention_days, b.expires_at, b.created_by_id, b.created_at,
		        t.id, t.name, t.slug, t.created_at, t.updated_at, t.deleted_at
		 FROM tenant_backups b JOIN tenants t ON t.id = b.tenant_id
		 WHERE b.id = $1`, backupID,
	).Scan(&b.ID, &b.TenantID, &b.Name, &b.BackupType, &b.Status, &b.Progress, &b.CurrentStep,
		&b.StorageKey, &b.RetentionDays, &b.ExpiresAt, &b.CreatedByID, &b.CreatedAt,
		&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("get backup context %s: %w", backupID, err)
	}
	return &bctx, nil
}

// UpdateBackupProgressParams holds the parameters for UpdateBackupProgress.
type UpdateBackupProgressParams struct {
	BackupID    string `json:"backup_id"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step"`
}

// UpdateBackupProgress writes the progress/current_step pair in one
// statement so pollers never see a torn update.
func (a *Backup) UpdateBackupProgress(ctx context.Context, params UpdateBackupProgressParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE tenant_backups SET progress = $1, current_step = $2 WHERE id = $3`,
		params.Progress, params.CurrentStep, params.BackupID)
	if err != nil {
		return fmt.Errorf("update backup progress: %w", err)
	}
	return nil
}

// ExportTenantDataParams holds the parameters for ExportTenantData.
type ExportTenantDataParams struct {
	BackupID         string `json:"backup_id"`
	TenantID         string `json:"tenant_id"`
	IncludeAuditLogs bool   `json:"include_audit_logs"`
}

// ExportTenantDataResult carries what the manifest needs from the
// export. The document itself goes straight to the blob store and is
// never passed through Temporal.
type ExportTenantDataResult struct {
	Checksum          string         `json:"checksum"`
	SchemaVersion     int            `json:"schema_version"`
	Stats             map[string]int `json:"stats"`
	DatabaseSizeBytes int64          `json:"database_size_bytes"`
}

// ExportTenantData snapshots the tenant's relational data inside a
// single repeatable-read transaction and uploads the canonicalized
// document to the backup's storage prefix.
func (a *Backup) ExportTenantData(ctx context.Context, params ExportTenantDataParams) (*ExportTenantDataResult, error) {
	tx, err := a.db.BeginTx(ctx, backup.ExportTxOptions)
	if err != nil {
		return nil, fmt.Errorf("begin export transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	doc, err := backup.ExportTenantData(ctx, tx, params.TenantID, backup.ExportOptions{
		IncludeAuditLogs: params.IncludeAuditLogs,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit export transaction: %w", err)
	}

	// Best effort; the checksum pass runs regardless of whether the
	// progress row caught up.
	_ = a.UpdateBackupProgress(ctx, UpdateBackupProgressParams{
		BackupID:    params.BackupID,
		Progress:    40,
		CurrentStep: "computing checksum",
	})

	checksum, err := backup.ComputeChecksum(doc)
	if err != nil {
		return nil, fmt.Errorf("compute checksum: %w", err)
	}
	data, err := backup.CanonicalJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("encode data document: %w", err)
	}

	prefix := backup.Prefix(params.TenantID, params.BackupID)
	if err := a.store.Put(ctx, backup.DataKey(prefix), data); err != nil {
		return nil, fmt.Errorf("upload data document: %w", err)
	}

	a.logger.Info().
		Str("backupId", params.BackupID).
		Str("tenantId", params.TenantID).
		Int("bytes", len(data)).
		Msg("tenant data exported")

	return &ExportTenantDataResult{
		Checksum:          checksum,
		SchemaVersion:     doc.SchemaVersion,
		Stats:             doc.Stats(),
		DatabaseSizeBytes: int64(len(data)),
	}, nil
}

// ArchiveTenantFilesParams holds the parameters for ArchiveTenantFiles.
type ArchiveTenantFilesParams struct {
	BackupID string `json:"backup_id"`
	TenantID string `json:"tenant_id"`
}

// ArchiveTenantFiles copies every live file object of the tenant into
// the backup prefix and returns the archived file list.
func (a *Backup) ArchiveTenantFiles(ctx context.Context, params ArchiveTenantFilesParams) ([]model.ManifestFile, error) {
	return backup.NewArchiver(a.store, a.logger).ArchiveFiles(ctx, params.TenantID, params.BackupID)
}

// FinalizeBackupParams holds the parameters for FinalizeBackup.
type FinalizeBackupParams struct {
	BackupID          string               `json:"backup_id"`
	Checksum          string               `json:"checksum"`
	SchemaVersion     int                  `json:"schema_version"`
	Stats             map[string]int       `json:"stats"`
	Files             []model.ManifestFile `json:"files"`
	DatabaseSizeBytes int64                `json:"database_size_bytes"`
}

// FinalizeBackup writes the manifest object and flips the backup to
// completed with its final sizes. This is the last step of a backup;
// a backup without a manifest is never considered complete.
func (a *Backup) FinalizeBackup(ctx context.Context, params FinalizeBackupParams) error {
	bctx, err := a.getBackupContext(ctx, params.BackupID)
	if err != nil {
		return err
	}

	manifest := backup.BuildManifest(&bctx.Backup, &bctx.Tenant, params.SchemaVersion, params.Stats, params.Files, params.Checksum)
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := a.store.Put(ctx, backup.ManifestKey(bctx.Backup.StorageKey), manifestJSON); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}

	filesSize := manifest.FilesSizeBytes()
	totalSize := params.DatabaseSizeBytes + filesSize
	_, err = a.db.Exec(ctx,
		`UPDATE tenant_backups
		 SET status = $1, progress = 100, current_step = '',
		     database_size_bytes = $2, files_size_bytes = $3, total_size_bytes = $4, files_count = $5,
		     manifest_json = $6, completed_at = now()
		 WHERE id = $7`,
		model.BackupStatusCompleted, params.DatabaseSizeBytes, filesSize, totalSize,
		len(params.Files), manifestJSON, params.BackupID)
	if err != nil {
		return fmt.Errorf("finalize backup %s: %w", params.BackupID, err)
	}

	metrics.BackupsTotal.WithLabelValues(bctx.Backup.BackupType, "completed").Inc()
	metrics.BackupDuration.Observe(time.Since(bctx.Backup.CreatedAt).Seconds())
	metrics.BackupBytes.Observe(float64(totalSize))

	a.logger.Info().
		Str("backupId", params.BackupID).
		Str("tenantId", bctx.Backup.TenantID).
		Int64("totalBytes", totalSize).
		Int("files", len(params.Files)).
		Msg("backup completed")
	return nil
}

// SetBackupFailedParams holds the parameters for SetBackupFailed.
type SetBackupFailedParams struct {
	BackupID string `json:"backup_id"`
	Message  string `json:"message"`
}

// SetBackupFailed marks a backup failed, releasing the tenant for new
// backups. Already-uploaded objects stay in place until the delete
// workflow or the reaper removes them.
func (a *Backup) SetBackupFailed(ctx context.Context, params SetBackupFailedParams) error {
	details, _ := json.Marshal(map[string]string{"error": params.Message})
	var backupType string
	err := a.db.QueryRow(ctx,
		`UPDATE tenant_backups
		 SET status = $1, current_step = '', error_message = $2, error_details = $3
		 WHERE id = $4
		 RETURNING backup_type`,
		model.BackupStatusFailed, params.Message, details, params.BackupID).Scan(&backupType)
	if err != nil {
		return fmt.Errorf("set backup %s failed: %w", params.BackupID, err)
	}
	metrics.BackupsTotal.WithLabelValues(backupType, "failed").Inc()
	return nil
}

// DeleteBackupObjects removes every object under the backup's storage
// prefix.
func (a *Backup) DeleteBackupObjects(ctx context.Context, backupID string) error {
	var storageKey string
	err := a.db.QueryRow(ctx, `SELECT storage_key FROM tenant_backups WHERE id = $1`, backupID).Scan(&storageKey)
	if err != nil {
		return fmt.Errorf("get backup %s storage key: %w", backupID, err)
	}
	if storageKey == "" {
		return nil
	}
	if err := a.store.DeletePrefix(ctx, storageKey); err != nil {
		return fmt.Errorf("delete backup objects under %s: %w", storageKey, err)
	}
	return nil
}
