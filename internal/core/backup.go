package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/hallvard/opsuite/internal/backup"
	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/platform"
)

const backupColumns = `id, tenant_id, name, backup_type, status, progress, current_step, storage_key,
	database_size_bytes, files_size_bytes, total_size_bytes, files_count,
	error_message, error_details, restored_at, restored_by_id,
	retention_days, expires_at, created_by_id, created_at, completed_at, deleted_at, manifest_json`

type BackupService struct {
	db  DB
	tc  temporalclient.Client
	now func() time.Time
}

func NewBackupService(db DB, tc temporalclient.Client) *BackupService {
	return &BackupService{db: db, tc: tc, now: time.Now}
}

type CreateBackupParams struct {
	TenantID         string
	Name             *string
	BackupType       string
	RetentionDays    *int
	IncludeAuditLogs bool
	CreatedByID      *string
}

// Create inserts a pending backup row and starts the backup workflow.
// A partial unique index on tenant_backups guarantees at most one
// pending/in_progress/restoring backup per tenant, so a concurrent
// create for the same tenant fails here with ErrConflict regardless of
// which process it came from.
func (s *BackupService) Create(ctx context.Context, p CreateBackupParams) (*model.TenantBackup, error) {
	if p.RetentionDays != nil && *p.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention_days must be positive: %w", ErrValidation)
	}
	if p.BackupType == "" {
		p.BackupType = model.BackupTypeManual
	}

	var deletedAt *time.Time
	err := s.db.QueryRow(ctx, `SELECT deleted_at FROM tenants WHERE id = $1`, p.TenantID).Scan(&deletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenant %s: %w", p.TenantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", p.TenantID, err)
	}
	if deletedAt != nil {
		return nil, fmt.Errorf("tenant %s is deleted: %w", p.TenantID, ErrValidation)
	}

	b := &model.TenantBackup{
		ID:            platform.NewID(),
		TenantID:      p.TenantID,
		Name:          p.Name,
		BackupType:    p.BackupType,
		Status:        model.BackupStatusPending,
		CurrentStep:   "waiting to start",
		RetentionDays: p.RetentionDays,
		CreatedByID:   p.CreatedByID,
		CreatedAt:     s.now().UTC(),
	}
	b.StorageKey = backup.Prefix(b.TenantID, b.ID)
	b.ExpiresAt = b.DeriveExpiresAt()

	_, err = s.db.Exec(ctx,
		`INSERT INTO tenant_backups (id, tenant_id, name, backup_type, status, progress, current_step, storage_key, retention_days, expires_at, created_by_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.TenantID, b.Name, b.BackupType, b.Status, b.Progress, b.CurrentStep,
		b.StorageKey, b.RetentionDays, b.ExpiresAt, b.CreatedByID, b.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("a backup or restore is already in progress for tenant %s: %w", p.TenantID, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("create-backup-%s", b.ID),
		TaskQueue: TaskQueue,
	}, "CreateBackupWorkflow", model.CreateBackupWorkflowParams{
		BackupID:         b.ID,
		IncludeAuditLogs: p.IncludeAuditLogs,
	})
	if err != nil {
		// Release the tenant lock so the failed start does not block
		// future backups.
		_, _ = s.db.Exec(ctx,
			`UPDATE tenant_backups SET status = $1, error_message = $2 WHERE id = $3`,
			model.BackupStatusFailed, "failed to start backup workflow", b.ID)
		return nil, fmt.Errorf("start CreateBackupWorkflow: %w", err)
	}

	return b, nil
}

func (s *BackupService) GetByID(ctx context.Context, id string) (*model.TenantBackup, error) {
	b, err := scanBackup(s.db.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM tenant_backups WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return b, nil
}

type ListBackupsParams struct {
	TenantID string
	Status   string
	Page     int
	Limit    int
}

// List returns one page of backups plus the total row count for the
// filter, newest first.
func (s *BackupService) List(ctx context.Context, p ListBackupsParams) ([]model.TenantBackup, int, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}

	var conds []string
	var args []any
	if p.TenantID != "" {
		args = append(args, p.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if p.Status != "" {
		args = append(args, p.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	} else {
		conds = append(conds, "status <> 'deleted'")
	}
	where := "WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM tenant_backups `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count backups: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tenant_backups %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		backupColumns, where, len(args)+1, len(args)+2)
	args = append(args, p.Limit, (p.Page-1)*p.Limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.TenantBackup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate backups: %w", err)
	}
	return backups, total, nil
}

// Delete marks a backup deleted and starts the workflow that removes
// its objects from storage. Backups that are currently running or
// restoring cannot be deleted.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenant_backups SET status = $1, deleted_at = now()
		 WHERE id = $2 AND status NOT IN ('pending', 'in_progress', 'restoring', 'deleted')`,
		model.BackupStatusDeleted, id)
	if err != nil {
		return fmt.Errorf("mark backup %s deleted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		b, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("backup %s cannot be deleted while %s: %w", id, b.Status, ErrConflict)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("delete-backup-%s", id),
		TaskQueue: TaskQueue,
	}, "DeleteBackupWorkflow", id)
	if err != nil {
		return fmt.Errorf("start DeleteBackupWorkflow: %w", err)
	}
	return nil
}

type RestoreParams struct {
	DryRun            bool
	OverwriteExisting bool
	RequestedByID     *string
}

// Restore restores a completed backup into its tenant. A dry run
// executes synchronously and returns the diff that a real restore
// would apply. A real restore flips the backup to restoring, which
// re-arms the per-tenant exclusion lock, and runs asynchronously.
func (s *BackupService) Restore(ctx context.Context, id string, p RestoreParams) (*model.RestoreResult, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BackupStatusCompleted {
		return nil, fmt.Errorf("backup %s is not restorable (status: %s): %w", id, b.Status, ErrConflict)
	}

	wfParams := model.RestoreWorkflowParams{
		BackupID:          id,
		DryRun:            p.DryRun,
		OverwriteExisting: p.OverwriteExisting,
		RequestedByID:     p.RequestedByID,
	}

	if p.DryRun {
		run, err := s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
			ID:        fmt.Sprintf("restore-dryrun-%s-%s", id, platform.NewID()),
			TaskQueue: TaskQueue,
		}, "RestoreBackupWorkflow", wfParams)
		if err != nil {
			return nil, fmt.Errorf("start restore dry run: %w", err)
		}
		var result model.RestoreResult
		if err := run.Get(ctx, &result); err != nil {
			var appErr *temporal.ApplicationError
			if errors.As(err, &appErr) {
				switch appErr.Type() {
				case "CorruptBackup":
					return nil, fmt.Errorf("backup %s: %w", id, backup.ErrCorruptBackup)
				case "SchemaTooNew":
					return nil, fmt.Errorf("backup %s: %w", id, backup.ErrSchemaTooNew)
				}
			}
			return nil, fmt.Errorf("restore dry run: %w", err)
		}
		return &result, nil
	}

	// Transition completed -> restoring. The partial unique index makes
	// this fail when another backup of the tenant is already active; the
	// status guard makes it fail when this row raced another restore.
	tag, err := s.db.Exec(ctx,
		`UPDATE tenant_backups SET status = $1, progress = 0, current_step = 'preparing restore'
		 WHERE id = $2 AND status = 'completed'`,
		model.BackupStatusRestoring, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("a backup or restore is already in progress for tenant %s: %w", b.TenantID, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("mark backup %s restoring: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("backup %s is no longer restorable: %w", id, ErrConflict)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("restore-backup-%s", id),
		TaskQueue: TaskQueue,
	}, "RestoreBackupWorkflow", wfParams)
	if err != nil {
		_, _ = s.db.Exec(ctx,
			`UPDATE tenant_backups SET status = $1, current_step = '' WHERE id = $2`,
			model.BackupStatusCompleted, id)
		return nil, fmt.Errorf("start RestoreBackupWorkflow: %w", err)
	}

	return &model.RestoreResult{Success: true, Message: "restore started"}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBackup(row scannable) (*model.TenantBackup, error) {
	var b model.TenantBackup
	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.BackupType, &b.Status, &b.Progress,
		&b.CurrentStep, &b.StorageKey, &b.DatabaseSizeBytes, &b.FilesSizeBytes,
		&b.TotalSizeBytes, &b.FilesCount, &b.ErrorMessage, &b.ErrorDetails,
		&b.RestoredAt, &b.RestoredByID, &b.RetentionDays, &b.ExpiresAt,
		&b.CreatedByID, &b.CreatedAt, &b.CompletedAt, &b.DeletedAt, &b.ManifestJSON)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
