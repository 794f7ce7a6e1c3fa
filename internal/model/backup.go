package model

import (
	"encoding/json"
	"time"
)

// TenantBackup is one backup attempt/result for a tenant. The row is mutated
// in place as the backup workflow progresses; pollers read the
// status/progress/current_step triple, which is always written atomically.
type TenantBackup struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenant_id"`
	Name       *string `json:"name,omitempty"`
	BackupType string  `json:"backup_type"`

	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step,omitempty"`

	// StorageKey is the object-storage prefix under which the manifest,
	// data document and archived files live.
	StorageKey string `json:"storage_key,omitempty"`

	DatabaseSizeBytes int64 `json:"database_size_bytes"`
	FilesSizeBytes    int64 `json:"files_size_bytes"`
	TotalSizeBytes    int64 `json:"total_size_bytes"`
	FilesCount        int   `json:"files_count"`

	ErrorMessage *string         `json:"error_message,omitempty"`
	ErrorDetails json.RawMessage `json:"error_details,omitempty"`

	RestoredAt   *time.Time `json:"restored_at,omitempty"`
	RestoredByID *string    `json:"restored_by_id,omitempty"`

	RetentionDays *int       `json:"retention_days,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`

	CreatedByID *string    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	ManifestJSON json.RawMessage `json:"manifest_json,omitempty"`
}

const (
	BackupTypeManual    = "manual"
	BackupTypeScheduled = "scheduled"
)

// Backup lifecycle statuses. Transitions are monotonic:
// pending -> in_progress -> {completed, failed};
// completed -> restoring -> {restored, completed};
// any non-deleted state -> deleted (terminal).
// Only completed backups are restorable or reapable; restored is
// terminal until the backup is deleted explicitly.
const (
	BackupStatusPending    = "pending"
	BackupStatusInProgress = "in_progress"
	BackupStatusCompleted  = "completed"
	BackupStatusFailed     = "failed"
	BackupStatusRestoring  = "restoring"
	BackupStatusRestored   = "restored"
	BackupStatusDeleted    = "deleted"
)

// ActiveBackupStatuses are the states that hold the per-tenant exclusion
// lock: while any backup row of a tenant is in one of these, no new backup
// or restore may start for that tenant. Enforced by a partial unique index
// on tenant_backups.
var ActiveBackupStatuses = []string{
	BackupStatusPending,
	BackupStatusInProgress,
	BackupStatusRestoring,
}

// DeriveExpiresAt computes the expiry instant from retention days, or nil
// when the backup never expires.
func (b *TenantBackup) DeriveExpiresAt() *time.Time {
	if b.RetentionDays == nil {
		return nil
	}
	t := b.CreatedAt.Add(time.Duration(*b.RetentionDays) * 24 * time.Hour)
	return &t
}
