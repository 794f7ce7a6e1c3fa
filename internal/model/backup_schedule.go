package model

import "time"

// BackupSchedule is the per-tenant cron configuration driving automatic
// backups. At most one schedule exists per tenant (unique on tenant_id).
type BackupSchedule struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	CronPattern string `json:"cron_pattern"`
	Timezone    string `json:"timezone"`
	IsEnabled   bool   `json:"is_enabled"`

	RetentionDays *int `json:"retention_days,omitempty"`
	MaxBackups    *int `json:"max_backups,omitempty"`

	LastRunAt           *time.Time `json:"last_run_at,omitempty"`
	LastBackupID        *string    `json:"last_backup_id,omitempty"`
	NextRunAt           time.Time  `json:"next_run_at"`
	LastError           *string    `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
