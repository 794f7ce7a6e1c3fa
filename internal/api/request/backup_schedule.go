package request

// BackupScheduleSpec is the schedule configuration shared by create
// and update. Cron pattern and timezone semantics are validated by the
// schedule service; here only the shape is checked.
type BackupScheduleSpec struct {
	CronPattern   string `json:"cron_pattern" validate:"required"`
	Timezone      string `json:"timezone" validate:"required"`
	IsEnabled     bool   `json:"is_enabled"`
	RetentionDays *int   `json:"retention_days" validate:"omitempty,min=1"`
	MaxBackups    *int   `json:"max_backups" validate:"omitempty,min=1"`
}

type CreateBackupSchedule struct {
	TenantID string `json:"tenant_id" validate:"required"`
	BackupScheduleSpec
}
