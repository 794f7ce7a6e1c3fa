package request

type CreateBackup struct {
	TenantID         string  `json:"tenant_id" validate:"required"`
	Name             *string `json:"name" validate:"omitempty,max=255"`
	RetentionDays    *int    `json:"retention_days" validate:"omitempty,min=1"`
	IncludeAuditLogs bool    `json:"include_audit_logs"`
}

type RestoreBackup struct {
	DryRun            bool `json:"dry_run"`
	OverwriteExisting bool `json:"overwrite_existing"`
}
