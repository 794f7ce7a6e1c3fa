package model

// CreateBackupWorkflowParams is the payload passed from the API to the
// CreateBackupWorkflow running on the worker.
type CreateBackupWorkflowParams struct {
	BackupID         string `json:"backup_id"`
	IncludeAuditLogs bool   `json:"include_audit_logs"`
}

// RestoreWorkflowParams is the payload passed to RestoreBackupWorkflow.
type RestoreWorkflowParams struct {
	BackupID          string  `json:"backup_id"`
	DryRun            bool    `json:"dry_run"`
	OverwriteExisting bool    `json:"overwrite_existing"`
	RequestedByID     *string `json:"requested_by_id,omitempty"`
}
