package core

import (
	temporalclient "go.temporal.io/sdk/client"
)

type Services struct {
	Tenant   *TenantService
	Backup   *BackupService
	Schedule *ScheduleService
}

func NewServices(db DB, tc temporalclient.Client) *Services {
	return &Services{
		Tenant:   NewTenantService(db),
		Backup:   NewBackupService(db, tc),
		Schedule: NewScheduleService(db),
	}
}
