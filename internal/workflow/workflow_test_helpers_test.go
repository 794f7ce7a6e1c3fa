package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/hallvard/opsuite/internal/activity"
)

func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Backup{})
	env.RegisterActivity(&activity.Maintenance{})
}

// matchFailedMessage matches SetBackupFailedParams for a backup ID
// without pinning the message, which carries unpredictable Temporal
// error wrapping.
func matchFailedMessage(backupID string) interface{} {
	return mock.MatchedBy(func(params activity.SetBackupFailedParams) bool {
		return params.BackupID == backupID && params.Message != ""
	})
}
