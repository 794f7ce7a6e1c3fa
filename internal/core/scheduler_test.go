package core

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalmocks "go.temporal.io/sdk/mocks"
)

func scanScheduleRow(id, tenantID, cron, tz string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = tenantID
		*(dest[2].(*string)) = cron
		*(dest[3].(*string)) = tz
		*(dest[4].(*bool)) = true
		*(dest[9].(*time.Time)) = time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
		*(dest[12].(*time.Time)) = time.Now()
		*(dest[13].(*time.Time)) = time.Now()
		return nil
	}
}

func TestSchedulerService_Tick_NoDueSchedules(t *testing.T) {
	db := &mockDB{}
	backups := NewBackupService(db, &temporalmocks.Client{})
	svc := NewSchedulerService(db, backups, zerolog.Nop(), 4)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newEmptyMockRows(), nil)

	result, err := svc.Tick(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, TickResult{}, result)
}

func TestSchedulerService_Tick_TriggersDueSchedule(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	backups := NewBackupService(db, tc)
	svc := NewSchedulerService(db, backups, zerolog.Nop(), 4)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 2, 5, 0, 0, time.UTC)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(scanScheduleRow("sched-1", "tenant-1", "0 2 * * *", "UTC")), nil)
	// Tenant lookup for the backup create.
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(tenantRow(nil))
	// Backup insert, then the schedule bookkeeping update.
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "CreateBackupWorkflow", mock.Anything).Return(mockWorkflowRun(), nil)

	result, err := svc.Tick(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 0, result.Failed)
	tc.AssertExpectations(t)
}

func TestSchedulerService_Tick_FailureIsIsolated(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	backups := NewBackupService(db, tc)
	svc := NewSchedulerService(db, backups, zerolog.Nop(), 1)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 2, 5, 0, 0, time.UTC)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(
			scanScheduleRow("sched-1", "tenant-1", "0 2 * * *", "UTC"),
			scanScheduleRow("sched-2", "tenant-2", "0 2 * * *", "UTC"),
		), nil)
	// tenant-1 vanished; tenant-2 proceeds. The scheduler records the
	// failure and keeps going.
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"),
		mock.MatchedBy(func(args []any) bool { return len(args) == 1 && args[0] == "tenant-1" })).
		Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"),
		mock.MatchedBy(func(args []any) bool { return len(args) == 1 && args[0] == "tenant-2" })).
		Return(tenantRow(nil))
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "CreateBackupWorkflow", mock.Anything).Return(mockWorkflowRun(), nil)

	result, err := svc.Tick(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Due)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 1, result.Failed)
}
