package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hallvard/opsuite/internal/core"
)

func tenantExistsRow(exists bool) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = exists
		return nil
	}}
}

func TestScheduleCreate_MissingCronPattern(t *testing.T) {
	h := NewBackupSchedule(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backup-schedules", map[string]any{
		"tenant_id": "tenant-1",
		"timezone":  "UTC",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestScheduleCreate_InvalidCronPattern(t *testing.T) {
	h := NewBackupSchedule(core.NewScheduleService(&mockDB{}))
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backup-schedules", map[string]any{
		"tenant_id":    "tenant-1",
		"cron_pattern": "not a cron",
		"timezone":     "UTC",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid cron pattern")
}

func TestScheduleCreate_Success(t *testing.T) {
	db := &mockDB{}
	h := NewBackupSchedule(core.NewScheduleService(db))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(tenantExistsRow(true))
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backup-schedules", map[string]any{
		"tenant_id":    "tenant-1",
		"cron_pattern": "0 2 * * *",
		"timezone":     "Europe/Oslo",
		"is_enabled":   true,
	})

	h.Create(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cron_pattern":"0 2 * * *"`)
	assert.Contains(t, rec.Body.String(), `"tenant_id":"tenant-1"`)
}

func TestScheduleCreate_DuplicateConflict(t *testing.T) {
	db := &mockDB{}
	h := NewBackupSchedule(core.NewScheduleService(db))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(tenantExistsRow(true))
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backup-schedules", map[string]any{
		"tenant_id":    "tenant-1",
		"cron_pattern": "0 2 * * *",
		"timezone":     "UTC",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "already has a backup schedule")
}

func TestScheduleCreate_TenantNotFound(t *testing.T) {
	db := &mockDB{}
	h := NewBackupSchedule(core.NewScheduleService(db))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(tenantExistsRow(false))

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backup-schedules", map[string]any{
		"tenant_id":    "missing",
		"cron_pattern": "0 2 * * *",
		"timezone":     "UTC",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleGet_NotFound(t *testing.T) {
	db := &mockDB{}
	h := NewBackupSchedule(core.NewScheduleService(db))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/backup-schedules/missing", nil), "tenantID", "missing")

	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleDelete_NotFound(t *testing.T) {
	db := &mockDB{}
	h := NewBackupSchedule(core.NewScheduleService(db))

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodDelete, "/backup-schedules/missing", nil), "tenantID", "missing")

	h.Delete(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleDelete_Success(t *testing.T) {
	db := &mockDB{}
	h := NewBackupSchedule(core.NewScheduleService(db))

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodDelete, "/backup-schedules/tenant-1", nil), "tenantID", "tenant-1")

	h.Delete(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"deleted"`)
}
