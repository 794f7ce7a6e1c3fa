package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalmocks "go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"

	"github.com/hallvard/opsuite/internal/core"
	"github.com/hallvard/opsuite/internal/model"
)

func mockWorkflowRun() *temporalmocks.WorkflowRun {
	wfRun := &temporalmocks.WorkflowRun{}
	wfRun.On("GetID").Return("mock-wf-id")
	wfRun.On("GetRunID").Return("mock-run-id")
	return wfRun
}

func TestBackupCreate_InvalidJSON(t *testing.T) {
	h := NewBackup(nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/backups", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestBackupCreate_MissingTenantID(t *testing.T) {
	h := NewBackup(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backups", map[string]any{})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestBackupCreate_Success(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	h := NewBackup(core.NewBackupService(db, tc))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(**time.Time)) = nil
			return nil
		}})
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "CreateBackupWorkflow", mock.Anything).
		Return(mockWorkflowRun(), nil)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backups", map[string]any{"tenant_id": "tenant-1"})

	h.Create(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeErrorResponse(rec)
	assert.NotEmpty(t, body["backup_id"])
}

func TestBackupCreate_Conflict(t *testing.T) {
	db := &mockDB{}
	h := NewBackup(core.NewBackupService(db, &temporalmocks.Client{}))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(**time.Time)) = nil
			return nil
		}})
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backups", map[string]any{"tenant_id": "tenant-1"})

	h.Create(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "already in progress")
}

func TestBackupCreate_TenantNotFound(t *testing.T) {
	db := &mockDB{}
	h := NewBackup(core.NewBackupService(db, &temporalmocks.Client{}))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/backups", map[string]any{"tenant_id": "missing"})

	h.Create(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackupGet_NotFound(t *testing.T) {
	db := &mockDB{}
	h := NewBackup(core.NewBackupService(db, &temporalmocks.Client{}))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/backups/missing", nil), "id", "missing")

	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackupGet_MissingID(t *testing.T) {
	h := NewBackup(nil)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/backups/", nil), "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func scanCompletedBackup(id, tenantID string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = tenantID
		*(dest[3].(*string)) = model.BackupTypeManual
		*(dest[4].(*string)) = model.BackupStatusCompleted
		*(dest[19].(*time.Time)) = time.Now()
		return nil
	}
}

func TestBackupRestore_DryRunCorruptBackup(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	h := NewBackup(core.NewBackupService(db, tc))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: scanCompletedBackup("b-1", "tenant-1")})

	wfRun := mockWorkflowRun()
	wfRun.On("Get", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("checksum mismatch", "CorruptBackup", nil))
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "RestoreBackupWorkflow", mock.Anything).
		Return(wfRun, nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/backups/b-1/restore", map[string]any{"dry_run": true}), "id", "b-1")

	h.Restore(rec, r)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "checksum mismatch")
}

func TestBackupRestore_Accepted(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	h := NewBackup(core.NewBackupService(db, tc))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: scanCompletedBackup("b-1", "tenant-1")})
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "RestoreBackupWorkflow", mock.Anything).
		Return(mockWorkflowRun(), nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/backups/b-1/restore", map[string]any{"overwrite_existing": true}), "id", "b-1")

	h.Restore(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestBackupList_EmptyPage(t *testing.T) {
	db := &mockDB{}
	h := NewBackup(core.NewBackupService(db, &temporalmocks.Client{}))

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*int)) = 0
			return nil
		}})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newEmptyMockRows(), nil)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/backups?tenant_id=tenant-1&page=3&limit=10", nil)

	h.List(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backups":[]`)
	assert.Contains(t, rec.Body.String(), `"total_count":0`)
	assert.Contains(t, rec.Body.String(), `"page":3`)
}
