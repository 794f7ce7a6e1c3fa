package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hallvard/opsuite/internal/api/request"
	"github.com/hallvard/opsuite/internal/api/response"
	"github.com/hallvard/opsuite/internal/core"
	"github.com/hallvard/opsuite/internal/model"
)

type Backup struct {
	svc *core.BackupService
}

func NewBackup(svc *core.BackupService) *Backup {
	return &Backup{svc: svc}
}

func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.Create(r.Context(), core.CreateBackupParams{
		TenantID:         req.TenantID,
		Name:             req.Name,
		BackupType:       model.BackupTypeManual,
		RetentionDays:    req.RetentionDays,
		IncludeAuditLogs: req.IncludeAuditLogs,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{"backup_id": b.ID})
}

func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	backups, total, err := h.svc.List(r.Context(), core.ListBackupsParams{
		TenantID: r.URL.Query().Get("tenant_id"),
		Status:   r.URL.Query().Get("status"),
		Page:     pg.Page,
		Limit:    pg.Limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if backups == nil {
		backups = []model.TenantBackup{}
	}

	response.WriteBackupsPage(w, backups, total, pg.Page, pg.Limit)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, b)
}

func (h *Backup) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "deleting"})
}

func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RestoreBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Restore(r.Context(), id, core.RestoreParams{
		DryRun:            req.DryRun,
		OverwriteExisting: req.OverwriteExisting,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !req.DryRun {
		status = http.StatusAccepted
	}
	response.WriteJSON(w, status, result)
}
