package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hallvard/opsuite/internal/api/request"
	"github.com/hallvard/opsuite/internal/api/response"
	"github.com/hallvard/opsuite/internal/core"
	"github.com/hallvard/opsuite/internal/model"
)

type BackupSchedule struct {
	svc *core.ScheduleService
}

func NewBackupSchedule(svc *core.ScheduleService) *BackupSchedule {
	return &BackupSchedule{svc: svc}
}

func (h *BackupSchedule) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if schedules == nil {
		schedules = []model.BackupSchedule{}
	}
	response.WriteJSON(w, http.StatusOK, schedules)
}

func (h *BackupSchedule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackupSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.Create(r.Context(), req.TenantID, scheduleParams(req.BackupScheduleSpec))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, sched)
}

func (h *BackupSchedule) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *BackupSchedule) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.BackupScheduleSpec
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.Update(r.Context(), tenantID, scheduleParams(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *BackupSchedule) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), tenantID); err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func scheduleParams(spec request.BackupScheduleSpec) core.ScheduleParams {
	return core.ScheduleParams{
		CronPattern:   spec.CronPattern,
		Timezone:      spec.Timezone,
		IsEnabled:     spec.IsEnabled,
		RetentionDays: spec.RetentionDays,
		MaxBackups:    spec.MaxBackups,
	}
}
