package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hallvard/opsuite/internal/api/request"
	"github.com/hallvard/opsuite/internal/api/response"
	"github.com/hallvard/opsuite/internal/core"
	"github.com/hallvard/opsuite/internal/model"
)

// Tenant exposes a read-only view of tenants. Tenant lifecycle is owned
// by another system; this API only needs to resolve backup targets.
type Tenant struct {
	svc *core.TenantService
}

func NewTenant(svc *core.TenantService) *Tenant {
	return &Tenant{svc: svc}
}

func (h *Tenant) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tenants == nil {
		tenants = []model.Tenant{}
	}
	response.WriteJSON(w, http.StatusOK, tenants)
}

func (h *Tenant) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tenant)
}
