package handler

import (
	"net/http"
	"time"

	"github.com/hallvard/opsuite/internal/api/response"
	"github.com/hallvard/opsuite/internal/core"
)

type Scheduler struct {
	svc *core.SchedulerService
}

func NewScheduler(svc *core.SchedulerService) *Scheduler {
	return &Scheduler{svc: svc}
}

// Run triggers one scheduler pass immediately instead of waiting for
// the next cron tick.
func (h *Scheduler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Tick(r.Context(), time.Now().UTC())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}
