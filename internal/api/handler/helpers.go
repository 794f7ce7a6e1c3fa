package handler

import (
	"errors"
	"net/http"

	"github.com/hallvard/opsuite/internal/api/response"
	"github.com/hallvard/opsuite/internal/backup"
	"github.com/hallvard/opsuite/internal/core"
)

// writeServiceError maps the core error taxonomy to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrConflict):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrValidation):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backup.ErrCorruptBackup), errors.Is(err, backup.ErrSchemaTooNew):
		response.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
