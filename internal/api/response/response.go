package response

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// BackupsPage wraps a backup listing with offset pagination metadata.
type BackupsPage struct {
	Backups    any `json:"backups"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// WriteBackupsPage writes one page of backups. Byte sizes stay int64
// all the way to the wire; nothing here goes through float64.
func WriteBackupsPage(w http.ResponseWriter, backups any, total, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	WriteJSON(w, http.StatusOK, BackupsPage{
		Backups:    backups,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}
