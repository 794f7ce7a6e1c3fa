package model

// RestoreResult is the response of a restore invocation. Diff is only set
// for dry runs.
type RestoreResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Diff    *RestoreDiff `json:"diff,omitempty"`
}

// RestoreDiff reports, per entity type, what a restore would do.
type RestoreDiff struct {
	Entities map[string]EntityDiff `json:"entities"`
	Files    FileDiff              `json:"files"`
}

// EntityDiff counts records by outcome for one entity type.
type EntityDiff struct {
	Creates   int `json:"creates"`
	Updates   int `json:"updates"`
	Conflicts int `json:"conflicts"`
}

// FileDiff counts archived files that would be written back.
type FileDiff struct {
	Count     int   `json:"count"`
	SizeBytes int64 `json:"size_bytes"`
}
