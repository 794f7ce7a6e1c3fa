package model

import "time"

// ManifestVersion is the current backup manifest format version. Bump only
// on incompatible manifest layout changes.
const ManifestVersion = 1

// SchemaVersion is the version of the tenant data model at export time.
// Restore refuses manifests with a newer schema version than this.
const SchemaVersion = 3

// BackupManifest is the portable description of one snapshot. It is
// persisted as a standalone object under the backup's storage key and
// embedded in tenant_backups.manifest_json.
type BackupManifest struct {
	Version       int `json:"version"`
	SchemaVersion int `json:"schema_version"`

	BackupID    string    `json:"backup_id"`
	TenantID    string    `json:"tenant_id"`
	TenantName  string    `json:"tenant_name"`
	TenantSlug  string    `json:"tenant_slug"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedByID *string   `json:"created_by_id,omitempty"`

	// Stats maps entity type name to the number of rows exported.
	Stats map[string]int `json:"stats"`

	// Files lists every archived blob in archive order.
	Files []ManifestFile `json:"files"`

	Checksums ManifestChecksums `json:"checksums"`
}

// ManifestFile records one archived blob.
type ManifestFile struct {
	Key                string `json:"key"`
	Size               int64  `json:"size"`
	OriginalStorageKey string `json:"original_storage_key"`
}

// ManifestChecksums carries content hashes over the exported artifacts.
type ManifestChecksums struct {
	// DataJSON is the hex SHA-256 of the canonicalized data export.
	DataJSON string `json:"data_json"`
}

// FilesSizeBytes sums the recorded sizes of all archived files.
func (m *BackupManifest) FilesSizeBytes() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}
