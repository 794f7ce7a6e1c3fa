package backup

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hallvard/opsuite/internal/model"
)

// ErrSchemaTooNew is returned when a manifest's schema version is newer than
// this build understands. Restoring such a backup is refused.
var ErrSchemaTooNew = errors.New("backup schema version is newer than this system supports")

// BuildManifest assembles the versioned manifest from exporter stats,
// archiver output, the data checksum and backup/tenant metadata. Pure
// assembly; no I/O.
func BuildManifest(b *model.TenantBackup, tenant *model.Tenant, schemaVersion int, stats map[string]int, files []model.ManifestFile, dataChecksum string) *model.BackupManifest {
	return &model.BackupManifest{
		Version:       model.ManifestVersion,
		SchemaVersion: schemaVersion,
		BackupID:      b.ID,
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		TenantSlug:    tenant.Slug,
		CreatedAt:     b.CreatedAt,
		CreatedByID:   b.CreatedByID,
		Stats:         stats,
		Files:         files,
		Checksums:     model.ManifestChecksums{DataJSON: dataChecksum},
	}
}

// DecodeManifest parses manifest bytes with an explicit version gate: an
// unknown manifest format is rejected, and a schema version newer than this
// build fails with ErrSchemaTooNew. An older schema version is allowed; the
// caller decides whether to warn.
func DecodeManifest(data []byte) (*model.BackupManifest, error) {
	// Probe the version fields before trusting the full structure.
	var probe struct {
		Version       int `json:"version"`
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if probe.Version == 0 {
		return nil, fmt.Errorf("manifest missing version field")
	}
	if probe.Version != model.ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d (supported: %d)", probe.Version, model.ManifestVersion)
	}
	if probe.SchemaVersion > model.SchemaVersion {
		return nil, fmt.Errorf("%w: manifest schema %d, supported %d", ErrSchemaTooNew, probe.SchemaVersion, model.SchemaVersion)
	}

	var m model.BackupManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
