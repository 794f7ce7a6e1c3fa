package backup

import (
	"encoding/json"
	"time"
)

// Entity describes one exported entity type. Entities are listed in
// foreign-key dependency order (parents before children) so a restore can
// reinsert them without violating referential integrity.
type Entity struct {
	// Type is the logical entity name, which is also the table name.
	Type string

	// Filter is a WHERE fragment scoping rows to one tenant; $1 is the
	// tenant id. Rows reach company- and project-scoped tables through
	// their parents.
	Filter string

	// SoftDeletes indicates the table carries a deleted_at column; such
	// rows are excluded from exports unless explicitly requested.
	SoftDeletes bool

	// AuditLog marks the audit-log entity, skipped when the backup is
	// requested without audit logs.
	AuditLog bool
}

// Entities is the registry of tenant-scoped entity types in topological
// order.
var Entities = []Entity{
	{Type: "users", Filter: "t.tenant_id = $1", SoftDeletes: true},
	{Type: "companies", Filter: "t.tenant_id = $1", SoftDeletes: true},
	{Type: "contacts", Filter: "t.company_id IN (SELECT id FROM companies WHERE tenant_id = $1)", SoftDeletes: true},
	{Type: "projects", Filter: "t.company_id IN (SELECT id FROM companies WHERE tenant_id = $1)", SoftDeletes: true},
	{Type: "tasks", Filter: "t.project_id IN (SELECT id FROM projects WHERE company_id IN (SELECT id FROM companies WHERE tenant_id = $1))", SoftDeletes: true},
	{Type: "documents", Filter: "t.tenant_id = $1", SoftDeletes: true},
	{Type: "audit_logs", Filter: "t.tenant_id = $1", AuditLog: true},
}

// Document is the self-contained export of one tenant's relational data.
// Entity sets preserve registry order; rows within a set are ordered by id.
type Document struct {
	SchemaVersion int         `json:"schema_version"`
	TenantID      string      `json:"tenant_id"`
	ExportedAt    time.Time   `json:"exported_at"`
	Entities      []EntitySet `json:"entities"`
}

// EntitySet holds every exported row of one entity type.
type EntitySet struct {
	Type string            `json:"type"`
	Rows []json.RawMessage `json:"rows"`
}

// Stats returns the per-entity-type row counts of the document.
func (d *Document) Stats() map[string]int {
	stats := make(map[string]int, len(d.Entities))
	for _, set := range d.Entities {
		stats[set.Type] = len(set.Rows)
	}
	return stats
}
