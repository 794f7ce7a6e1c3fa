package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hallvard/opsuite/internal/model"
)

// Querier is the read surface the exporter needs. A pgx.Tx opened with
// repeatable-read isolation satisfies it, which is how callers guarantee the
// whole export reflects one point in time.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ExportOptions control what an export includes.
type ExportOptions struct {
	IncludeAuditLogs bool
	// IncludeDeleted also exports soft-deleted rows.
	IncludeDeleted bool
}

// ExportTenantData reads every registered entity type scoped to the tenant
// into a Document, in topological order. The caller provides a consistent
// read (a repeatable-read transaction) as q.
func ExportTenantData(ctx context.Context, q Querier, tenantID string, opts ExportOptions) (*Document, error) {
	doc := &Document{
		SchemaVersion: model.SchemaVersion,
		TenantID:      tenantID,
		ExportedAt:    time.Now().UTC(),
	}

	for _, entity := range Entities {
		if entity.AuditLog && !opts.IncludeAuditLogs {
			continue
		}

		rows, err := exportEntity(ctx, q, entity, tenantID, opts)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", entity.Type, err)
		}
		doc.Entities = append(doc.Entities, EntitySet{Type: entity.Type, Rows: rows})
	}

	return doc, nil
}

func exportEntity(ctx context.Context, q Querier, entity Entity, tenantID string, opts ExportOptions) ([]json.RawMessage, error) {
	query := fmt.Sprintf("SELECT to_jsonb(t) FROM %s t WHERE %s", entity.Type, entity.Filter)
	if entity.SoftDeletes && !opts.IncludeDeleted {
		query += " AND t.deleted_at IS NULL"
	}
	query += " ORDER BY t.id"

	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}

// ExportTxOptions are the transaction options every export must run under:
// a repeatable-read, read-only snapshot isolated from concurrent writes.
var ExportTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}
