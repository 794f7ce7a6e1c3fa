package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/storage"
)

// DB is the write surface the restorer needs. *pgxpool.Pool satisfies it.
type DB interface {
	Querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Restorer reinserts a backup's data document and archived files into the
// live stores.
type Restorer struct {
	db     DB
	store  storage.BlobStore
	logger zerolog.Logger
}

func NewRestorer(db DB, store storage.BlobStore, logger zerolog.Logger) *Restorer {
	return &Restorer{
		db:     db,
		store:  store,
		logger: logger.With().Str("component", "restorer").Logger(),
	}
}

// FetchDocument downloads and parses the data document of a backup, then
// verifies it against the manifest checksum before anything else may touch
// the live store.
func (r *Restorer) FetchDocument(ctx context.Context, manifest *model.BackupManifest) (*Document, error) {
	prefix := Prefix(manifest.TenantID, manifest.BackupID)
	data, err := r.store.Get(ctx, DataKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("download data document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: data document is not valid JSON: %v", ErrCorruptBackup, err)
	}

	if err := VerifyChecksum(&doc, manifest.Checksums.DataJSON); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ComputeDiff reports, per entity type, how many records a restore would
// create and how many collide with records already in the live store.
// Existing records count as updates when overwrite is set, as conflicts
// otherwise. Read-only; safe to call repeatedly and concurrently.
func (r *Restorer) ComputeDiff(ctx context.Context, manifest *model.BackupManifest, doc *Document, overwrite bool) (*model.RestoreDiff, error) {
	diff := &model.RestoreDiff{Entities: make(map[string]model.EntityDiff)}

	for _, set := range doc.Entities {
		if err := validateEntityType(set.Type); err != nil {
			return nil, err
		}

		ids, err := rowIDs(set)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", set.Type, err)
		}

		existing, err := r.existingIDs(ctx, set.Type, ids)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", set.Type, err)
		}

		ed := model.EntityDiff{Creates: len(ids) - len(existing)}
		if overwrite {
			ed.Updates = len(existing)
		} else {
			ed.Conflicts = len(existing)
		}
		diff.Entities[set.Type] = ed
	}

	diff.Files = model.FileDiff{
		Count:     len(manifest.Files),
		SizeBytes: manifest.FilesSizeBytes(),
	}
	return diff, nil
}

// Apply reinserts the document into the relational store in document order
// and copies archived files back to their original keys. Each entity type is
// restored in its own transaction; a mid-batch failure aborts the whole
// restore.
func (r *Restorer) Apply(ctx context.Context, manifest *model.BackupManifest, doc *Document, overwrite bool) (*model.RestoreDiff, error) {
	result := &model.RestoreDiff{Entities: make(map[string]model.EntityDiff)}

	for _, set := range doc.Entities {
		if err := validateEntityType(set.Type); err != nil {
			return nil, err
		}

		ed, err := r.restoreEntitySet(ctx, set, overwrite)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", set.Type, err)
		}
		result.Entities[set.Type] = ed
	}

	for _, f := range manifest.Files {
		if err := copyWithRetry(ctx, r.store, r.logger, f.Key, f.OriginalStorageKey); err != nil {
			return nil, fmt.Errorf("restore file %s: %w", f.OriginalStorageKey, err)
		}
	}
	result.Files = model.FileDiff{
		Count:     len(manifest.Files),
		SizeBytes: manifest.FilesSizeBytes(),
	}

	r.logger.Info().
		Str("tenant_id", doc.TenantID).
		Str("backup_id", manifest.BackupID).
		Bool("overwrite", overwrite).
		Msg("restore applied")

	return result, nil
}

func (r *Restorer) restoreEntitySet(ctx context.Context, set EntitySet, overwrite bool) (model.EntityDiff, error) {
	var ed model.EntityDiff

	insertSQL, err := r.buildInsert(ctx, set.Type, overwrite)
	if err != nil {
		return ed, err
	}

	ids, err := rowIDs(set)
	if err != nil {
		return ed, err
	}
	existing, err := r.existingIDs(ctx, set.Type, ids)
	if err != nil {
		return ed, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ed, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, row := range set.Rows {
		if _, err := tx.Exec(ctx, insertSQL, []byte(row)); err != nil {
			return ed, fmt.Errorf("insert row: %w", err)
		}
		switch {
		case !existingSet[ids[i]]:
			ed.Creates++
		case overwrite:
			ed.Updates++
		default:
			ed.Conflicts++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ed, fmt.Errorf("commit: %w", err)
	}
	return ed, nil
}

// buildInsert produces the jsonb-driven upsert for one table. With overwrite
// the conflict action replaces every non-id column from the incoming row,
// otherwise conflicting rows are skipped and counted.
func (r *Restorer) buildInsert(ctx context.Context, table string, overwrite bool) (string, error) {
	if !overwrite {
		return fmt.Sprintf(
			"INSERT INTO %s SELECT * FROM jsonb_populate_record(NULL::%s, $1::jsonb) ON CONFLICT (id) DO NOTHING",
			table, table,
		), nil
	}

	columns, err := tableColumns(ctx, r.db, table)
	if err != nil {
		return "", err
	}

	assignments := make([]string, 0, len(columns))
	for _, col := range columns {
		if col == "id" {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	if len(assignments) == 0 {
		return "", fmt.Errorf("table %s has no non-id columns", table)
	}

	return fmt.Sprintf(
		"INSERT INTO %s SELECT * FROM jsonb_populate_record(NULL::%s, $1::jsonb) ON CONFLICT (id) DO UPDATE SET %s",
		table, table, strings.Join(assignments, ", "),
	), nil
}

func (r *Restorer) existingIDs(ctx context.Context, table string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE id = ANY($1)", table)
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		existing = append(existing, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return existing, nil
}

func tableColumns(ctx context.Context, q Querier, table string) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1
		 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}
	return columns, nil
}

func rowIDs(set EntitySet) ([]string, error) {
	ids := make([]string, 0, len(set.Rows))
	for _, row := range set.Rows {
		var record struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(row, &record); err != nil {
			return nil, fmt.Errorf("parse row: %w", err)
		}
		if record.ID == "" {
			return nil, fmt.Errorf("row missing id")
		}
		ids = append(ids, record.ID)
	}
	return ids, nil
}

// validateEntityType rejects entity types that are not in the registry; a
// document naming an unknown table never reaches SQL.
func validateEntityType(entityType string) error {
	for _, e := range Entities {
		if e.Type == entityType {
			return nil
		}
	}
	return fmt.Errorf("unknown entity type %q in data document", entityType)
}
