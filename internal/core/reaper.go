package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallvard/opsuite/internal/metrics"
	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/storage"
)

// ReaperService enforces backup retention. It runs on the worker from
// a cron workflow.
type ReaperService struct {
	db     DB
	store  storage.BlobStore
	logger zerolog.Logger
}

func NewReaperService(db DB, store storage.BlobStore, logger zerolog.Logger) *ReaperService {
	return &ReaperService{
		db:     db,
		store:  store,
		logger: logger.With().Str("component", "reaper").Logger(),
	}
}

type ReapResult struct {
	Expired int `json:"expired"`
	Evicted int `json:"evicted"`
}

// Reap marks expired backups deleted and evicts the oldest completed
// backups of tenants whose schedule caps the backup count. Rows are
// marked first, then objects are removed; a failed object delete is
// logged and the workflow retry picks it up.
func (s *ReaperService) Reap(ctx context.Context, now time.Time) (ReapResult, error) {
	var result ReapResult

	expired, err := s.reapCandidates(ctx,
		`SELECT id, tenant_id, storage_key FROM tenant_backups
		 WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2`,
		model.BackupStatusCompleted, now)
	if err != nil {
		return result, fmt.Errorf("find expired backups: %w", err)
	}
	for _, c := range expired {
		if s.deleteBackup(ctx, c, "expired") {
			result.Expired++
		}
	}

	// Backups beyond a schedule's max_backups cap, oldest first. Only
	// completed rows count against the cap; active, failed and restored
	// backups are never reaped.
	evicted, err := s.reapCandidates(ctx,
		`SELECT b.id, b.tenant_id, b.storage_key
		 FROM tenant_backups b
		 JOIN backup_schedules s ON s.tenant_id = b.tenant_id
		 WHERE s.max_backups IS NOT NULL
		   AND b.status = 'completed'
		   AND b.id NOT IN (
			 SELECT b2.id FROM tenant_backups b2
			 WHERE b2.tenant_id = b.tenant_id AND b2.status = 'completed'
			 ORDER BY b2.created_at DESC
			 LIMIT s.max_backups
		   )
		 ORDER BY b.created_at`)
	if err != nil {
		return result, fmt.Errorf("find over-cap backups: %w", err)
	}
	for _, c := range evicted {
		if s.deleteBackup(ctx, c, "max_backups") {
			result.Evicted++
		}
	}

	return result, nil
}

type reapCandidate struct {
	ID         string
	TenantID   string
	StorageKey string
}

func (s *ReaperService) reapCandidates(ctx context.Context, query string, args ...any) ([]reapCandidate, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reapCandidate
	for rows.Next() {
		var c reapCandidate
		if err := rows.Scan(&c.ID, &c.TenantID, &c.StorageKey); err != nil {
			return nil, fmt.Errorf("scan reap candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ReaperService) deleteBackup(ctx context.Context, c reapCandidate, reason string) bool {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenant_backups SET status = $1, deleted_at = now()
		 WHERE id = $2 AND status = 'completed'`,
		model.BackupStatusDeleted, c.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("backupId", c.ID).Msg("failed to mark backup deleted")
		return false
	}
	if tag.RowsAffected() == 0 {
		// Raced a restore or a manual delete; skip.
		return false
	}

	if c.StorageKey != "" {
		if err := s.store.DeletePrefix(ctx, c.StorageKey); err != nil {
			s.logger.Error().Err(err).Str("backupId", c.ID).Str("prefix", c.StorageKey).Msg("failed to delete backup objects")
		}
	}

	metrics.ReapedBackupsTotal.WithLabelValues(reason).Inc()
	s.logger.Info().Str("backupId", c.ID).Str("tenantId", c.TenantID).Str("reason", reason).Msg("backup reaped")
	return true
}
