package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallvard/opsuite/internal/model"
	"github.com/hallvard/opsuite/internal/storage"
)

const copyAttempts = 3

// Archiver copies every blob under a tenant's live prefix into a
// backup-specific prefix, recording new key, size and original key for each.
type Archiver struct {
	store  storage.BlobStore
	logger zerolog.Logger
}

func NewArchiver(store storage.BlobStore, logger zerolog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		logger: logger.With().Str("component", "archiver").Logger(),
	}
}

// ArchiveFiles copies the tenant's files under the backup prefix. If any
// single copy still fails after bounded retries the whole archive fails;
// files are never silently dropped from a successful backup.
func (a *Archiver) ArchiveFiles(ctx context.Context, tenantID, backupID string) ([]model.ManifestFile, error) {
	livePrefix := TenantFilesPrefix(tenantID)
	destPrefix := FilesPrefix(Prefix(tenantID, backupID))

	objects, err := a.store.List(ctx, livePrefix)
	if err != nil {
		return nil, fmt.Errorf("list tenant files: %w", err)
	}

	files := []model.ManifestFile{}
	for _, obj := range objects {
		relative := strings.TrimPrefix(obj.Key, livePrefix)
		destKey := destPrefix + relative

		if err := copyWithRetry(ctx, a.store, a.logger, obj.Key, destKey); err != nil {
			return nil, fmt.Errorf("archive %s: %w", obj.Key, err)
		}

		files = append(files, model.ManifestFile{
			Key:                destKey,
			Size:               obj.Size,
			OriginalStorageKey: obj.Key,
		})
	}

	a.logger.Info().
		Str("tenant_id", tenantID).
		Str("backup_id", backupID).
		Int("files", len(files)).
		Msg("archived tenant files")

	return files, nil
}

func copyWithRetry(ctx context.Context, store storage.BlobStore, logger zerolog.Logger, srcKey, dstKey string) error {
	var lastErr error
	for attempt := 1; attempt <= copyAttempts; attempt++ {
		lastErr = store.Copy(ctx, srcKey, dstKey)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn().
			Err(lastErr).
			Str("key", srcKey).
			Int("attempt", attempt).
			Msg("blob copy failed")

		if attempt < copyAttempts {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", copyAttempts, lastErr)
}
