package storage

import "context"

// ObjectInfo describes one stored blob.
type ObjectInfo struct {
	Key  string
	Size int64
}

// BlobStore is the narrow object-storage surface the backup engine consumes.
// Blobs are opaque bytes addressed by key; List returns keys under a prefix
// in lexical order. Individual calls are atomic and safe to retry.
type BlobStore interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
