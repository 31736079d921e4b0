package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stockrecon/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the sync job needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New builds the configured archive backend. A "file://" endpoint selects
// a local directory; anything else is treated as an S3-compatible host.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	if strings.HasPrefix(cfg.Endpoint, "file://") {
		return NewLocalStorage(strings.TrimPrefix(cfg.Endpoint, "file://"))
	}
	return NewS3Client(S3Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
}

// ObjectKey joins key parts with "/" regardless of the host OS.
func ObjectKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(filepath.ToSlash(p), "/"); p != "" {
			clean = append(clean, p)
		}
	}
	return path.Join(clean...)
}

// UploadFiles uploads local files under prefix, keyed by base name, and
// returns the object keys.
func UploadFiles(ctx context.Context, store ObjectStorage, prefix string, files ...string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return keys, fmt.Errorf("failed reading %s: %w", f, err)
		}
		key := ObjectKey(prefix, filepath.Base(f))
		if err := store.UploadObject(ctx, key, data); err != nil {
			return keys, fmt.Errorf("failed uploading %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
