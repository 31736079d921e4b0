package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

var feedExtensions = map[string]bool{
	".json":  true,
	".csv":   true,
	".xlsx":  true,
	".error": true,
}

// DownloadFeeds mirrors the feed files under prefix into destDir, keeping
// their path relative to prefix, and returns the local paths sorted.
func DownloadFeeds(ctx context.Context, store ObjectStorage, prefix, destDir string) ([]string, error) {
	listPrefix := strings.TrimPrefix(strings.TrimSpace(prefix), "/")
	objects, err := store.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
	}

	localPaths := make([]string, 0, len(objects))
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !feedExtensions[strings.ToLower(path.Ext(obj.Key))] {
			continue
		}

		rel := objectRelativePath(listPrefix, obj.Key)
		if rel == "" || strings.HasPrefix(rel, "..") {
			continue
		}
		localPath := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare directory for %s: %w", localPath, err)
		}
		if err := store.DownloadObject(ctx, obj.Key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

func objectRelativePath(prefix, key string) string {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return path.Clean(key)
	}
	if key == trimmed {
		return path.Base(key)
	}
	if strings.HasPrefix(key, trimmed+"/") {
		return path.Clean(strings.TrimPrefix(key, trimmed+"/"))
	}
	return path.Clean(key)
}
