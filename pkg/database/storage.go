package database

import (
	"context"
	"strings"
)

// ObjectStorage 物件儲存 (MinIO / S3)
type ObjectStorage interface {
	// Scheme locator prefix, e.g. "minio" for minio://key
	Scheme() string
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ObjectKey extracts the object key from a locator handled by storage:
// "<scheme>://key" or a url under the storage's public base url
func ObjectKey(storage ObjectStorage, locator string) (string, bool) {
	if key, ok := strings.CutPrefix(locator, storage.Scheme()+"://"); ok && key != "" {
		return key, true
	}
	base := storage.PublicURL("")
	if base != "/" {
		if key, ok := strings.CutPrefix(locator, base); ok && key != "" {
			return key, true
		}
	}
	return "", false
}
