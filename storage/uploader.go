package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ObjectKey builds a unique key such as "teams/logos/<id>/<unix-nanos>.png".
// The timestamp segment keeps CDN caches from serving a replaced image.
func ObjectKey(folder string, ownerID uuid.UUID, ext string, now time.Time) string {
	folder = strings.Trim(folder, "/")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s/%d%s", folder, ownerID, now.UnixNano(), ext)
}
