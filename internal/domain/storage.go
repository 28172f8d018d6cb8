package domain

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the gateway to the backing object store. The bucket is
// fixed at construction; implementations verify bucket access before
// returning. Call failures are reported as *OperationError so callers can
// tell transient from permanent. ListObjects treats a maxItems of zero or
// less as no limit.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, metadata map[string]string) (versionID string, err error)
	HeadObject(ctx context.Context, key string) (map[string]string, error)
	ListObjects(ctx context.Context, prefix string, maxItems int) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	Bucket() string
}

// Notifier delivers out-of-band backup outcome notifications.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type Compressor interface {
	Compress(sourcePath, destPath string) error
	Decompress(sourcePath, destPath string) error
}
