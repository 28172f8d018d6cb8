package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

type memObject struct {
	data         []byte
	metadata     map[string]string
	lastModified time.Time
}

// Memory is an in-memory ObjectStore. It keeps all objects and metadata in
// maps, which makes it useful for tests; fault hooks let callers inject
// per-operation failures. Safe for concurrent use.
type Memory struct {
	bucket  string
	objects map[string]memObject
	puts    int
	mu      sync.RWMutex

	// Fault hooks, consulted before each operation when non-nil.
	PutErr  func(key string) error
	HeadErr func(key string) error

	// StripMetadata drops user metadata on stored objects, simulating a
	// store that lost it. CorruptHash serves back a flipped content hash,
	// simulating a corrupted upload.
	StripMetadata bool
	CorruptHash   bool
}

func NewMemory(bucket string) *Memory {
	return &Memory{
		bucket:  bucket,
		objects: make(map[string]memObject),
	}
}

func (m *Memory) Bucket() string { return m.bucket }

func (m *Memory) PutObject(ctx context.Context, key string, body io.Reader, metadata map[string]string) (string, error) {
	m.mu.Lock()
	m.puts++
	version := m.puts
	m.mu.Unlock()

	if m.PutErr != nil {
		if err := m.PutErr(key); err != nil {
			return "", err
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", &domain.OperationError{Op: "put_object", Key: key, Transient: true, Err: err}
	}

	stored := make(map[string]string, len(metadata))
	for k, v := range metadata {
		stored[k] = v
	}
	if m.StripMetadata {
		stored = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, metadata: stored, lastModified: time.Now()}

	return fmt.Sprintf("v%d", version), nil
}

func (m *Memory) HeadObject(ctx context.Context, key string) (map[string]string, error) {
	if m.HeadErr != nil {
		if err := m.HeadErr(key); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, &domain.OperationError{Op: "head_object", Key: key, Transient: false, Err: os.ErrNotExist}
	}

	metadata := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		metadata[k] = v
	}
	if m.CorruptHash {
		if hash, ok := metadata[domain.MetaContentHash]; ok {
			metadata[domain.MetaContentHash] = reverse(hash)
		}
	}
	return metadata, nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func (m *Memory) ListObjects(ctx context.Context, prefix string, maxItems int) ([]domain.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var objects []domain.ObjectInfo
	for _, key := range keys {
		if maxItems > 0 && len(objects) >= maxItems {
			break
		}
		obj := m.objects[key]
		objects = append(objects, domain.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}

	return objects, nil
}

func (m *Memory) DownloadObject(ctx context.Context, key string, destPath string) error {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return &domain.OperationError{Op: "download_object", Key: key, Transient: false, Err: os.ErrNotExist}
	}

	if err := os.WriteFile(destPath, obj.data, 0644); err != nil {
		return fmt.Errorf("failed to write destination file: %w", err)
	}
	return nil
}

// PutCount reports how many uploads were attempted, including failed ones.
func (m *Memory) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// ObjectData returns the stored bytes for key.
func (m *Memory) ObjectData(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return obj.data, true
}
