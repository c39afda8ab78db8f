package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs development
// setups and tests; presigned URLs point at a placeholder host.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
	expiry  time.Duration
}

// Object is a stored blob with its content type
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore(baseURL string, expiry time.Duration) *MemoryStore {
	if baseURL == "" {
		baseURL = "http://storage.local"
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &MemoryStore{objects: make(map[string]Object), baseURL: baseURL, expiry: expiry}
}

// Put implements ObjectStore
func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("short write for %s: got %d bytes, want %d", key, n, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

// PresignGet implements ObjectStore
func (m *MemoryStore) PresignGet(_ context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", time.Time{}, fmt.Errorf("object %s not found", key)
	}
	expiresAt := time.Now().Add(m.expiry)
	u := m.baseURL + "/" + url.PathEscape(key) + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// Delete implements ObjectStore
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get returns a stored object
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

var (
	_ ObjectStore = (*MemoryStore)(nil)
	_ ObjectStore = (*S3Store)(nil)
)
