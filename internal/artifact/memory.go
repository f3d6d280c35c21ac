package artifact

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore is a process-local store for tests and single-process
// deployments without object storage.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]object{}, now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = object{data: slices.Clone(data), contentType: contentType}

	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "object %s not found", key)
	}

	return slices.Clone(obj.data), nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[key]

	return ok, nil
}

// Presign returns a memory:// URL; it carries no credentials.
func (m *MemoryStore) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	u := url.URL{
		Scheme:   "memory",
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {fmt.Sprint(m.now().Add(ttl).Unix())}}.Encode(),
	}

	return u.String(), nil
}

// ContentType returns the content type key was stored with.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.objects[key].contentType
}

// Keys lists the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := lo.Keys(m.objects)
	slices.Sort(keys)

	return keys
}
