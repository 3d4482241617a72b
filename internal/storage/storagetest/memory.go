// Package storagetest provides an in-memory ObjectStore with failure
// injection for tests of code that writes photos.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/furlorn/furlorn-backend/internal/storage"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("storagetest: injected failure")

// Object is a stored blob.
type Object struct {
	Content     []byte
	ContentType string
}

// MemoryStore keeps objects in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu         sync.Mutex
	objects    map[string]Object
	saves      int
	failSaveAt int
	failDelete bool
	failURL    bool
	collisions int
	existsErr  error
}

var _ storage.ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

// FailSaveAt makes the n-th Save call (1-based, counted from now on) fail.
func (m *MemoryStore) FailSaveAt(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = 0
	m.failSaveAt = n
}

// FailDeletes makes every Delete fail.
func (m *MemoryStore) FailDeletes(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = fail
}

// FailURLs makes URL return nil.
func (m *MemoryStore) FailURLs(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failURL = fail
}

// Collide makes the next n Exists probes report a hit.
func (m *MemoryStore) Collide(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collisions = n
}

// FailExists makes Exists return err.
func (m *MemoryStore) FailExists(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsErr = err
}

func (m *MemoryStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.failSaveAt > 0 && m.saves == m.failSaveAt {
		return "", fmt.Errorf("save %s: %w", name, ErrInjected)
	}
	m.objects[name] = Object{
		Content:     append([]byte(nil), content...),
		ContentType: storage.ContentType(name),
	}
	return name, nil
}

func (m *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.existsErr != nil {
		return false, m.existsErr
	}
	if m.collisions > 0 {
		m.collisions--
		return true, nil
	}
	_, ok := m.objects[name]
	return ok, nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDelete {
		return fmt.Errorf("delete %s: %w", name, ErrInjected)
	}
	delete(m.objects, name)
	return nil
}

func (m *MemoryStore) URL(ctx context.Context, name string, ttl time.Duration) *string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failURL {
		return nil
	}
	u := fmt.Sprintf("memory://%s?expires_in=%d", name, int(ttl.Seconds()))
	return &u
}

func (m *MemoryStore) AvailableName(ctx context.Context, name string) (string, error) {
	return storage.AvailableName(ctx, m, name)
}

// Get returns the stored object.
func (m *MemoryStore) Get(name string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[name]
	return obj, ok
}

// Len is the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
