package testutil

import (
	"context"
	"errors"
	"sync"
)

// MemoryImageStore is an in-memory image store that records calls.
type MemoryImageStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
	// SaveErr and DeleteErr, when set, are returned by the matching call.
	SaveErr   error
	DeleteErr error
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{Objects: map[string][]byte{}}
}

func (m *MemoryImageStore) Backend() string { return "memory" }

func (m *MemoryImageStore) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	ref := "images/" + name
	m.Objects[ref] = data
	return ref, nil
}

func (m *MemoryImageStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, ref)
	delete(m.Objects, ref)
	return nil
}

// Has reports whether ref is currently stored.
func (m *MemoryImageStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[ref]
	return ok
}

// Count returns the number of stored objects.
func (m *MemoryImageStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

var ErrStoreDown = errors.New("image store unavailable")
