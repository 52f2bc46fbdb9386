package library

import (
	"context"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// Keys of the four logical collections.
const (
	KeyUsers   = "lib_users"
	KeyBooks   = "lib_books"
	KeyBorrows = "lib_borrows"
	KeySession = "lib_currentUser"
)

// AllKeys lists every key a full reset has to clear.
var AllKeys = []string{KeyUsers, KeyBooks, KeyBorrows, KeySession}

// Store is the synchronous key-value persistence collaborator. Values are
// whole collections; there are no partial updates.
type Store interface {
	// Load decodes the value under key into dst and reports whether the key
	// existed. dst is left untouched when it did not.
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// KeyLister is implemented by stores that can enumerate their keys. It
// backs the CLI's status command.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

var (
	_ KeyLister = (*MemoryStore)(nil)
	_ KeyLister = (*Database)(nil)
	_ KeyLister = (*RedisStore)(nil)
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

func encode(v any) ([]byte, error) { return codec.Marshal(v) }

func decode(data []byte, dst any) error { return codec.Unmarshal(data, dst) }

// MemoryStore keeps encoded values in a map. Values are stored encoded so
// callers never share slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(raw, dst)
}

func (m *MemoryStore) Save(_ context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
