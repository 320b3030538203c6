package tokens

import (
	"context"
	"fmt"
	"sync"
)

// Well-known credential store keys
const (
	AccessTokenKey  = "guardian.access_token"
	RefreshTokenKey = "guardian.refresh_token"
)

// Store is the secure credential store boundary. Implementations can be
// backed by SQLite, the platform keychain, or memory. Get returns an
// empty string when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageError indicates a credential store failure. In-memory
// credential state is never corrupted by a failed store operation.
type StorageError struct {
	Op  string // "save", "clear"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("credential store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// MemStore is an in-memory Store, used in tests and as the fallback
// when no credentials path is configured.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *MemStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
