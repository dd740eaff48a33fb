// Package artifact keeps document binaries out of workflow payloads.
// Activities offload a batch's content to a Store before returning it and
// hydrate it again when the next stage needs the bytes.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliassehm/conformity/internal/domain"
)

// Artifact store errors.
var (
	ErrKeyEmpty = errors.New("artifact key cannot be empty")
	ErrNotFound = errors.New("artifact not found")
)

// Store is blob storage addressed by domain.ArtifactRef.
type Store interface {
	Get(ctx context.Context, ref domain.ArtifactRef) ([]byte, error)
	Put(ctx context.Context, content []byte, kind domain.ArtifactKind, key string) (domain.ArtifactRef, error)
	Exists(ctx context.Context, ref domain.ArtifactRef) (bool, error)

	// Delete is idempotent.
	Delete(ctx context.Context, ref domain.ArtifactRef) error
}

// InMemoryStore is a Store for tests and single-process runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]byte
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]byte)}
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, ref domain.ArtifactRef) ([]byte, error) {
	if ref.Key == "" {
		return nil, ErrKeyEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.storage[ref.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Key)
	}
	return append([]byte(nil), content...), nil
}

// Put implements Store.
func (s *InMemoryStore) Put(
	_ context.Context, content []byte, kind domain.ArtifactKind, key string,
) (domain.ArtifactRef, error) {
	if key == "" {
		return domain.ArtifactRef{}, ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.storage[key] = append([]byte(nil), content...)
	return domain.ArtifactRef{Key: key, Size: int64(len(content)), Kind: kind}, nil
}

// Exists implements Store.
func (s *InMemoryStore) Exists(_ context.Context, ref domain.ArtifactRef) (bool, error) {
	if ref.Key == "" {
		return false, ErrKeyEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.storage[ref.Key]
	return ok, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(_ context.Context, ref domain.ArtifactRef) error {
	if ref.Key == "" {
		return ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.storage, ref.Key)
	return nil
}

// Len returns the number of stored artifacts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.storage)
}
