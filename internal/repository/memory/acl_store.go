// Package memory содержит in-memory реализации хранилищ подсистемы доступа.
// Используются в тестах и в однопроцессном режиме без Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nimbusdrive/internal/domain"
)

type aclKey struct {
	resourceID   string
	resourceType domain.ResourceType
	userID       string
}

// ACLStore — потокобезопасное in-memory хранилище прямых записей ACL
type ACLStore struct {
	mu      sync.RWMutex
	entries map[aclKey]*domain.ACLEntry
	nextID  int64
}

func NewACLStore() *ACLStore {
	return &ACLStore{entries: make(map[aclKey]*domain.ACLEntry)}
}

func (s *ACLStore) Upsert(ctx context.Context, entry *domain.ACLEntry) error {
	if !entry.Role.Valid() {
		return fmt.Errorf("role %q: %w", entry.Role, domain.ErrInvalidRole)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := aclKey{entry.ResourceID, entry.ResourceType, entry.UserID}
	now := time.Now()

	if existing, ok := s.entries[key]; ok {
		existing.Role = entry.Role
		existing.GrantedBy = entry.GrantedBy
		existing.UpdatedAt = now
		*entry = *existing
		return nil
	}

	s.nextID++
	stored := *entry
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.entries[key] = &stored
	*entry = stored
	return nil
}

func (s *ACLStore) Remove(ctx context.Context, resourceID string, resourceType domain.ResourceType, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, aclKey{resourceID, resourceType, userID})
	return nil
}

func (s *ACLStore) Get(ctx context.Context, resourceID string, resourceType domain.ResourceType, userID string) (*domain.ACLEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[aclKey{resourceID, resourceType, userID}]
	if !ok {
		return nil, nil
	}
	out := *entry
	return &out, nil
}

func (s *ACLStore) ListDirect(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.ACLEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ACLEntry
	for key, entry := range s.entries {
		if key.resourceID == resourceID && key.resourceType == resourceType {
			out = append(out, *entry)
		}
	}
	// Порядок создания, как в Postgres-репозитории
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ACLStore) ListByUser(ctx context.Context, userID string) ([]domain.ACLEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ACLEntry
	for key, entry := range s.entries {
		if key.userID == userID {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
