package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
)

// ShareLinkStore — потокобезопасное in-memory хранилище публичных ссылок.
// Счетчик обращений защищен тем же мьютексом, что и остальное состояние:
// проверка лимита и инкремент выполняются как одно целое.
type ShareLinkStore struct {
	mu    sync.RWMutex
	links map[uuid.UUID]*domain.ShareLink
}

func NewShareLinkStore() *ShareLinkStore {
	return &ShareLinkStore{links: make(map[uuid.UUID]*domain.ShareLink)}
}

func (s *ShareLinkStore) Create(ctx context.Context, link *domain.ShareLink) error {
	if link.MaxAccessCount != nil && *link.MaxAccessCount <= 0 {
		return fmt.Errorf("max_access_count must be positive: %w", domain.ErrInvalidOptions)
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("expires_at is in the past: %w", domain.ErrInvalidOptions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *link
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.links[stored.ID] = &stored
	*link = stored
	return nil
}

func (s *ShareLinkStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[id]
	if !ok {
		return nil, nil
	}
	out := *link
	return &out, nil
}

// GetByToken сравнивает токены за константное время, чтобы поиск не
// протекал по таймингу
func (s *ShareLinkStore) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.ShareLink
	for _, link := range s.links {
		if subtle.ConstantTimeCompare([]byte(link.Token), []byte(token)) == 1 {
			found = link
		}
	}
	if found == nil {
		return nil, nil
	}
	out := *found
	return &out, nil
}

func (s *ShareLinkStore) ListByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ShareLink
	for _, link := range s.links {
		if link.ResourceID == resourceID && link.ResourceType == resourceType {
			out = append(out, *link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ShareLinkStore) Update(ctx context.Context, link *domain.ShareLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.links[link.ID]
	if !ok {
		return fmt.Errorf("link %s: %w", link.ID, domain.ErrLinkNotFound)
	}

	// Токен и счетчик обращений не обновляются этим путем
	existing.Role = link.Role
	existing.RequireLogin = link.RequireLogin
	existing.AllowedUserIDs = link.AllowedUserIDs
	existing.AllowedDomains = link.AllowedDomains
	existing.AllowDownload = link.AllowDownload
	existing.ExpiresAt = link.ExpiresAt
	existing.MaxAccessCount = link.MaxAccessCount
	existing.PasswordHash = link.PasswordHash
	existing.UpdatedAt = time.Now()

	*link = *existing
	return nil
}

func (s *ShareLinkStore) RotateToken(ctx context.Context, id uuid.UUID, newToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok || link.Revoked() {
		return fmt.Errorf("link %s: %w", id, domain.ErrLinkNotFound)
	}
	link.Token = newToken
	link.UpdatedAt = time.Now()
	return nil
}

func (s *ShareLinkStore) Revoke(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return fmt.Errorf("link %s: %w", id, domain.ErrLinkNotFound)
	}
	if link.RevokedAt == nil {
		now := time.Now()
		link.RevokedAt = &now
	}
	link.UpdatedAt = time.Now()
	return nil
}

// RecordAccess атомарно инкрементирует счетчик. Два одновременных запроса
// на последнем остатке лимита сериализуются мьютексом: пройдет ровно один.
func (s *ShareLinkStore) RecordAccess(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return false, fmt.Errorf("link %s: %w", id, domain.ErrLinkNotFound)
	}
	if link.Revoked() {
		return false, nil
	}
	if link.MaxAccessCount != nil && link.AccessCount >= *link.MaxAccessCount {
		return false, nil
	}
	link.AccessCount++
	return true, nil
}
