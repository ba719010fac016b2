package memory

import (
	"context"
	"sync"

	"nimbusdrive/internal/domain"
)

// ResourceStore — in-memory вид поверх иерархии ресурсов. В тестах дерево
// собирается руками через AddFolder/AddFile, включая поврежденные графы
// для проверки защиты от циклов.
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[string]*domain.Resource
	folders   map[int64]*domain.Resource
}

func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[string]*domain.Resource),
		folders:   make(map[int64]*domain.Resource),
	}
}

// AddFolder регистрирует папку в дереве
func (s *ResourceStore) AddFolder(id int64, name, ownerID string, parentID *int64) *domain.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &domain.Resource{
		ID:       domain.FolderResourceID(id),
		Type:     domain.ResourceTypeFolder,
		Name:     name,
		OwnerID:  ownerID,
		ParentID: parentID,
	}
	s.resources[resourceKey(res.ID, res.Type)] = res
	s.folders[id] = res
	return res
}

// AddFile регистрирует файл в папке
func (s *ResourceStore) AddFile(id string, name, ownerID string, folderID int64) *domain.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := folderID
	res := &domain.Resource{
		ID:       id,
		Type:     domain.ResourceTypeFile,
		Name:     name,
		OwnerID:  ownerID,
		ParentID: &parent,
	}
	s.resources[resourceKey(res.ID, res.Type)] = res
	return res
}

// SetTrashed помечает ресурс как перемещенный в корзину
func (s *ResourceStore) SetTrashed(resourceID string, resourceType domain.ResourceType, trashed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.resources[resourceKey(resourceID, resourceType)]; ok {
		res.Trashed = trashed
	}
}

// SetParent переставляет родителя папки. Нужен тестам циклов.
func (s *ResourceStore) SetParent(folderID int64, parentID *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.folders[folderID]; ok {
		res.ParentID = parentID
	}
}

func (s *ResourceStore) GetResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.resources[resourceKey(resourceID, resourceType)]
	if !ok {
		return nil, nil
	}
	out := *res
	return &out, nil
}

func (s *ResourceStore) GetFolder(ctx context.Context, folderID int64) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.folders[folderID]
	if !ok {
		return nil, nil
	}
	out := *res
	return &out, nil
}

func resourceKey(id string, t domain.ResourceType) string {
	return string(t) + ":" + id
}
