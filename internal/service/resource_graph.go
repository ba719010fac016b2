package service

import (
	"context"
	"fmt"

	"nimbusdrive/internal/domain"
)

// maxTreeDepth ограничивает обход родительских ссылок. Реальные деревья
// на порядки мельче; ограничение защищает от поврежденного графа.
const maxTreeDepth = 256

// ResourceGraph — read-only вид над иерархией папок и владением ресурсов.
// Используется резолвером для обхода предков.
type ResourceGraph struct {
	resources ResourceStore
}

// NewResourceGraph создает новый экземпляр ResourceGraph
func NewResourceGraph(resources ResourceStore) *ResourceGraph {
	return &ResourceGraph{resources: resources}
}

// Get возвращает ресурс; отсутствие ресурса — ErrNotFound
func (g *ResourceGraph) Get(ctx context.Context, resourceID string, resourceType domain.ResourceType) (*domain.Resource, error) {
	res, err := g.resources.GetResource(ctx, resourceID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("%s %s: %w", resourceType, resourceID, domain.ErrNotFound)
	}
	return res, nil
}

// OwnerOf возвращает ID владельца ресурса
func (g *ResourceGraph) OwnerOf(ctx context.Context, resourceID string, resourceType domain.ResourceType) (string, error) {
	res, err := g.Get(ctx, resourceID, resourceType)
	if err != nil {
		return "", err
	}
	return res.OwnerID, nil
}

// AncestorChain возвращает предков ресурса от ближайшего к корню.
// Обход итеративный, с ограничением глубины и контролем циклов:
// граф обязан быть деревом, но поврежденные данные не должны
// подвесить резолвер.
func (g *ResourceGraph) AncestorChain(ctx context.Context, resource *domain.Resource) ([]*domain.Resource, error) {
	var chain []*domain.Resource

	visited := map[int64]bool{}
	parentID := resource.ParentID

	for depth := 0; parentID != nil; depth++ {
		if depth >= maxTreeDepth {
			return nil, fmt.Errorf("ancestor chain for %s %s exceeds depth %d: %w",
				resource.Type, resource.ID, maxTreeDepth, domain.ErrCycleDetected)
		}
		if visited[*parentID] {
			return nil, fmt.Errorf("folder %d revisited in ancestor chain of %s %s: %w",
				*parentID, resource.Type, resource.ID, domain.ErrCycleDetected)
		}
		visited[*parentID] = true

		folder, err := g.resources.GetFolder(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent folder %d: %w", *parentID, err)
		}
		if folder == nil {
			// Оборванная родительская ссылка: цепочка заканчивается здесь
			break
		}

		chain = append(chain, folder)
		parentID = folder.ParentID
	}

	return chain, nil
}
