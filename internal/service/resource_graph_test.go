package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"nimbusdrive/internal/domain"
)

func TestAncestorChainOrder(t *testing.T) {
	env := newTestEnv(false)
	_, _, _, fileID := env.buildTree()
	ctx := context.Background()

	file, err := env.graph.Get(ctx, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)

	chain, err := env.graph.AncestorChain(ctx, file)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	// От ближайшего предка к корню
	require.Equal(t, "FolderB", chain[0].Name)
	require.Equal(t, "FolderA", chain[1].Name)
	require.Equal(t, "Root", chain[2].Name)
}

func TestAncestorChainRootHasNoAncestors(t *testing.T) {
	env := newTestEnv(false)
	rootID, _, _, _ := env.buildTree()
	ctx := context.Background()

	root, err := env.graph.Get(ctx, domain.FolderResourceID(rootID), domain.ResourceTypeFolder)
	require.NoError(t, err)

	chain, err := env.graph.AncestorChain(ctx, root)
	require.NoError(t, err)
	require.Empty(t, chain)
}

func TestAncestorChainDetectsCycle(t *testing.T) {
	env := newTestEnv(false)
	rootID, _, folderBID, fileID := env.buildTree()
	ctx := context.Background()

	// Замыкаем корень на FolderB: 1 -> 3 -> 2 -> 1
	env.resources.SetParent(rootID, &folderBID)

	file, err := env.graph.Get(ctx, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)

	_, err = env.graph.AncestorChain(ctx, file)
	require.ErrorIs(t, err, domain.ErrCycleDetected)

	// Резолвер пробрасывает ошибку поврежденного графа наверх
	_, err = env.permissions.Resolve(ctx, domain.UserPrincipal("alice"), fileID, domain.ResourceTypeFile)
	require.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestAncestorChainDanglingParent(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()
	ctx := context.Background()

	// Родитель FolderA указывает на несуществующую папку
	missing := int64(99)
	env.resources.SetParent(folderAID, &missing)

	file, err := env.graph.Get(ctx, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)

	// Цепочка обрывается на оборванной ссылке, это не ошибка
	chain, err := env.graph.AncestorChain(ctx, file)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, "FolderB", chain[0].Name)
	require.Equal(t, "FolderA", chain[1].Name)
}

func TestOwnerOf(t *testing.T) {
	env := newTestEnv(false)
	_, _, _, fileID := env.buildTree()
	ctx := context.Background()

	owner, err := env.graph.OwnerOf(ctx, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, "owner", owner)

	_, err = env.graph.OwnerOf(ctx, "424242", domain.ResourceTypeFolder)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
