package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"nimbusdrive/internal/domain"
)

func newLink(maxAccess *int64) *domain.ShareLink {
	return &domain.ShareLink{
		ID:             uuid.New(),
		Token:          uuid.NewString(),
		ResourceID:     "42",
		ResourceType:   domain.ResourceTypeFolder,
		OwnerID:        "owner",
		Role:           domain.RoleViewer,
		MaxAccessCount: maxAccess,
	}
}

func TestShareLinkStoreCreateValidates(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	zero := int64(0)
	link := newLink(&zero)
	require.ErrorIs(t, store.Create(ctx, link), domain.ErrInvalidOptions)

	link = newLink(nil)
	past := time.Now().Add(-time.Minute)
	link.ExpiresAt = &past
	require.ErrorIs(t, store.Create(ctx, link), domain.ErrInvalidOptions)
}

func TestShareLinkStoreGetByToken(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	link := newLink(nil)
	require.NoError(t, store.Create(ctx, link))

	found, err := store.GetByToken(ctx, link.Token)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, link.ID, found.ID)

	found, err = store.GetByToken(ctx, "no-such-token")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestShareLinkStoreRotateToken(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	link := newLink(nil)
	require.NoError(t, store.Create(ctx, link))
	oldToken := link.Token

	require.NoError(t, store.RotateToken(ctx, link.ID, "fresh-token"))

	// Старый токен больше не находится
	found, err := store.GetByToken(ctx, oldToken)
	require.NoError(t, err)
	require.Nil(t, found)

	found, err = store.GetByToken(ctx, "fresh-token")
	require.NoError(t, err)
	require.NotNil(t, found)

	// Отозванная ссылка не ротируется
	require.NoError(t, store.Revoke(ctx, link.ID))
	require.ErrorIs(t, store.RotateToken(ctx, link.ID, "another"), domain.ErrLinkNotFound)
}

func TestShareLinkStoreUpdateKeepsTokenAndCounter(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	link := newLink(nil)
	require.NoError(t, store.Create(ctx, link))

	ok, err := store.RecordAccess(ctx, link.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Пытаемся протащить чужой токен и сброшенный счетчик через Update
	tampered := *link
	tampered.Token = "tampered"
	tampered.AccessCount = 0
	tampered.Role = domain.RoleEditor
	require.NoError(t, store.Update(ctx, &tampered))

	stored, err := store.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, link.Token, stored.Token)
	require.EqualValues(t, 1, stored.AccessCount)
	require.Equal(t, domain.RoleEditor, stored.Role)
}

func TestShareLinkStoreRecordAccessCap(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	max := int64(3)
	link := newLink(&max)
	require.NoError(t, store.Create(ctx, link))

	for i := 0; i < 3; i++ {
		ok, err := store.RecordAccess(ctx, link.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := store.RecordAccess(ctx, link.ID)
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := store.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.AccessCount)
}

// Гонка на последнем остатке лимита: из множества одновременных обращений
// пройти должно ровно столько, сколько осталось до лимита.
func TestShareLinkStoreRecordAccessConcurrent(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	max := int64(3)
	link := newLink(&max)
	require.NoError(t, store.Create(ctx, link))

	ok, err := store.RecordAccess(ctx, link.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.RecordAccess(ctx, link.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Остался один слот, претендентов много
	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.RecordAccess(ctx, link.ID)
			require.NoError(t, err)
			if ok {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, granted)

	stored, err := store.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.AccessCount)
}

func TestShareLinkStoreRevokeStopsAccess(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	link := newLink(nil)
	require.NoError(t, store.Create(ctx, link))
	require.NoError(t, store.Revoke(ctx, link.ID))

	ok, err := store.RecordAccess(ctx, link.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// Повторный отзыв не двигает метку времени отзыва
	stored, err := store.GetByID(ctx, link.ID)
	require.NoError(t, err)
	firstRevoke := *stored.RevokedAt

	require.NoError(t, store.Revoke(ctx, link.ID))
	stored, err = store.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, firstRevoke, *stored.RevokedAt)
}

func TestShareLinkStoreListByResource(t *testing.T) {
	store := NewShareLinkStore()
	ctx := context.Background()

	first := newLink(nil)
	require.NoError(t, store.Create(ctx, first))
	second := newLink(nil)
	require.NoError(t, store.Create(ctx, second))

	other := newLink(nil)
	other.ResourceID = "99"
	require.NoError(t, store.Create(ctx, other))

	links, err := store.ListByResource(ctx, "42", domain.ResourceTypeFolder)
	require.NoError(t, err)
	require.Len(t, links, 2)
}
