package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nimbusdrive/internal/domain"
)

func TestResolveOwnerWins(t *testing.T) {
	env := newTestEnv(false)
	_, _, _, fileID := env.buildTree()

	// Прямая запись владельцу не должна понизить его права
	env.grant(fileID, domain.ResourceTypeFile, "owner", domain.RoleViewer)

	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("owner"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.True(t, set.IsOwner)
	require.Equal(t, domain.SourceOwner, set.Source)
	require.True(t, set.CanDelete)
	require.True(t, set.CanShare)
}

func TestResolveDirectBeatsInherited(t *testing.T) {
	env := newTestEnv(false)
	rootID, _, _, fileID := env.buildTree()

	env.grant(domain.FolderResourceID(rootID), domain.ResourceTypeFolder, "alice", domain.RoleEditor)
	env.grant(fileID, domain.ResourceTypeFile, "alice", domain.RoleViewer)

	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("alice"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceDirectACL, set.Source)
	require.NotNil(t, set.EffectiveRole)
	require.Equal(t, domain.RoleViewer, *set.EffectiveRole)
	require.False(t, set.CanEdit)
}

func TestResolveNearestAncestorWins(t *testing.T) {
	env := newTestEnv(false)
	rootID, _, folderBID, fileID := env.buildTree()

	// Запись и на корне, и на ближайшей папке: побеждает ближайшая
	env.grant(domain.FolderResourceID(rootID), domain.ResourceTypeFolder, "alice", domain.RoleViewer)
	env.grant(domain.FolderResourceID(folderBID), domain.ResourceTypeFolder, "alice", domain.RoleEditor)

	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("alice"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceInheritedACL, set.Source)
	require.Equal(t, domain.RoleEditor, *set.EffectiveRole)
	require.Equal(t, domain.FolderResourceID(folderBID), set.InheritedFromID)
	require.Equal(t, "FolderB", set.InheritedFromName)
}

func TestResolveInheritanceSkipsFoldersWithoutEntry(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	// Грант на FolderA, промежуточная FolderB без записи
	env.grant(domain.FolderResourceID(folderAID), domain.ResourceTypeFolder, "alice", domain.RoleEditor)

	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("alice"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceInheritedACL, set.Source)
	require.Equal(t, domain.RoleEditor, *set.EffectiveRole)
	require.Equal(t, domain.FolderResourceID(folderAID), set.InheritedFromID)
	require.True(t, set.CanEdit)
	require.False(t, set.CanDelete)
}

func TestResolveNoAccessIsNotAnError(t *testing.T) {
	env := newTestEnv(false)
	_, _, _, fileID := env.buildTree()

	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("bob"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
	require.False(t, set.CanView)
	require.Nil(t, set.EffectiveRole)
}

func TestResolveUnknownResource(t *testing.T) {
	env := newTestEnv(false)
	env.buildTree()

	_, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("owner"),
		"00000000-0000-0000-0000-000000000000", domain.ResourceTypeFile)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveTrashedResource(t *testing.T) {
	env := newTestEnv(false)
	_, _, _, fileID := env.buildTree()

	env.grant(fileID, domain.ResourceTypeFile, "alice", domain.RoleEditor)
	env.resources.SetTrashed(fileID, domain.ResourceTypeFile, true)

	// Владелец сохраняет доступ к корзине
	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("owner"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.True(t, set.IsOwner)

	// Грант редактора на ресурс в корзине не действует
	set, err = env.permissions.Resolve(context.Background(), domain.UserPrincipal("alice"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolveDirectACLBeatsPresentedToken(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleEditor})
	env.grant(fileID, domain.ResourceTypeFile, "alice", domain.RoleViewer)

	principal := domain.Principal{UserID: "alice", LinkToken: link.Token}
	set, err := env.permissions.Resolve(context.Background(), principal, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceDirectACL, set.Source)
	require.Equal(t, domain.RoleViewer, *set.EffectiveRole)
}

// createLink создает ссылку на папку от имени владельца
func createLink(t *testing.T, env *testEnv, folderID int64, opts LinkOptions) *domain.ShareLink {
	t.Helper()
	link, err := env.sharing.CreateLink(context.Background(), domain.UserPrincipal("owner"),
		domain.FolderResourceID(folderID), domain.ResourceTypeFolder, opts)
	require.NoError(t, err)
	return link
}

func TestResolveLinkOnAncestorCoversFile(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer, AllowDownload: true})

	set, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, ""), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)
	require.Equal(t, domain.RoleViewer, *set.EffectiveRole)
	require.True(t, set.AllowDownload)
	require.NotNil(t, set.LinkID)
	require.Equal(t, link.ID, *set.LinkID)
}

func TestResolveLinkDoesNotCoverOutsideSubtree(t *testing.T) {
	env := newTestEnv(false)
	rootID, _, folderBID, _ := env.buildTree()

	link := createLink(t, env, folderBID, LinkOptions{Role: domain.RoleEditor})

	// Корень не лежит в поддереве FolderB
	set, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, ""),
		domain.FolderResourceID(rootID), domain.ResourceTypeFolder)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolveExpiredLink(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer})

	// Просрочиваем ссылку напрямую в хранилище
	past := time.Now().Add(-time.Hour)
	link.ExpiresAt = &past
	require.NoError(t, env.links.Update(context.Background(), link))

	// Просроченная ссылка — обычное "доступа нет", не ошибка
	set, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, ""), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolveRotatedTokenNotFound(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer})
	oldToken := link.Token

	newToken, err := env.sharing.RotateLinkToken(context.Background(), domain.UserPrincipal("owner"), link.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, newToken)

	// Старый токен неотличим от никогда не существовавшего
	_, err = env.permissions.Resolve(context.Background(), domain.LinkPrincipal(oldToken, ""), fileID, domain.ResourceTypeFile)
	require.ErrorIs(t, err, domain.ErrLinkNotFound)

	set, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(newToken, ""), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)
}

func TestResolveRevokedLinkNotFound(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer})
	require.NoError(t, env.sharing.RevokeLink(context.Background(), domain.UserPrincipal("owner"), link.ID))

	_, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, ""), fileID, domain.ResourceTypeFile)
	require.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestResolvePasswordLink(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer, Password: "s3cret"})

	_, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, "wrong"), fileID, domain.ResourceTypeFile)
	require.ErrorIs(t, err, domain.ErrInvalidPassword)

	set, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, "s3cret"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)

	// Без предъявленного токена парольная ссылка не подхватывается
	set, err = env.permissions.Resolve(context.Background(), domain.UserPrincipal("bob"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolveRequireLogin(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer, RequireLogin: true})

	set, err := env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, ""), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)

	principal := domain.Principal{UserID: "bob", LinkToken: link.Token}
	set, err = env.permissions.Resolve(context.Background(), principal, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)
}

func TestResolveAllowedDomains(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{
		Role:           domain.RoleViewer,
		AllowedDomains: []string{"corp.io"},
	})

	// bob@corp.io проходит, alice@example.com нет
	set, err := env.permissions.Resolve(context.Background(),
		domain.Principal{UserID: "bob", LinkToken: link.Token}, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)

	set, err = env.permissions.Resolve(context.Background(),
		domain.Principal{UserID: "alice", LinkToken: link.Token}, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)

	// Аноним не может подтвердить домен
	set, err = env.permissions.Resolve(context.Background(), domain.LinkPrincipal(link.Token, ""), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolveAllowedUserIDs(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{
		Role:           domain.RoleViewer,
		AllowedUserIDs: []string{"bob"},
	})

	set, err := env.permissions.Resolve(context.Background(),
		domain.Principal{UserID: "bob", LinkToken: link.Token}, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)

	set, err = env.permissions.Resolve(context.Background(),
		domain.Principal{UserID: "alice", LinkToken: link.Token}, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolvePublicFallback(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer})

	// Залогиненный пользователь без ACL и без токена попадает на открытую ссылку
	set, err := env.permissions.Resolve(context.Background(), domain.UserPrincipal("bob"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourcePublic, set.Source)
	require.Equal(t, domain.RoleViewer, *set.EffectiveRole)
	require.NotNil(t, set.LinkID)
	require.Equal(t, link.ID, *set.LinkID)
}

func TestResolveAccessEnforcesAccessCap(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	max := int64(2)
	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer, MaxAccessCount: &max})

	ctx := context.Background()
	principal := domain.LinkPrincipal(link.Token, "")

	for i := 0; i < 2; i++ {
		set, err := env.permissions.ResolveAccess(ctx, principal, fileID, domain.ResourceTypeFile)
		require.NoError(t, err)
		require.Equal(t, domain.SourceShareLink, set.Source)
	}

	// Третье обращение упирается в лимит
	set, err := env.permissions.ResolveAccess(ctx, principal, fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNone, set.Source)
}

func TestResolveIsPure(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, fileID := env.buildTree()

	max := int64(1)
	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer, MaxAccessCount: &max})

	ctx := context.Background()
	principal := domain.LinkPrincipal(link.Token, "")

	// Resolve не трогает счетчик, сколько бы раз его ни звали
	for i := 0; i < 5; i++ {
		set, err := env.permissions.Resolve(ctx, principal, fileID, domain.ResourceTypeFile)
		require.NoError(t, err)
		require.Equal(t, domain.SourceShareLink, set.Source)
	}

	stored, err := env.links.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, stored.AccessCount)
}

func TestEditorsCanSharePolicy(t *testing.T) {
	ctx := context.Background()

	// Политика включена: редактор по прямому гранту может пере-шарить
	env := newTestEnv(true)
	_, folderAID, _, fileID := env.buildTree()
	env.grant(fileID, domain.ResourceTypeFile, "editor", domain.RoleEditor)

	set, err := env.permissions.Resolve(ctx, domain.UserPrincipal("editor"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.True(t, set.CanShare)

	// Но грант редактора по ссылке права шарить не дает никогда
	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleEditor})
	set, err = env.permissions.Resolve(ctx, domain.LinkPrincipal(link.Token, ""), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.Equal(t, domain.SourceShareLink, set.Source)
	require.False(t, set.CanShare)

	// Политика выключена: прямой редактор шарить не может
	env = newTestEnv(false)
	_, _, _, fileID = env.buildTree()
	env.grant(fileID, domain.ResourceTypeFile, "editor", domain.RoleEditor)

	set, err = env.permissions.Resolve(ctx, domain.UserPrincipal("editor"), fileID, domain.ResourceTypeFile)
	require.NoError(t, err)
	require.True(t, set.CanEdit)
	require.False(t, set.CanShare)
}

func TestLinkByToken(t *testing.T) {
	env := newTestEnv(false)
	_, folderAID, _, _ := env.buildTree()

	link := createLink(t, env, folderAID, LinkOptions{Role: domain.RoleViewer})

	found, err := env.permissions.LinkByToken(context.Background(), link.Token)
	require.NoError(t, err)
	require.Equal(t, link.ID, found.ID)
	require.Equal(t, domain.FolderResourceID(folderAID), found.ResourceID)

	_, err = env.permissions.LinkByToken(context.Background(), "no-such-token")
	require.ErrorIs(t, err, domain.ErrLinkNotFound)
}
