package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/repository/memory"
)

// fakeDirectory — каталог пользователей для тестов: id -> email
type fakeDirectory struct {
	users map[string]string
}

func newFakeDirectory(users map[string]string) *fakeDirectory {
	return &fakeDirectory{users: users}
}

func (f *fakeDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	_, ok := f.users[userID]
	return ok, nil
}

func (f *fakeDirectory) EmailDomain(ctx context.Context, userID string) (string, error) {
	email, ok := f.users[userID]
	if !ok {
		return "", fmt.Errorf("user %s not found in directory", userID)
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", fmt.Errorf("user %s has malformed email", userID)
	}
	return email[at+1:], nil
}

type notified struct {
	UserID string
	Event  NotificationEvent
}

// fakeNotifier записывает отправленные уведомления
type fakeNotifier struct {
	mu     sync.Mutex
	events []notified
}

func (f *fakeNotifier) Notify(userID string, event NotificationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notified{UserID: userID, Event: event})
}

func (f *fakeNotifier) sent() []notified {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notified, len(f.events))
	copy(out, f.events)
	return out
}

// testEnv собирает подсистему доступа на in-memory хранилищах
type testEnv struct {
	resources *memory.ResourceStore
	acl       *memory.ACLStore
	links     *memory.ShareLinkStore
	directory *fakeDirectory
	notifier  *fakeNotifier

	graph       *ResourceGraph
	permissions *PermissionService
	sharing     *SharingService
}

func newTestEnv(editorsCanShare bool) *testEnv {
	env := &testEnv{
		resources: memory.NewResourceStore(),
		acl:       memory.NewACLStore(),
		links:     memory.NewShareLinkStore(),
		directory: newFakeDirectory(map[string]string{
			"owner":  "owner@example.com",
			"alice":  "alice@example.com",
			"bob":    "bob@corp.io",
			"editor": "editor@example.com",
		}),
		notifier: &fakeNotifier{},
	}

	env.graph = NewResourceGraph(env.resources)
	env.permissions = NewPermissionService(env.graph, env.acl, env.links, env.directory, editorsCanShare)
	env.sharing = NewSharingService(env.permissions, env.graph, env.acl, env.links, env.directory, env.notifier)
	return env
}

// buildTree создает дерево Root(1) -> FolderA(2) -> FolderB(3) -> FileX,
// все принадлежит пользователю "owner"
func (env *testEnv) buildTree() (rootID, folderAID, folderBID int64, fileID string) {
	env.resources.AddFolder(1, "Root", "owner", nil)
	parentA := int64(1)
	env.resources.AddFolder(2, "FolderA", "owner", &parentA)
	parentB := int64(2)
	env.resources.AddFolder(3, "FolderB", "owner", &parentB)
	fileID = "7f9c2ba4-e88f-11e9-a3f1-0242ac130002"
	env.resources.AddFile(fileID, "FileX", "owner", 3)
	return 1, 2, 3, fileID
}

func (env *testEnv) grant(resourceID string, resourceType domain.ResourceType, userID string, role domain.Role) {
	entry := &domain.ACLEntry{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		UserID:       userID,
		Role:         role,
		GrantedBy:    "owner",
	}
	if err := env.acl.Upsert(context.Background(), entry); err != nil {
		panic(err)
	}
}
