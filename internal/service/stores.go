package service

import (
	"context"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
)

// ACLStore — хранилище прямых записей ACL. Наследование здесь не учитывается,
// это работа резолвера.
type ACLStore interface {
	// Upsert заменяет существующую запись для пары (ресурс, пользователь)
	Upsert(ctx context.Context, entry *domain.ACLEntry) error
	// Remove идемпотентен: отсутствие записи не является ошибкой
	Remove(ctx context.Context, resourceID string, resourceType domain.ResourceType, userID string) error
	// Get возвращает прямую запись или nil, если ее нет
	Get(ctx context.Context, resourceID string, resourceType domain.ResourceType, userID string) (*domain.ACLEntry, error)
	// ListDirect возвращает прямые записи в порядке создания
	ListDirect(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.ACLEntry, error)
	// ListByUser возвращает все прямые гранты пользователя ("доступные мне")
	ListByUser(ctx context.Context, userID string) ([]domain.ACLEntry, error)
}

// ShareLinkStore — хранилище публичных ссылок
type ShareLinkStore interface {
	Create(ctx context.Context, link *domain.ShareLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareLink, error)
	// GetByToken возвращает ссылку или nil; сравнение токена не должно
	// зависеть по времени от содержимого токена
	GetByToken(ctx context.Context, token string) (*domain.ShareLink, error)
	ListByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.ShareLink, error)
	// Update меняет настройки ссылки; токен и счетчики не трогает
	Update(ctx context.Context, link *domain.ShareLink) error
	// RotateToken атомарно заменяет токен, старый становится недействительным
	RotateToken(ctx context.Context, id uuid.UUID, newToken string) error
	Revoke(ctx context.Context, id uuid.UUID) error
	// RecordAccess атомарно инкрементирует счетчик обращений.
	// Возвращает false, если инкремент превысил бы лимит.
	RecordAccess(ctx context.Context, id uuid.UUID) (bool, error)
}

// ResourceStore — read-only вид поверх хранилища файлов и папок.
// Само хранилище ресурсов — внешний коллаборатор.
type ResourceStore interface {
	// GetResource возвращает ресурс или nil, если его нет
	GetResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) (*domain.Resource, error)
	// GetFolder возвращает папку по числовому ID или nil
	GetFolder(ctx context.Context, folderID int64) (*domain.Resource, error)
}

// UserDirectory — внешний каталог пользователей
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	EmailDomain(ctx context.Context, userID string) (string, error)
}

// Notifier отправляет уведомления о шаринге, fire-and-forget
type Notifier interface {
	Notify(userID string, event NotificationEvent)
}

// NotificationEvent — событие для диспетчера уведомлений
type NotificationEvent struct {
	Type         string              `json:"type"`
	ResourceID   string              `json:"resource_id"`
	ResourceType domain.ResourceType `json:"resource_type"`
	Role         domain.Role         `json:"role,omitempty"`
	ActorID      string              `json:"actor_id"`
}
