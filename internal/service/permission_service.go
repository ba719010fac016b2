package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nimbusdrive/internal/domain"
)

// PermissionService вычисляет эффективные права принципала на ресурс.
// Чтение чистое: никаких записей в ACL или состояние ссылок, единственное
// исключение — счетчик обращений ссылки в ResolveAccess.
type PermissionService struct {
	graph     *ResourceGraph
	aclStore  ACLStore
	linkStore ShareLinkStore
	directory UserDirectory

	// Политика развертывания: могут ли редакторы пере-шарить ресурс
	editorsCanShare bool
}

// NewPermissionService создает новый экземпляр PermissionService
func NewPermissionService(
	graph *ResourceGraph,
	aclStore ACLStore,
	linkStore ShareLinkStore,
	directory UserDirectory,
	editorsCanShare bool,
) *PermissionService {
	return &PermissionService{
		graph:           graph,
		aclStore:        aclStore,
		linkStore:       linkStore,
		directory:       directory,
		editorsCanShare: editorsCanShare,
	}
}

// Resolve вычисляет единственный победивший набор прав. Порядок источников
// фиксированный, первый совпавший побеждает: владение, прямой ACL,
// унаследованный ACL, ссылка, ничего. Права из разных источников никогда
// не объединяются — иначе отозванный прямой грант мог бы тихо «воскреснуть»
// через живую ссылку.
func (s *PermissionService) Resolve(
	ctx context.Context,
	principal domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
) (*domain.PermissionSet, error) {
	resource, err := s.graph.Get(ctx, resourceID, resourceType)
	if err != nil {
		return nil, err
	}

	// 1. Владение — терминально
	if principal.Authenticated() && resource.OwnerID == principal.UserID {
		return domain.OwnerPermissions(), nil
	}

	// Ресурс в корзине доступен только владельцу
	if resource.Trashed {
		return domain.NoPermissions(), nil
	}

	if principal.Authenticated() {
		// 2. Прямой ACL на самом ресурсе
		entry, err := s.aclStore.Get(ctx, resourceID, resourceType, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get direct ACL entry: %w", err)
		}
		if entry != nil {
			return domain.RolePermissions(entry.Role, domain.SourceDirectACL, s.editorsCanShare), nil
		}
	}

	// Цепочка предков нужна и для наследования, и для ссылок на папку выше
	ancestors, err := s.graph.AncestorChain(ctx, resource)
	if err != nil {
		return nil, err
	}

	// 3. Унаследованный ACL: побеждает ближайший предок с прямой записью
	if principal.Authenticated() {
		for _, ancestor := range ancestors {
			entry, err := s.aclStore.Get(ctx, ancestor.ID, ancestor.Type, principal.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to get ancestor ACL entry: %w", err)
			}
			if entry == nil {
				continue
			}
			set := domain.RolePermissions(entry.Role, domain.SourceInheritedACL, s.editorsCanShare)
			set.InheritedFromID = ancestor.ID
			set.InheritedFromName = ancestor.Name
			return set, nil
		}
	}

	// 4. Публичные ссылки
	if principal.HasToken() {
		return s.resolveByToken(ctx, principal, resource, ancestors)
	}
	if principal.Authenticated() {
		set, err := s.resolvePublicFallback(ctx, principal, resource, ancestors)
		if err != nil {
			return nil, err
		}
		if set != nil {
			return set, nil
		}
	}

	// 5. Доступа нет — это не ошибка
	return domain.NoPermissions(), nil
}

// ResolveAccess — вход для эндпоинтов, реально отдающих ресурс. Помимо
// резолюции один раз фиксирует обращение по ссылке; два одновременных
// запроса на последнем остатке лимита не могут пройти оба.
func (s *PermissionService) ResolveAccess(
	ctx context.Context,
	principal domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
) (*domain.PermissionSet, error) {
	set, err := s.Resolve(ctx, principal, resourceID, resourceType)
	if err != nil {
		return nil, err
	}

	if (set.Source == domain.SourceShareLink || set.Source == domain.SourcePublic) && set.LinkID != nil {
		ok, err := s.linkStore.RecordAccess(ctx, *set.LinkID)
		if err != nil {
			return nil, fmt.Errorf("failed to record link access: %w", err)
		}
		if !ok {
			// Лимит исчерпали параллельно с нами: частичного гранта не бывает
			log.Printf("[ResolveAccess] Link %s exhausted during access, denying", set.LinkID)
			return domain.NoPermissions(), nil
		}
	}

	return set, nil
}

// LinkByToken возвращает действующую (не отозванную) ссылку по токену.
// Нужен границе, чтобы определить ресурс по умолчанию при входе по ссылке.
func (s *PermissionService) LinkByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	link, err := s.linkStore.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up link token: %w", err)
	}
	if link == nil || link.Revoked() {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// resolveByToken обрабатывает принципала с предъявленным токеном ссылки
func (s *PermissionService) resolveByToken(
	ctx context.Context,
	principal domain.Principal,
	resource *domain.Resource,
	ancestors []*domain.Resource,
) (*domain.PermissionSet, error) {
	link, err := s.linkStore.GetByToken(ctx, principal.LinkToken)
	if err != nil {
		return nil, fmt.Errorf("failed to look up link token: %w", err)
	}
	// Неизвестный, ротированный или отозванный токен неотличимы для клиента
	if link == nil || link.Revoked() {
		return nil, domain.ErrLinkNotFound
	}

	// Ссылка должна указывать на сам ресурс или на его предка
	if !linkCovers(link, resource, ancestors) {
		return domain.NoPermissions(), nil
	}

	// Просроченная или исчерпанная ссылка — обычное "доступа нет":
	// запись еще существует, но грант не действует
	if link.Expired(time.Now()) || link.Exhausted() {
		return domain.NoPermissions(), nil
	}

	if link.RequireLogin && !principal.Authenticated() {
		return domain.NoPermissions(), nil
	}
	if link.AllowedUserIDs != "" {
		if !principal.Authenticated() || !link.AllowsUser(principal.UserID) {
			return domain.NoPermissions(), nil
		}
	}
	if link.AllowedDomains != "" {
		if !principal.Authenticated() {
			return domain.NoPermissions(), nil
		}
		emailDomain, err := s.directory.EmailDomain(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get email domain: %w", err)
		}
		if !link.AllowsDomain(emailDomain) {
			return domain.NoPermissions(), nil
		}
	}

	// Пароль проверяется последним: ошибка пароля — отдельный результат,
	// чтобы клиент мог перезапросить пароль, а не показать 404
	if link.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(principal.LinkPassword)); err != nil {
			return nil, domain.ErrInvalidPassword
		}
	}

	set := domain.RolePermissions(link.Role, domain.SourceShareLink, false)
	set.AllowDownload = link.AllowDownload
	linkID := link.ID
	set.LinkID = &linkID
	return set, nil
}

// resolvePublicFallback ищет действующую открытую ссылку на ресурс или
// ближайшего предка для аутентифицированного пользователя без ACL.
// Ссылки с паролем без предъявленного токена не применяются.
// Возвращает nil, если подходящей ссылки нет.
func (s *PermissionService) resolvePublicFallback(
	ctx context.Context,
	principal domain.Principal,
	resource *domain.Resource,
	ancestors []*domain.Resource,
) (*domain.PermissionSet, error) {
	targets := append([]*domain.Resource{resource}, ancestors...)
	now := time.Now()

	for _, target := range targets {
		links, err := s.linkStore.ListByResource(ctx, target.ID, target.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to list links for %s %s: %w", target.Type, target.ID, err)
		}
		for i := range links {
			link := &links[i]
			if !link.Valid(now) || link.HasPassword() {
				continue
			}
			if !link.AllowsUser(principal.UserID) {
				continue
			}
			if link.AllowedDomains != "" {
				emailDomain, err := s.directory.EmailDomain(ctx, principal.UserID)
				if err != nil {
					return nil, fmt.Errorf("failed to get email domain: %w", err)
				}
				if !link.AllowsDomain(emailDomain) {
					continue
				}
			}

			set := domain.RolePermissions(link.Role, domain.SourcePublic, false)
			set.AllowDownload = link.AllowDownload
			linkID := link.ID
			set.LinkID = &linkID
			return set, nil
		}
	}

	return nil, nil
}

// linkCovers проверяет, что ссылка выдана на сам ресурс или на его предка
func linkCovers(link *domain.ShareLink, resource *domain.Resource, ancestors []*domain.Resource) bool {
	if link.ResourceID == resource.ID && link.ResourceType == resource.Type {
		return true
	}
	for _, ancestor := range ancestors {
		if link.ResourceID == ancestor.ID && link.ResourceType == ancestor.Type {
			return true
		}
	}
	return false
}
