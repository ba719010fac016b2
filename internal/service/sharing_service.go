package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"nimbusdrive/internal/domain"
)

// SharingService — write-сторона подсистемы доступа: выдача и отзыв прав,
// жизненный цикл публичных ссылок. Любая мутация сначала авторизует
// вызывающего через резолвер.
type SharingService struct {
	permissions *PermissionService
	graph       *ResourceGraph
	aclStore    ACLStore
	linkStore   ShareLinkStore
	directory   UserDirectory
	notifier    Notifier
}

// NewSharingService создает новый экземпляр SharingService
func NewSharingService(
	permissions *PermissionService,
	graph *ResourceGraph,
	aclStore ACLStore,
	linkStore ShareLinkStore,
	directory UserDirectory,
	notifier Notifier,
) *SharingService {
	return &SharingService{
		permissions: permissions,
		graph:       graph,
		aclStore:    aclStore,
		linkStore:   linkStore,
		directory:   directory,
		notifier:    notifier,
	}
}

// ShareResult — результат шаринга для одного целевого пользователя
type ShareResult struct {
	UserID string `json:"user_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// LinkOptions — параметры создания публичной ссылки
type LinkOptions struct {
	Role           domain.Role
	RequireLogin   bool
	AllowedUserIDs []string
	AllowedDomains []string
	AllowDownload  bool
	ExpiresAt      *time.Time
	MaxAccessCount *int64
	Password       string
}

// LinkUpdate — частичное обновление ссылки. nil-поля не меняются,
// Clear-флаги сбрасывают соответствующее ограничение.
type LinkUpdate struct {
	Role           *domain.Role
	RequireLogin   *bool
	AllowDownload  *bool
	AllowedUserIDs []string
	AllowedDomains []string
	ExpiresAt      *time.Time
	ClearExpiry    bool
	MaxAccessCount *int64
	ClearMaxAccess bool
	Password       *string
	ClearPassword  bool
}

// generateToken возвращает непредсказуемый токен ссылки: 32 случайных байта
// в URL-safe base64
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// authorize проверяет, что вызывающий вправе управлять доступом к ресурсу
func (s *SharingService) authorize(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
) error {
	set, err := s.permissions.Resolve(ctx, caller, resourceID, resourceType)
	if err != nil {
		return err
	}
	if !set.CanShare {
		return fmt.Errorf("caller cannot manage access to %s %s: %w", resourceType, resourceID, domain.ErrForbidden)
	}
	return nil
}

// Share выдает роль списку пользователей. Ошибки по отдельным целям
// не прерывают остальных: результат содержит исход для каждой цели.
func (s *SharingService) Share(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
	targetUserIDs []string,
	role domain.Role,
) ([]ShareResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, domain.ErrInvalidRole)
	}
	if err := s.authorize(ctx, caller, resourceID, resourceType); err != nil {
		return nil, err
	}

	results := make([]ShareResult, 0, len(targetUserIDs))
	for _, targetID := range targetUserIDs {
		if err := s.shareWithUser(ctx, caller, resourceID, resourceType, targetID, role); err != nil {
			log.Printf("[Share] Failed to share %s %s with %s: %v", resourceType, resourceID, targetID, err)
			results = append(results, ShareResult{UserID: targetID, Error: err.Error()})
			continue
		}
		results = append(results, ShareResult{UserID: targetID, OK: true})
	}

	return results, nil
}

func (s *SharingService) shareWithUser(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
	targetID string,
	role domain.Role,
) error {
	exists, err := s.directory.UserExists(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", targetID, domain.ErrNotFound)
	}

	owner, err := s.graph.OwnerOf(ctx, resourceID, resourceType)
	if err != nil {
		return err
	}
	if owner == targetID {
		return fmt.Errorf("user %s already owns the resource", targetID)
	}

	entry := &domain.ACLEntry{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		UserID:       targetID,
		Role:         role,
		GrantedBy:    caller.UserID,
	}
	if err := s.aclStore.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to upsert ACL entry: %w", err)
	}

	s.notifier.Notify(targetID, NotificationEvent{
		Type:         "resource_shared",
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Role:         role,
		ActorID:      caller.UserID,
	})
	return nil
}

// ChangeRole меняет роль существующей прямой записи. Унаследованный грант
// изменить на потомке нельзя — только там, где он выдан.
func (s *SharingService) ChangeRole(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
	targetUserID string,
	newRole domain.Role,
) (*domain.ACLEntry, error) {
	if !newRole.Valid() {
		return nil, fmt.Errorf("role %q: %w", newRole, domain.ErrInvalidRole)
	}
	if err := s.authorize(ctx, caller, resourceID, resourceType); err != nil {
		return nil, err
	}
	if err := s.requireDirectEntry(ctx, resourceID, resourceType, targetUserID); err != nil {
		return nil, err
	}

	entry := &domain.ACLEntry{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		UserID:       targetUserID,
		Role:         newRole,
		GrantedBy:    caller.UserID,
	}
	if err := s.aclStore.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update ACL entry: %w", err)
	}
	return entry, nil
}

// Unshare удаляет прямую запись ACL
func (s *SharingService) Unshare(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
	targetUserID string,
) error {
	if err := s.authorize(ctx, caller, resourceID, resourceType); err != nil {
		return err
	}
	if err := s.requireDirectEntry(ctx, resourceID, resourceType, targetUserID); err != nil {
		return err
	}
	if err := s.aclStore.Remove(ctx, resourceID, resourceType, targetUserID); err != nil {
		return fmt.Errorf("failed to remove ACL entry: %w", err)
	}
	return nil
}

// requireDirectEntry проверяет наличие прямой записи. Если грант пришел
// с предка, ошибка называет папку, где он выдан, чтобы клиент отправил
// пользователя туда.
func (s *SharingService) requireDirectEntry(
	ctx context.Context,
	resourceID string,
	resourceType domain.ResourceType,
	targetUserID string,
) error {
	entry, err := s.aclStore.Get(ctx, resourceID, resourceType, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get ACL entry: %w", err)
	}
	if entry != nil {
		return nil
	}

	resource, err := s.graph.Get(ctx, resourceID, resourceType)
	if err != nil {
		return err
	}
	ancestors, err := s.graph.AncestorChain(ctx, resource)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		inherited, err := s.aclStore.Get(ctx, ancestor.ID, ancestor.Type, targetUserID)
		if err != nil {
			return fmt.Errorf("failed to get ancestor ACL entry: %w", err)
		}
		if inherited != nil {
			return fmt.Errorf("grant for %s is inherited from folder %s (%s), change it there: %w",
				targetUserID, ancestor.ID, ancestor.Name, domain.ErrNotFound)
		}
	}
	return fmt.Errorf("no direct ACL entry for %s on %s %s: %w", targetUserID, resourceType, resourceID, domain.ErrNotFound)
}

// ListCollaborators возвращает прямые записи ACL ресурса, дополненные
// данными из каталога пользователей
func (s *SharingService) ListCollaborators(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
) ([]domain.Collaborator, error) {
	set, err := s.permissions.Resolve(ctx, caller, resourceID, resourceType)
	if err != nil {
		return nil, err
	}
	if !set.CanView {
		return nil, fmt.Errorf("caller cannot view %s %s: %w", resourceType, resourceID, domain.ErrForbidden)
	}

	entries, err := s.aclStore.ListDirect(ctx, resourceID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to list ACL entries: %w", err)
	}

	collaborators := make([]domain.Collaborator, 0, len(entries))
	for _, entry := range entries {
		collaborator := domain.Collaborator{
			UserID:    entry.UserID,
			Role:      entry.Role,
			GrantedBy: entry.GrantedBy,
			CreatedAt: entry.CreatedAt,
		}
		// Домен почты — только обогащение для UI, ошибки каталога не фатальны
		if emailDomain, err := s.directory.EmailDomain(ctx, entry.UserID); err == nil {
			collaborator.EmailDomain = emailDomain
		}
		collaborators = append(collaborators, collaborator)
	}
	return collaborators, nil
}

// SharedWithMe возвращает все прямые гранты пользователя
func (s *SharingService) SharedWithMe(ctx context.Context, caller domain.Principal) ([]domain.ACLEntry, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrForbidden
	}
	entries, err := s.aclStore.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user grants: %w", err)
	}
	return entries, nil
}

// CreateLink создает публичную ссылку на ресурс
func (s *SharingService) CreateLink(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
	opts LinkOptions,
) (*domain.ShareLink, error) {
	if err := s.authorize(ctx, caller, resourceID, resourceType); err != nil {
		return nil, err
	}
	if !opts.Role.Valid() {
		return nil, fmt.Errorf("role %q: %w", opts.Role, domain.ErrInvalidRole)
	}
	if opts.MaxAccessCount != nil && *opts.MaxAccessCount <= 0 {
		return nil, fmt.Errorf("max_access_count must be positive: %w", domain.ErrInvalidOptions)
	}
	if opts.ExpiresAt != nil && opts.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("expires_at is in the past: %w", domain.ErrInvalidOptions)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	link := &domain.ShareLink{
		ID:             uuid.New(),
		Token:          token,
		ResourceID:     resourceID,
		ResourceType:   resourceType,
		OwnerID:        caller.UserID,
		Role:           opts.Role,
		RequireLogin:   opts.RequireLogin,
		AllowedUserIDs: domain.JoinList(opts.AllowedUserIDs),
		AllowedDomains: domain.JoinList(opts.AllowedDomains),
		AllowDownload:  opts.AllowDownload,
		ExpiresAt:      opts.ExpiresAt,
		MaxAccessCount: opts.MaxAccessCount,
	}

	if opts.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash link password: %w", err)
		}
		hashStr := string(hash)
		link.PasswordHash = &hashStr
	}

	if err := s.linkStore.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create share link: %w", err)
	}
	return link, nil
}

// UpdateLink применяет частичное обновление настроек ссылки.
// Токен, роль по умолчанию и счетчики обращений не затрагиваются.
func (s *SharingService) UpdateLink(
	ctx context.Context,
	caller domain.Principal,
	linkID uuid.UUID,
	update LinkUpdate,
) (*domain.ShareLink, error) {
	link, err := s.getAuthorizedLink(ctx, caller, linkID)
	if err != nil {
		return nil, err
	}

	if update.Role != nil {
		if !update.Role.Valid() {
			return nil, fmt.Errorf("role %q: %w", *update.Role, domain.ErrInvalidRole)
		}
		link.Role = *update.Role
	}
	if update.RequireLogin != nil {
		link.RequireLogin = *update.RequireLogin
	}
	if update.AllowDownload != nil {
		link.AllowDownload = *update.AllowDownload
	}
	if update.AllowedUserIDs != nil {
		link.AllowedUserIDs = domain.JoinList(update.AllowedUserIDs)
	}
	if update.AllowedDomains != nil {
		link.AllowedDomains = domain.JoinList(update.AllowedDomains)
	}
	if update.ClearExpiry {
		link.ExpiresAt = nil
	} else if update.ExpiresAt != nil {
		if update.ExpiresAt.Before(time.Now()) {
			return nil, fmt.Errorf("expires_at is in the past: %w", domain.ErrInvalidOptions)
		}
		link.ExpiresAt = update.ExpiresAt
	}
	if update.ClearMaxAccess {
		link.MaxAccessCount = nil
	} else if update.MaxAccessCount != nil {
		if *update.MaxAccessCount <= 0 {
			return nil, fmt.Errorf("max_access_count must be positive: %w", domain.ErrInvalidOptions)
		}
		link.MaxAccessCount = update.MaxAccessCount
	}
	if update.ClearPassword {
		link.PasswordHash = nil
	} else if update.Password != nil && *update.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash link password: %w", err)
		}
		hashStr := string(hash)
		link.PasswordHash = &hashStr
	}

	if err := s.linkStore.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to update share link: %w", err)
	}
	return link, nil
}

// RotateLinkToken атомарно заменяет токен ссылки. Старый токен перестает
// действовать сразу: резолюция по нему вернет ErrLinkNotFound.
func (s *SharingService) RotateLinkToken(
	ctx context.Context,
	caller domain.Principal,
	linkID uuid.UUID,
) (string, error) {
	if _, err := s.getAuthorizedLink(ctx, caller, linkID); err != nil {
		return "", err
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.linkStore.RotateToken(ctx, linkID, token); err != nil {
		return "", fmt.Errorf("failed to rotate token: %w", err)
	}
	return token, nil
}

// RevokeLink делает ссылку навсегда недействительной. В отличие от
// истечения срока отзыв явный и необратимый.
func (s *SharingService) RevokeLink(
	ctx context.Context,
	caller domain.Principal,
	linkID uuid.UUID,
) error {
	if _, err := s.getAuthorizedLink(ctx, caller, linkID); err != nil {
		return err
	}
	if err := s.linkStore.Revoke(ctx, linkID); err != nil {
		return fmt.Errorf("failed to revoke link: %w", err)
	}
	return nil
}

// ListLinks возвращает ссылки ресурса для его владельца/редактора
func (s *SharingService) ListLinks(
	ctx context.Context,
	caller domain.Principal,
	resourceID string,
	resourceType domain.ResourceType,
) ([]domain.ShareLink, error) {
	if err := s.authorize(ctx, caller, resourceID, resourceType); err != nil {
		return nil, err
	}
	links, err := s.linkStore.ListByResource(ctx, resourceID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// getAuthorizedLink загружает ссылку и авторизует вызывающего на ее ресурсе
func (s *SharingService) getAuthorizedLink(
	ctx context.Context,
	caller domain.Principal,
	linkID uuid.UUID,
) (*domain.ShareLink, error) {
	link, err := s.linkStore.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("link %s: %w", linkID, domain.ErrLinkNotFound)
	}
	if err := s.authorize(ctx, caller, link.ResourceID, link.ResourceType); err != nil {
		return nil, err
	}
	return link, nil
}
