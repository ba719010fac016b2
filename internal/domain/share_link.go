package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShareLink представляет публичную ссылку на ресурс. Списки разрешенных
// пользователей и доменов хранятся строкой через запятую.
type ShareLink struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	Token          string       `json:"token" db:"token"`
	ResourceID     string       `json:"resource_id" db:"resource_id"`
	ResourceType   ResourceType `json:"resource_type" db:"resource_type"`
	OwnerID        string       `json:"owner_id" db:"owner_id"`
	Role           Role         `json:"role" db:"role"`
	RequireLogin   bool         `json:"require_login" db:"require_login"`
	AllowedUserIDs string       `json:"allowed_user_ids" db:"allowed_user_ids"`
	AllowedDomains string       `json:"allowed_domains" db:"allowed_domains"`
	AllowDownload  bool         `json:"allow_download" db:"allow_download"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	MaxAccessCount *int64       `json:"max_access_count,omitempty" db:"max_access_count"`
	AccessCount    int64        `json:"access_count" db:"access_count"`
	PasswordHash   *string      `json:"-" db:"password_hash"`
	RevokedAt      *time.Time   `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// Revoked сообщает, была ли ссылка отозвана явно
func (l *ShareLink) Revoked() bool {
	return l.RevokedAt != nil
}

// Expired проверяет срок действия на момент now
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Exhausted проверяет, исчерпан ли лимит обращений
func (l *ShareLink) Exhausted() bool {
	return l.MaxAccessCount != nil && l.AccessCount >= *l.MaxAccessCount
}

// Valid — ссылка действительна: не отозвана, не просрочена, лимит не исчерпан
func (l *ShareLink) Valid(now time.Time) bool {
	return !l.Revoked() && !l.Expired(now) && !l.Exhausted()
}

// HasPassword сообщает, защищена ли ссылка паролем
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// AllowsUser проверяет членство пользователя в списке разрешенных.
// Пустой список означает отсутствие ограничения.
func (l *ShareLink) AllowsUser(userID string) bool {
	if l.AllowedUserIDs == "" {
		return true
	}
	for _, id := range strings.Split(l.AllowedUserIDs, ",") {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

// AllowsDomain проверяет домен почты пользователя против списка разрешенных
func (l *ShareLink) AllowsDomain(domain string) bool {
	if l.AllowedDomains == "" {
		return true
	}
	for _, d := range strings.Split(l.AllowedDomains, ",") {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}

// ShareLinkSummary — представление ссылки для ответов API, без хеша пароля
type ShareLinkSummary struct {
	ID             uuid.UUID    `json:"id"`
	Token          string       `json:"token"`
	ResourceID     string       `json:"resource_id"`
	ResourceType   ResourceType `json:"resource_type"`
	Role           Role         `json:"role"`
	RequireLogin   bool         `json:"require_login"`
	AllowedUserIDs []string     `json:"allowed_user_ids,omitempty"`
	AllowedDomains []string     `json:"allowed_domains,omitempty"`
	AllowDownload  bool         `json:"allow_download"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	MaxAccessCount *int64       `json:"max_access_count,omitempty"`
	AccessCount    int64        `json:"access_count"`
	HasPassword    bool         `json:"has_password"`
	Revoked        bool         `json:"revoked"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Summary собирает представление для API
func (l *ShareLink) Summary() *ShareLinkSummary {
	return &ShareLinkSummary{
		ID:             l.ID,
		Token:          l.Token,
		ResourceID:     l.ResourceID,
		ResourceType:   l.ResourceType,
		Role:           l.Role,
		RequireLogin:   l.RequireLogin,
		AllowedUserIDs: splitList(l.AllowedUserIDs),
		AllowedDomains: splitList(l.AllowedDomains),
		AllowDownload:  l.AllowDownload,
		ExpiresAt:      l.ExpiresAt,
		MaxAccessCount: l.MaxAccessCount,
		AccessCount:    l.AccessCount,
		HasPassword:    l.HasPassword(),
		Revoked:        l.Revoked(),
		CreatedAt:      l.CreatedAt,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList собирает список в строку для хранения
func JoinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ",")
}
