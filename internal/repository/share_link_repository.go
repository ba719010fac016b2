package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type ShareLinkRepository struct {
	db *sqlx.DB
}

func NewShareLinkRepository(db *sqlx.DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

func (r *ShareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	if link.MaxAccessCount != nil && *link.MaxAccessCount <= 0 {
		return fmt.Errorf("max_access_count must be positive: %w", domain.ErrInvalidOptions)
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("expires_at is in the past: %w", domain.ErrInvalidOptions)
	}

	query := `
        INSERT INTO share_links (
            id, token, resource_id, resource_type, owner_id, role,
            require_login, allowed_user_ids, allowed_domains, allow_download,
            expires_at, max_access_count, password_hash
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
        ) RETURNING created_at, updated_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		link.ID,
		link.Token,
		link.ResourceID,
		link.ResourceType,
		link.OwnerID,
		link.Role,
		link.RequireLogin,
		link.AllowedUserIDs,
		link.AllowedDomains,
		link.AllowDownload,
		link.ExpiresAt,
		link.MaxAccessCount,
		link.PasswordHash,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
}

func (r *ShareLinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link, `SELECT * FROM share_links WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetByToken находит ссылку по токену. Поиск по уникальному индексу:
// сравнение выполняет СУБД, токен в запрос попадает только параметром.
// Отозванные и просроченные записи тоже возвращаются — различать их
// состояния должен резолвер.
func (r *ShareLinkRepository) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link, `SELECT * FROM share_links WHERE token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *ShareLinkRepository) ListByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.ShareLink, error) {
	query := `
        SELECT * FROM share_links
        WHERE resource_id = $1 AND resource_type = $2
        ORDER BY created_at DESC`

	var links []domain.ShareLink
	if err := r.db.SelectContext(ctx, &links, query, resourceID, resourceType); err != nil {
		return nil, err
	}
	return links, nil
}

// Update меняет настройки ссылки. Токен и счетчик обращений не трогаем:
// токен меняется только ротацией, счетчик — только RecordAccess.
func (r *ShareLinkRepository) Update(ctx context.Context, link *domain.ShareLink) error {
	query := `
        UPDATE share_links
        SET role = $1, require_login = $2, allowed_user_ids = $3,
            allowed_domains = $4, allow_download = $5, expires_at = $6,
            max_access_count = $7, password_hash = $8,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $9
        RETURNING updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		link.Role,
		link.RequireLogin,
		link.AllowedUserIDs,
		link.AllowedDomains,
		link.AllowDownload,
		link.ExpiresAt,
		link.MaxAccessCount,
		link.PasswordHash,
		link.ID,
	).Scan(&link.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("link %s: %w", link.ID, domain.ErrLinkNotFound)
	}
	return err
}

// RotateToken атомарно заменяет токен: с момента коммита старый токен
// не находится вообще
func (r *ShareLinkRepository) RotateToken(ctx context.Context, id uuid.UUID, newToken string) error {
	query := `
        UPDATE share_links
        SET token = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, newToken, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("link %s: %w", id, domain.ErrLinkNotFound)
	}
	return nil
}

// Revoke помечает ссылку отозванной. Повторный отзыв сохраняет
// исходную отметку времени.
func (r *ShareLinkRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE share_links
        SET revoked_at = COALESCE(revoked_at, CURRENT_TIMESTAMP),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("link %s: %w", id, domain.ErrLinkNotFound)
	}
	return nil
}

// RecordAccess инкрементирует счетчик обращений одним guarded UPDATE:
// проверка лимита и инкремент — одна атомарная операция, гонка
// "проверил, потом увеличил" невозможна.
func (r *ShareLinkRepository) RecordAccess(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
        UPDATE share_links
        SET access_count = access_count + 1
        WHERE id = $1
          AND revoked_at IS NULL
          AND (max_access_count IS NULL OR access_count < max_access_count)`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
