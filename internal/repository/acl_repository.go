package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type ACLRepository struct {
	db *sqlx.DB
}

func NewACLRepository(db *sqlx.DB) *ACLRepository {
	return &ACLRepository{db: db}
}

// Upsert заменяет существующую прямую запись для пары (ресурс, пользователь).
// Уникальность пары обеспечивает индекс, сама операция атомарна.
func (r *ACLRepository) Upsert(ctx context.Context, entry *domain.ACLEntry) error {
	if !entry.Role.Valid() {
		return fmt.Errorf("role %q: %w", entry.Role, domain.ErrInvalidRole)
	}

	query := `
        INSERT INTO acl_entries (resource_id, resource_type, user_id, role, granted_by)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (resource_id, resource_type, user_id)
        DO UPDATE SET role = EXCLUDED.role,
                      granted_by = EXCLUDED.granted_by,
                      updated_at = CURRENT_TIMESTAMP
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(
		ctx,
		query,
		entry.ResourceID,
		entry.ResourceType,
		entry.UserID,
		entry.Role,
		entry.GrantedBy,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

// Remove идемпотентен: отсутствие записи не считается ошибкой
func (r *ACLRepository) Remove(ctx context.Context, resourceID string, resourceType domain.ResourceType, userID string) error {
	query := `DELETE FROM acl_entries WHERE resource_id = $1 AND resource_type = $2 AND user_id = $3`

	if _, err := r.db.ExecContext(ctx, query, resourceID, resourceType, userID); err != nil {
		return fmt.Errorf("failed to remove ACL entry: %w", err)
	}
	return nil
}

// Get возвращает прямую запись или nil
func (r *ACLRepository) Get(ctx context.Context, resourceID string, resourceType domain.ResourceType, userID string) (*domain.ACLEntry, error) {
	query := `
        SELECT * FROM acl_entries
        WHERE resource_id = $1 AND resource_type = $2 AND user_id = $3`

	var entry domain.ACLEntry
	err := r.db.GetContext(ctx, &entry, query, resourceID, resourceType, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListDirect возвращает записи в порядке создания — стабильный порядок для UI
func (r *ACLRepository) ListDirect(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.ACLEntry, error) {
	query := `
        SELECT * FROM acl_entries
        WHERE resource_id = $1 AND resource_type = $2
        ORDER BY created_at, id`

	var entries []domain.ACLEntry
	if err := r.db.SelectContext(ctx, &entries, query, resourceID, resourceType); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByUser возвращает все прямые гранты пользователя
func (r *ACLRepository) ListByUser(ctx context.Context, userID string) ([]domain.ACLEntry, error) {
	query := `
        SELECT * FROM acl_entries
        WHERE user_id = $1
        ORDER BY created_at DESC`

	var entries []domain.ACLEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, err
	}
	return entries, nil
}
