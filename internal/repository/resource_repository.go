package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

// ResourceRepository — read-only вид поверх таблиц файлов и папок.
// CRUD ресурсов живет в сервисе хранения, здесь только то, что нужно
// резолверу: владелец, родитель, признак корзины.
type ResourceRepository struct {
	db *sqlx.DB
}

func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) GetResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) (*domain.Resource, error) {
	switch resourceType {
	case domain.ResourceTypeFile:
		fileUUID, err := uuid.Parse(resourceID)
		if err != nil {
			return nil, fmt.Errorf("invalid file UUID: %w", err)
		}
		return r.getFile(ctx, fileUUID)

	case domain.ResourceTypeFolder:
		folderID, err := strconv.ParseInt(resourceID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid folder ID: %w", err)
		}
		return r.GetFolder(ctx, folderID)

	default:
		return nil, fmt.Errorf("unsupported resource type: %s", resourceType)
	}
}

func (r *ResourceRepository) getFile(ctx context.Context, fileUUID uuid.UUID) (*domain.Resource, error) {
	query := `
        SELECT uuid, name, folder_id, owner_id, created_at, updated_at, deleted_at
        FROM files
        WHERE uuid = $1`

	var file domain.File
	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file.AsResource(), nil
}

func (r *ResourceRepository) GetFolder(ctx context.Context, folderID int64) (*domain.Resource, error) {
	query := `
        SELECT id, name, owner_id, parent_id, path, level, created_at, updated_at, deleted_at
        FROM folders
        WHERE id = $1`

	var folder domain.Folder
	err := r.db.GetContext(ctx, &folder, query, folderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder.AsResource(), nil
}
