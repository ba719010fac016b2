package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// FolderResourceID возвращает строковый идентификатор папки для API
func FolderResourceID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type ResourceType string

const (
	ResourceTypeFile   ResourceType = "file"
	ResourceTypeFolder ResourceType = "folder"
)

// Valid проверяет тип ресурса
func (t ResourceType) Valid() bool {
	return t == ResourceTypeFile || t == ResourceTypeFolder
}

// Folder представляет папку. Родитель может отсутствовать только у корневой папки.
type Folder struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"`
	Path      string     `json:"path" db:"path"`
	Level     int        `json:"level" db:"level"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// File представляет файл. Файл всегда лежит в папке, детей у него нет.
type File struct {
	UUID      uuid.UUID  `json:"uuid" db:"uuid"`
	Name      string     `json:"name" db:"name"`
	FolderID  int64      `json:"folder_id" db:"folder_id"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Resource — единый вид ресурса для резолвера. Идентификатор строковый:
// для файлов это UUID, для папок — десятичный ID, как и во всем API.
type Resource struct {
	ID        string       `json:"id"`
	Type      ResourceType `json:"type"`
	Name      string       `json:"name"`
	OwnerID   string       `json:"owner_id"`
	ParentID  *int64       `json:"parent_id,omitempty"`
	Trashed   bool         `json:"trashed"`
	TrashedAt *time.Time   `json:"trashed_at,omitempty"`
}

// AsResource конвертирует папку в общий вид
func (f *Folder) AsResource() *Resource {
	return &Resource{
		ID:        FolderResourceID(f.ID),
		Type:      ResourceTypeFolder,
		Name:      f.Name,
		OwnerID:   f.OwnerID,
		ParentID:  f.ParentID,
		Trashed:   f.DeletedAt != nil,
		TrashedAt: f.DeletedAt,
	}
}

// AsResource конвертирует файл в общий вид
func (f *File) AsResource() *Resource {
	parentID := f.FolderID
	return &Resource{
		ID:        f.UUID.String(),
		Type:      ResourceTypeFile,
		Name:      f.Name,
		OwnerID:   f.OwnerID,
		ParentID:  &parentID,
		Trashed:   f.DeletedAt != nil,
		TrashedAt: f.DeletedAt,
	}
}
