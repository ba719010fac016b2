package domain

import "github.com/google/uuid"

// GrantSource определяет, какой механизм дал итоговые права
type GrantSource string

const (
	SourceOwner        GrantSource = "owner"
	SourceDirectACL    GrantSource = "direct_acl"
	SourceInheritedACL GrantSource = "inherited_acl"
	SourceShareLink    GrantSource = "share_link"
	SourcePublic       GrantSource = "public"
	SourceNone         GrantSource = "none"
)

// PermissionSet — итоговый вычисленный набор прав принципала на ресурс.
// Никогда не сохраняется: это результат резолюции, ровно один источник
// побеждает за вызов.
type PermissionSet struct {
	CanView       bool        `json:"can_view"`
	CanComment    bool        `json:"can_comment"`
	CanEdit       bool        `json:"can_edit"`
	CanShare      bool        `json:"can_share"`
	CanDelete     bool        `json:"can_delete"`
	AllowDownload bool        `json:"allow_download"`
	IsOwner       bool        `json:"is_owner"`
	EffectiveRole *Role       `json:"effective_role,omitempty"`
	Source        GrantSource `json:"source"`

	// Заполняются только для source=inherited_acl
	InheritedFromID   string `json:"inherited_from_id,omitempty"`
	InheritedFromName string `json:"inherited_from_name,omitempty"`

	// Заполняется только для source=share_link и source=public
	LinkID *uuid.UUID `json:"link_id,omitempty"`
}

// OwnerPermissions — полный набор прав владельца
func OwnerPermissions() *PermissionSet {
	role := RoleEditor
	return &PermissionSet{
		CanView:       true,
		CanComment:    true,
		CanEdit:       true,
		CanShare:      true,
		CanDelete:     true,
		AllowDownload: true,
		IsOwner:       true,
		EffectiveRole: &role,
		Source:        SourceOwner,
	}
}

// RolePermissions выводит набор прав из роли. canDelete не выдается никому,
// кроме владельца: доступ по роли дает работу с содержимым, но не удаление.
func RolePermissions(role Role, source GrantSource, editorsCanShare bool) *PermissionSet {
	r := role
	set := &PermissionSet{
		CanView:       true,
		CanComment:    true,
		AllowDownload: true,
		EffectiveRole: &r,
		Source:        source,
	}
	if role == RoleEditor {
		set.CanEdit = true
		// Право пере-шаринга редакторам — политика развертывания,
		// и только для прямых или унаследованных грантов, не для ссылок
		if editorsCanShare && (source == SourceDirectACL || source == SourceInheritedACL) {
			set.CanShare = true
		}
	}
	return set
}

// NoPermissions — нормальный результат "доступа нет", не ошибка
func NoPermissions() *PermissionSet {
	return &PermissionSet{Source: SourceNone}
}
