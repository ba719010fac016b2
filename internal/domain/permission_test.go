package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerPermissions(t *testing.T) {
	set := OwnerPermissions()
	assert.True(t, set.IsOwner)
	assert.True(t, set.CanView)
	assert.True(t, set.CanEdit)
	assert.True(t, set.CanShare)
	assert.True(t, set.CanDelete)
	assert.Equal(t, SourceOwner, set.Source)
}

func TestRolePermissions(t *testing.T) {
	viewer := RolePermissions(RoleViewer, SourceDirectACL, true)
	assert.True(t, viewer.CanView)
	assert.True(t, viewer.CanComment)
	assert.False(t, viewer.CanEdit)
	assert.False(t, viewer.CanShare)
	assert.False(t, viewer.CanDelete)

	// canDelete не выдается никакой ролью
	editor := RolePermissions(RoleEditor, SourceDirectACL, true)
	assert.True(t, editor.CanEdit)
	assert.True(t, editor.CanShare)
	assert.False(t, editor.CanDelete)

	// Пере-шаринг редакторами — только при включенной политике
	editor = RolePermissions(RoleEditor, SourceDirectACL, false)
	assert.False(t, editor.CanShare)

	// И никогда для грантов по ссылке
	editor = RolePermissions(RoleEditor, SourceShareLink, true)
	assert.False(t, editor.CanShare)
}

func TestNoPermissions(t *testing.T) {
	set := NoPermissions()
	assert.Equal(t, SourceNone, set.Source)
	assert.False(t, set.CanView)
	assert.Nil(t, set.EffectiveRole)
}

func TestRole(t *testing.T) {
	assert.True(t, RoleViewer.Valid())
	assert.True(t, RoleEditor.Valid())
	assert.False(t, Role("admin").Valid())

	assert.True(t, RoleEditor.AtLeast(RoleViewer))
	assert.True(t, RoleEditor.AtLeast(RoleEditor))
	assert.False(t, RoleViewer.AtLeast(RoleEditor))
}
