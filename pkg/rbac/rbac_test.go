package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleMember, PermissionMoveProject))
	assert.True(t, HasPermission(RoleMember, PermissionWritePayment))
	assert.False(t, HasPermission(RoleMember, PermissionDeletePayment))
	assert.False(t, HasPermission(RoleMember, PermissionReplayOutbox))

	assert.True(t, HasPermission(RoleAdmin, PermissionDeleteProject))
	assert.True(t, HasPermission(RoleAdmin, PermissionReadReports))

	assert.False(t, HasPermission("guest", PermissionReadProject))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(RoleAdmin, PermissionReplayOutbox))

	err := CheckPermission(RoleMember, PermissionDeleteClient)
	var denied *PermissionDeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, PermissionDeleteClient, denied.Permission)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleMember))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole(""))
}
