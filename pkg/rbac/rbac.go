package rbac

import "slices"

const (
	PermissionReadProject   = "project:read"
	PermissionWriteProject  = "project:write"
	PermissionDeleteProject = "project:delete"
	PermissionMoveProject   = "project:move"

	PermissionReadPayment   = "payment:read"
	PermissionWritePayment  = "payment:write"
	PermissionDeletePayment = "payment:delete"

	PermissionReadTask   = "task:read"
	PermissionWriteTask  = "task:write"
	PermissionDeleteTask = "task:delete"

	PermissionReadClient   = "client:read"
	PermissionWriteClient  = "client:write"
	PermissionDeleteClient = "client:delete"

	PermissionReadReports  = "report:read"
	PermissionReplayOutbox = "outbox:replay"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var memberPermissions = []string{
	PermissionReadProject,
	PermissionWriteProject,
	PermissionMoveProject,
	PermissionReadPayment,
	PermissionWritePayment,
	PermissionReadTask,
	PermissionWriteTask,
	PermissionDeleteTask,
	PermissionReadClient,
	PermissionWriteClient,
	PermissionReadReports,
}

var rolePermissions = map[string][]string{
	RoleMember: memberPermissions,
	RoleAdmin: append(slices.Clone(memberPermissions),
		PermissionDeleteProject,
		PermissionDeletePayment,
		PermissionDeleteClient,
		PermissionReplayOutbox,
	),
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

func HasPermission(role, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission is HasPermission returning a *PermissionDeniedError.
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
