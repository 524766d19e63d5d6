package auth

import "context"

const (
	PermProcessRead     = "assessment.process.read"
	PermProcessCreate   = "assessment.process.create"
	PermProcessStart    = "assessment.process.start"
	PermSelfSubmit      = "assessment.self.submit"
	PermProcessComplete = "assessment.process.complete"
	PermAuditRead       = "assessment.audit.read"
)

var DefaultPermissions = []string{
	PermProcessRead,
	PermProcessCreate,
	PermProcessStart,
	PermSelfSubmit,
	PermProcessComplete,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermProcessRead,
		PermSelfSubmit,
	},
	RoleManager: {
		PermProcessRead,
		PermProcessCreate,
		PermProcessStart,
		PermSelfSubmit,
		PermProcessComplete,
		PermAuditRead,
	},
}

// RoleHasPermission reports whether the static role table grants permission.
// Unknown roles hold nothing.
func RoleHasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}

// StaticPermissions serves RolePermissions to the HTTP permission middleware.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return RoleHasPermission(role, permission), nil
}
