package assessment

import "assessments/internal/domain/auth"

// Policy decides whether an actor role may move a process from one status to
// the next. It is consulted before any state change.
type Policy interface {
	Allow(from, to Status, role string) bool
}

type PolicyFunc func(from, to Status, role string) bool

func (f PolicyFunc) Allow(from, to Status, role string) bool {
	return f(from, to, role)
}

type edge struct {
	from Status
	to   Status
}

var transitionPermissions = map[edge]string{
	{StatusInDefinition, StatusInSelfAssessment}:              auth.PermProcessStart,
	{StatusInSelfAssessment, StatusAwaitingManagerAssessment}: auth.PermSelfSubmit,
	{StatusAwaitingManagerAssessment, StatusCompleted}:        auth.PermProcessComplete,
}

// TransitionPermission names the capability required for an edge.
func TransitionPermission(from, to Status) (string, bool) {
	perm, ok := transitionPermissions[edge{from: from, to: to}]
	return perm, ok
}

// DefaultPolicy grants an edge to roles holding its capability in
// auth.RolePermissions.
var DefaultPolicy Policy = PolicyFunc(func(from, to Status, role string) bool {
	perm, ok := TransitionPermission(from, to)
	if !ok {
		return false
	}
	return auth.RoleHasPermission(role, perm)
})
