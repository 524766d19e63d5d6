package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

// UserContext is the verified identity attached to a request.
type UserContext struct {
	UserID   string
	Name     string
	Email    string
	RoleName string
}

// DisplayName never returns an empty string.
func (u UserContext) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.UserID
}
