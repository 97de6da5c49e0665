package models

// UserRole represents the roles known by the backend.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleGestionnaire UserRole = "gestionnaire"
	RoleConsultant   UserRole = "consultant"
	RoleEncadrant    UserRole = "encadrant"
)

// Permission names checked by pages and actions. Anything else passed to a
// permission check is compared against the user's role.
const (
	PermissionCanEdit     = "can_edit"
	PermissionCanValidate = "can_validate"
)

// Permissions mirrors the flags returned by the backend on login.
type Permissions struct {
	CanEdit     bool `json:"can_edit"`
	CanValidate bool `json:"can_validate"`
	IsAdmin     bool `json:"is_admin"`
}

// User is the authenticated account as reported by /auth/current-user/.
type User struct {
	ID          int64       `json:"id"`
	Username    string      `json:"username"`
	Role        UserRole    `json:"role"`
	Email       string      `json:"email"`
	Permissions Permissions `json:"permissions"`
}

// HasPermission reports whether the user may use a page or action guarded
// by permission. Admins pass every check.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	switch permission {
	case PermissionCanEdit:
		return u.Permissions.CanEdit
	case PermissionCanValidate:
		return u.Permissions.CanValidate
	default:
		return string(u.Role) == permission
	}
}

// RoleLabel is the display name of the user's role.
func (u *User) RoleLabel() string {
	if u == nil {
		return ""
	}
	switch u.Role {
	case RoleAdmin:
		return "Administrateur"
	case RoleGestionnaire:
		return "Gestionnaire de Stages"
	case RoleConsultant:
		return "Consultant"
	case RoleEncadrant:
		return "Encadrant"
	default:
		return string(u.Role)
	}
}

// LoginRequest holds credentials forwarded to the backend.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse is the backend's /auth/login/ body.
type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
