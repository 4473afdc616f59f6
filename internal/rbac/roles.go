package rbac

// Role names. Keep these stable; they are stored on users and carried in access tokens.
const (
	RoleUser          = "USER"
	RoleSupportAgent  = "SUPPORT_AGENT"
	RoleContentEditor = "CONTENT_EDITOR"
	RoleConsultant    = "CONSULTANT"
	RoleSupervisor    = "SUPERVISOR"
	RoleSuperAdmin    = "SUPER_ADMIN"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsStaff reports whether role belongs to the back-office.
func IsStaff(role string) bool {
	switch role {
	case RoleSupportAgent, RoleContentEditor, RoleConsultant, RoleSupervisor, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

func IsValidRole(role string) bool { return role == RoleUser || IsStaff(role) }
