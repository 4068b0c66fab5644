package rbac

type Role string
type Action string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Can reports whether role may perform action. Reads are public, so any
// caller (including an anonymous viewer) may read; only admins write.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
