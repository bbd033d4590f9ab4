package models

// Role is the caller's access level, issued by the external identity service.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the already-verified caller context. The core never performs
// credential checks itself; it receives an Identity as an explicit parameter
// on every operation instead of reading ambient auth state.
type Identity struct {
	UserID        string `json:"userId,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          Role   `json:"role,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// Anonymous returns the unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// IsAdmin reports whether the caller holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Authenticated && id.Role == RoleAdmin
}
