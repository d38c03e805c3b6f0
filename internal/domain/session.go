package domain

// Role is the backend-assigned user role carried in the access token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// UserProfile is the authenticated user as returned by the account backend.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role"`
}

// Session is the current authentication state. A zero-value Session is an
// anonymous guest session.
type Session struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user,omitempty"`
}

// Authenticated reports whether the session carries a signed-in user.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// UserID returns the signed-in user's id, or empty for guests.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
