package api

import (
	"context"
	"net/http"

	"github.com/avelane/storefront-session/internal/domain"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the account creation request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type authPayload struct {
	Token       string          `json:"token"`
	AccessToken string          `json:"access_token"`
	User        *profilePayload `json:"user"`
}

type profilePayload struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (p profilePayload) toDomain() domain.UserProfile {
	id := p.ID
	if id == "" {
		id = p.LegacyID
	}
	role := domain.Role(p.Role)
	if role == "" {
		role = domain.RoleCustomer
	}
	return domain.UserProfile{ID: id, Name: p.Name, Email: p.Email, Phone: p.Phone, Role: role}
}

// Login exchanges credentials for an access token. Some deployments include
// the profile in the login response; when absent the caller follows up with
// Profile.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, *domain.UserProfile, error) {
	var payload authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &payload); err != nil {
		return "", nil, err
	}

	token := payload.Token
	if token == "" {
		token = payload.AccessToken
	}

	var user *domain.UserProfile
	if payload.User != nil {
		u := payload.User.toDomain()
		user = &u
	}
	return token, user, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, reg Registration) (string, *domain.UserProfile, error) {
	var payload authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/register", reg, &payload); err != nil {
		return "", nil, err
	}

	token := payload.Token
	if token == "" {
		token = payload.AccessToken
	}

	var user *domain.UserProfile
	if payload.User != nil {
		u := payload.User.toDomain()
		user = &u
	}
	return token, user, nil
}

// Profile fetches the signed-in user's account record using the current
// token. A rejected token surfaces as a session-expired error.
func (c *Client) Profile(ctx context.Context) (domain.UserProfile, error) {
	var payload profilePayload
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &payload); err != nil {
		return domain.UserProfile{}, err
	}
	return payload.toDomain(), nil
}

// ProfileUpdate carries the editable account fields. Empty fields are
// omitted so the backend keeps its current values.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UpdateProfile writes the editable account fields and returns the updated
// record.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (domain.UserProfile, error) {
	var payload profilePayload
	if err := c.do(ctx, http.MethodPut, "/auth/profile", update, &payload); err != nil {
		return domain.UserProfile{}, err
	}
	return payload.toDomain(), nil
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword swaps the account password. The token stays valid.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := passwordChangeRequest{CurrentPassword: current, NewPassword: next}
	return c.do(ctx, http.MethodPut, "/auth/password", body, nil)
}
