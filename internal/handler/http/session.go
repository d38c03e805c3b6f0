package http

import (
	"encoding/json"
	"net/http"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/pkg/httputil"
	"github.com/avelane/storefront-session/pkg/validator"
)

// LoginRequest is the JSON request body for signing in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
}

// SessionResponse describes the current session state.
type SessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	Loading       bool                `json:"loading"`
	User          *domain.UserProfile `json:"user,omitempty"`
}

func (h *Handler) sessionResponse() SessionResponse {
	s := h.sessions.Session()
	return SessionResponse{
		Authenticated: s.Authenticated(),
		Loading:       h.sessions.AuthLoading(),
		User:          s.User,
	}
}

// GetSession handles GET /api/v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.sessionResponse()})
}

// Login handles POST /api/v1/session/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := h.sessionResponse()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: struct {
		SessionResponse
		RedirectToWishlist bool `json:"redirect_to_wishlist"`
	}{resp, h.wishlists.ConsumeRedirect(r.Context())}})
}

// Register handles POST /api/v1/session/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	reg := api.Registration{Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone}
	if err := h.sessions.Register(r.Context(), reg); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: h.sessionResponse()})
}

// UpdateProfileRequest is the JSON request body for editing the account.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=1,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// ChangePasswordRequest is the JSON request body for swapping the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=1"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UpdateProfile handles PUT /api/v1/session/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	update := api.ProfileUpdate{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := h.sessions.UpdateProfile(r.Context(), update); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.sessionResponse()})
}

// ChangePassword handles PUT /api/v1/session/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.sessionResponse()})
}

// Logout handles POST /api/v1/session/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.sessionResponse()})
}
