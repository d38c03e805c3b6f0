// Package session owns the authentication state of the storefront client.
// The manager is the single writer of the current session; cart and wishlist
// react to it through registered hooks rather than importing it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/notify"
	"github.com/avelane/storefront-session/internal/store"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
	"github.com/avelane/storefront-session/pkg/logger"
)

// AuthAPI is the slice of the backend client the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (string, *domain.UserProfile, error)
	Register(ctx context.Context, reg api.Registration) (string, *domain.UserProfile, error)
	Profile(ctx context.Context) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (domain.UserProfile, error)
	ChangePassword(ctx context.Context, current, next string) error
}

// Hook runs in reaction to a session transition. Login hooks run after the
// session became authenticated; logout hooks after it was cleared. Hooks
// must not call back into the manager.
type Hook func(ctx context.Context)

// Manager tracks the current session and drives login, logout and the
// uniform expiry teardown.
type Manager struct {
	authAPI  AuthAPI
	store    store.Store
	notifier notify.Notifier
	log      *slog.Logger

	mu      sync.RWMutex
	session domain.Session

	loading     atomic.Bool
	loadingOnce sync.Once

	hookMu      sync.Mutex
	loginHooks  []Hook
	logoutHooks []Hook
}

// NewManager creates a manager in the loading state. Callers must run
// Bootstrap once; until it returns, AuthLoading reports true and gating
// surfaces should hold off on login prompts.
func NewManager(authAPI AuthAPI, s store.Store, notifier notify.Notifier, log *slog.Logger) *Manager {
	m := &Manager{
		authAPI:  authAPI,
		store:    s,
		notifier: notifier,
		log:      log,
	}
	m.loading.Store(true)
	return m
}

// OnLogin registers a hook that runs after every successful login, register
// or bootstrap restore.
func (m *Manager) OnLogin(h Hook) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.loginHooks = append(m.loginHooks, h)
}

// OnLogout registers a hook that runs after logout or expiry teardown.
func (m *Manager) OnLogout(h Hook) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.logoutHooks = append(m.logoutHooks, h)
}

func (m *Manager) runLoginHooks(ctx context.Context) {
	m.hookMu.Lock()
	hooks := append([]Hook(nil), m.loginHooks...)
	m.hookMu.Unlock()
	for _, h := range hooks {
		h(ctx)
	}
}

func (m *Manager) runLogoutHooks(ctx context.Context) {
	m.hookMu.Lock()
	hooks := append([]Hook(nil), m.logoutHooks...)
	m.hookMu.Unlock()
	for _, h := range hooks {
		h(ctx)
	}
}

// AuthLoading reports whether the initial session restore is still running.
// It flips to false exactly once and never back.
func (m *Manager) AuthLoading() bool {
	return m.loading.Load()
}

func (m *Manager) finishLoading() {
	m.loadingOnce.Do(func() { m.loading.Store(false) })
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Token returns the current access token, satisfying api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Token
}

// Authenticated reports whether a user is signed in.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Authenticated()
}

// UserID returns the signed-in user's id, or empty for guests.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.UserID()
}

// Bootstrap restores a persisted session at startup. Whatever the outcome,
// AuthLoading flips to false before it returns. A missing or locally expired
// token leaves a guest session without any notification; a token the backend
// rejects is deleted quietly. A transient backend failure keeps the token
// stored so the next start can retry.
func (m *Manager) Bootstrap(ctx context.Context) {
	defer m.finishLoading()

	log := logger.WithContext(ctx, m.log)

	token, err := m.store.Get(ctx, store.KeyAuthToken)
	if errors.Is(err, apperrors.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn("read persisted token", slog.String("error", err.Error()))
		return
	}

	if tokenExpired(token) {
		_ = m.store.Delete(ctx, store.KeyAuthToken)
		log.Info("persisted token expired, starting as guest")
		return
	}

	m.mu.Lock()
	m.session = domain.Session{Token: token}
	m.mu.Unlock()

	profile, err := m.authAPI.Profile(ctx)
	if apperrors.IsUnauthorized(err) {
		m.mu.Lock()
		m.session = domain.Session{}
		m.mu.Unlock()
		_ = m.store.Delete(ctx, store.KeyAuthToken)
		log.Info("backend rejected persisted token, starting as guest")
		return
	}
	if err != nil {
		// Token stays stored and in memory; authenticated calls will
		// resolve it once the backend is reachable again.
		m.mu.Lock()
		m.session = domain.Session{Token: token}
		m.mu.Unlock()
		log.Warn("profile fetch during bootstrap failed", slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	m.session.User = &profile
	m.mu.Unlock()

	log.Info("session restored", slog.String("user_id", profile.ID))
	m.runLoginHooks(ctx)
}

// Login signs the user in. On any failure the session stays exactly as it
// was and the user sees a single error notification.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	token, user, err := m.authAPI.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		m.notifier.Error(ctx, "sign in failed, please check your credentials")
		return err
	}
	return m.establish(ctx, token, user, "signed in")
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, reg api.Registration) error {
	token, user, err := m.authAPI.Register(ctx, reg)
	if err != nil {
		m.notifier.Error(ctx, "account creation failed")
		return err
	}
	return m.establish(ctx, token, user, "account created")
}

// establish installs an authenticated session from a fresh token, fetching
// the profile when the auth response did not include one.
func (m *Manager) establish(ctx context.Context, token string, user *domain.UserProfile, greeting string) error {
	if token == "" {
		m.notifier.Error(ctx, "sign in failed, please try again")
		return fmt.Errorf("auth response carried no token")
	}

	m.mu.Lock()
	previous := m.session
	m.session = domain.Session{Token: token, User: user}
	m.mu.Unlock()

	if user == nil {
		profile, err := m.authAPI.Profile(ctx)
		if err != nil {
			m.mu.Lock()
			m.session = previous
			m.mu.Unlock()
			m.notifier.Error(ctx, "sign in failed, please try again")
			return fmt.Errorf("fetch profile after login: %w", err)
		}
		m.mu.Lock()
		m.session.User = &profile
		m.mu.Unlock()
		user = &profile
	}

	if err := m.store.Set(ctx, store.KeyAuthToken, token); err != nil {
		// The session still works for this process lifetime.
		logger.WithContext(ctx, m.log).Warn("persist token", slog.String("error", err.Error()))
	}

	logger.WithContext(ctx, m.log).Info("login succeeded", slog.String("user_id", user.ID))
	m.notifier.Success(ctx, fmt.Sprintf("%s as %s", greeting, user.Name))
	m.runLoginHooks(ctx)
	return nil
}

// UpdateProfile writes the editable account fields through the backend and
// refreshes the in-memory profile from its response.
func (m *Manager) UpdateProfile(ctx context.Context, update api.ProfileUpdate) error {
	if !m.Authenticated() {
		m.notifier.PromptLogin(ctx, "sign in to edit your profile")
		return apperrors.AuthRequired("sign in to edit your profile")
	}

	profile, err := m.authAPI.UpdateProfile(ctx, update)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			m.Expire(ctx)
			return err
		}
		m.notifier.Error(ctx, "could not update your profile")
		return err
	}

	m.mu.Lock()
	m.session.User = &profile
	m.mu.Unlock()
	m.notifier.Success(ctx, "profile updated")
	return nil
}

// ChangePassword swaps the account password. The current token stays valid,
// so the session is untouched on success.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) error {
	if !m.Authenticated() {
		m.notifier.PromptLogin(ctx, "sign in to change your password")
		return apperrors.AuthRequired("sign in to change your password")
	}

	if err := m.authAPI.ChangePassword(ctx, current, next); err != nil {
		if apperrors.IsUnauthorized(err) {
			m.Expire(ctx)
			return err
		}
		m.notifier.Error(ctx, "could not change your password")
		return err
	}

	m.notifier.Success(ctx, "password changed")
	return nil
}

// Logout clears the session on user request. Guest carts and other local
// state belong to the collaborators' logout hooks.
func (m *Manager) Logout(ctx context.Context) {
	if !m.teardown(ctx) {
		return
	}
	m.notifier.Success(ctx, "signed out")
}

// Expire is the uniform reaction to the backend rejecting the current
// token. It behaves like Logout with a different message and is idempotent:
// concurrent rejected calls produce a single teardown and one notification.
func (m *Manager) Expire(ctx context.Context) {
	if !m.teardown(ctx) {
		return
	}
	m.notifier.Info(ctx, "your session has expired, please sign in again")
}

// teardown clears the session and reports whether there was one to clear.
func (m *Manager) teardown(ctx context.Context) bool {
	m.mu.Lock()
	hadSession := m.session.Token != ""
	m.session = domain.Session{}
	m.mu.Unlock()

	if !hadSession {
		return false
	}

	if err := m.store.Delete(ctx, store.KeyAuthToken); err != nil {
		logger.WithContext(ctx, m.log).Warn("delete persisted token", slog.String("error", err.Error()))
	}
	m.runLogoutHooks(ctx)
	return true
}

// tokenExpired inspects the token's exp claim without verifying the
// signature. Verification is the backend's job; this only avoids a doomed
// network call when the expiry has plainly passed.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens are passed through and left for the backend to judge.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
