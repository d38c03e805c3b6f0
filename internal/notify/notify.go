// Package notify carries user facing feedback out of the synchronizers.
// Every failed operation surfaces exactly one notification; callers that
// already notified must not bubble the error into another notifier call.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notification for the consuming surface.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	// LevelLoginPrompt asks the surface to steer the user to sign in,
	// typically because an action was deferred until authentication.
	LevelLoginPrompt Level = "login_prompt"
)

// Notification is a single feedback item.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier receives feedback from the session layer. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
	Info(ctx context.Context, message string)
	// PromptLogin signals that the last action needs a signed-in session.
	PromptLogin(ctx context.Context, message string)
}

func newNotification(level Level, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Multi fans a notification out to every wrapped notifier.
type Multi []Notifier

func (m Multi) Success(ctx context.Context, message string) {
	for _, n := range m {
		n.Success(ctx, message)
	}
}

func (m Multi) Error(ctx context.Context, message string) {
	for _, n := range m {
		n.Error(ctx, message)
	}
}

func (m Multi) Info(ctx context.Context, message string) {
	for _, n := range m {
		n.Info(ctx, message)
	}
}

func (m Multi) PromptLogin(ctx context.Context, message string) {
	for _, n := range m {
		n.PromptLogin(ctx, message)
	}
}
