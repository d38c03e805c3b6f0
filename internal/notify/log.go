package notify

import (
	"context"
	"log/slog"

	"github.com/avelane/storefront-session/pkg/logger"
)

// LogNotifier writes notifications to the structured log. It is the default
// sink when no interactive surface is attached.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Success(ctx context.Context, message string) {
	logger.WithContext(ctx, n.log).Info("notification", "level", LevelSuccess, "message", message)
}

func (n *LogNotifier) Error(ctx context.Context, message string) {
	logger.WithContext(ctx, n.log).Warn("notification", "level", LevelError, "message", message)
}

func (n *LogNotifier) Info(ctx context.Context, message string) {
	logger.WithContext(ctx, n.log).Info("notification", "level", LevelInfo, "message", message)
}

func (n *LogNotifier) PromptLogin(ctx context.Context, message string) {
	logger.WithContext(ctx, n.log).Info("notification", "level", LevelLoginPrompt, "message", message)
}
