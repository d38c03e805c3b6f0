package notify

import (
	"context"
	"sync"
)

// Ring keeps the most recent notifications in memory so the HTTP facade can
// expose a feed. When full, the oldest entry is dropped.
type Ring struct {
	mu      sync.Mutex
	entries []Notification
	cap     int
}

// NewRing creates a feed holding up to capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 50
	}
	return &Ring{cap: capacity}
}

func (r *Ring) push(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, newNotification(level, message))
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (r *Ring) Success(_ context.Context, message string) { r.push(LevelSuccess, message) }
func (r *Ring) Error(_ context.Context, message string)   { r.push(LevelError, message) }
func (r *Ring) Info(_ context.Context, message string)    { r.push(LevelInfo, message) }
func (r *Ring) PromptLogin(_ context.Context, message string) {
	r.push(LevelLoginPrompt, message)
}

// Recent returns the stored notifications, newest last.
func (r *Ring) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear drops all stored notifications.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
}
