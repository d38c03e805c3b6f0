// Package pending holds an action deferred until the user signs in. The
// queue has a single slot: a newer deferred action replaces the older one.
// The slot is mirrored to the local store so it survives a restart.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/store"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
)

// Action is a deferred operation. The set of variants is closed; executors
// type switch over it and treat unknown variants as a programming error.
type Action interface {
	pendingAction()
}

// AddToWishlist defers saving a product to the wishlist. The full product
// snapshot is carried so replay does not depend on the catalog being warm.
type AddToWishlist struct {
	Product domain.Product `json:"product"`
}

func (AddToWishlist) pendingAction() {}

// Queue is the single slot deferred action queue.
type Queue struct {
	mu     sync.Mutex
	store  store.Store
	action Action
}

// NewQueue creates an empty queue backed by the given store.
func NewQueue(s store.Store) *Queue {
	return &Queue{store: s}
}

// Set places an action in the slot, replacing any previous one, and persists
// it. A persistence failure keeps the in-memory slot so replay still works
// within the current process.
func (q *Queue) Set(ctx context.Context, action Action) error {
	q.mu.Lock()
	q.action = action
	q.mu.Unlock()

	switch a := action.(type) {
	case AddToWishlist:
		return store.SetJSON(ctx, q.store, store.KeyPendingWishlist, a)
	default:
		return errors.New("unknown pending action variant")
	}
}

// Peek returns the queued action without removing it, or nil.
func (q *Queue) Peek() Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.action
}

// Clear empties the slot and removes the persisted copy.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	q.action = nil
	q.mu.Unlock()

	return q.store.Delete(ctx, store.KeyPendingWishlist)
}

// Restore loads a persisted action into the slot. Called once at startup;
// a missing entry leaves the queue empty.
func (q *Queue) Restore(ctx context.Context) error {
	var a AddToWishlist
	err := store.GetJSON(ctx, q.store, store.KeyPendingWishlist, &a)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.action = a
	q.mu.Unlock()
	return nil
}

// Drain removes the queued action and hands it to exec. The slot is cleared
// before exec runs so the action fires at most once even when exec fails.
// Draining an empty queue is a no-op.
func (q *Queue) Drain(ctx context.Context, exec func(context.Context, Action) error) error {
	q.mu.Lock()
	action := q.action
	q.action = nil
	q.mu.Unlock()

	if action == nil {
		return nil
	}

	// A failed delete must not skip the replay; the in-memory slot is
	// already empty, so the worst case is a stale persisted copy that
	// Restore picks up on the next start.
	deleteErr := q.store.Delete(ctx, store.KeyPendingWishlist)
	if deleteErr != nil {
		deleteErr = fmt.Errorf("clear persisted action: %w", deleteErr)
	}
	return errors.Join(deleteErr, exec(ctx, action))
}
