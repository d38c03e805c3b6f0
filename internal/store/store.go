// Package store defines the persistent local store the session layer writes
// through. Values are opaque strings; structured records go through the JSON
// helpers. Implementations must return apperrors.ErrNotFound for missing keys.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/avelane/storefront-session/pkg/errors"
)

// Store is a small string keyed value store with best-effort durability.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys. User scoped keys are built with the helpers below.
const (
	KeyAuthToken       = "auth:token"
	KeyGuestCart       = "cart:guest"
	KeyPendingWishlist = "pending:wishlist-product"
	KeyPendingRedirect = "pending:redirect-wishlist"
)

// WishlistKey returns the per-user wishlist cache key.
func WishlistKey(userID string) string {
	return fmt.Sprintf("wishlist:%s", userID)
}

// GetJSON loads the value at key and unmarshals it into out.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return apperrors.Wrap(err, fmt.Sprintf("decode stored value at %s", key))
	}
	return nil
}

// SetJSON marshals v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, fmt.Sprintf("encode value for %s", key))
	}
	return s.Set(ctx, key, string(raw))
}
