package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/avelane/storefront-session/internal/domain"
)

// WishlistResult is the outcome of a wishlist fetch. Degraded is set when
// the backend returned bare product identifiers instead of full records; the
// caller then falls back to its local product cache for display data.
type WishlistResult struct {
	Wishlist domain.Wishlist
	Degraded bool
}

// FetchWishlist loads the signed-in user's wishlist. The route has two
// response shapes in the wild: an array of product records, or an array of
// bare id strings.
func (c *Client) FetchWishlist(ctx context.Context) (WishlistResult, error) {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/wishlist", nil, &payload); err != nil {
		return WishlistResult{}, err
	}

	// Object wrapper used by some deployments.
	var wrapped struct {
		Products json.RawMessage `json:"products"`
		Items    json.RawMessage `json:"items"`
	}
	if json.Unmarshal(payload, &wrapped) == nil {
		if len(wrapped.Products) > 0 {
			payload = wrapped.Products
		} else if len(wrapped.Items) > 0 {
			payload = wrapped.Items
		}
	}

	var ids []string
	if err := json.Unmarshal(payload, &ids); err == nil {
		w := domain.Wishlist{Entries: make([]domain.WishlistEntry, 0, len(ids))}
		for _, id := range ids {
			if id == "" {
				continue
			}
			w.Entries = append(w.Entries, domain.WishlistEntry{ProductID: id})
		}
		return WishlistResult{Wishlist: w, Degraded: true}, nil
	}

	var products []productPayload
	if err := json.Unmarshal(payload, &products); err != nil {
		return WishlistResult{}, fmt.Errorf("decode wishlist: %w", err)
	}

	w := domain.Wishlist{Entries: make([]domain.WishlistEntry, 0, len(products))}
	for _, p := range products {
		prod := p.toDomain()
		if prod.ID == "" {
			continue
		}
		w.Entries = append(w.Entries, domain.WishlistEntry{ProductID: prod.ID, Product: prod})
	}
	return WishlistResult{Wishlist: w}, nil
}

type wishlistItemRequest struct {
	ProductID string `json:"productId"`
}

// AddWishlistItem saves a product to the server wishlist. Adding a product
// that is already saved returns a conflict, which callers treat as success.
func (c *Client) AddWishlistItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodPost, "/wishlist/items", wishlistItemRequest{ProductID: productID}, nil)
}

// RemoveWishlistItem deletes a product from the server wishlist.
func (c *Client) RemoveWishlistItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/wishlist/items/"+url.PathEscape(productID), nil, nil)
}
