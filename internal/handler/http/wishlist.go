package http

import (
	"encoding/json"
	"net/http"

	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/pkg/httputil"
	"github.com/avelane/storefront-session/pkg/validator"
)

// ToggleWishlistRequest saves or unsaves a product, addressed by id or SKU.
type ToggleWishlistRequest struct {
	ProductKey string `json:"product_key" validate:"required"`
}

// WishlistResponse is the wishlist with its size.
type WishlistResponse struct {
	Wishlist domain.Wishlist `json:"wishlist"`
	Size     int             `json:"size"`
}

// GetWishlist handles GET /api/v1/wishlist
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl := h.wishlists.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: WishlistResponse{Wishlist: wl, Size: len(wl.Entries)},
	})
}

// ToggleWishlist handles POST /api/v1/wishlist/toggle
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req ToggleWishlistRequest
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

	if err := h.wishlists.Toggle(r.Context(), req.ProductKey); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	wl := h.wishlists.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: WishlistResponse{Wishlist: wl, Size: len(wl.Entries)},
	})
}

// WishlistRedirect handles GET /api/v1/wishlist/redirect. Consuming is
// destructive: the marker answers true once per deferred save.
func (h *Handler) WishlistRedirect(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]bool{"redirect": h.wishlists.ConsumeRedirect(r.Context())},
	})
}
