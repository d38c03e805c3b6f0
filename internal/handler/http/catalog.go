package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/avelane/storefront-session/pkg/errors"
	"github.com/avelane/storefront-session/pkg/httputil"
	"github.com/avelane/storefront-session/pkg/pagination"
)

// ListCatalog handles GET /api/v1/catalog
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	products, total := h.catalog.Page(params.Page, params.PerPage)
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(products, total, params))
}

// GetCatalogProduct handles GET /api/v1/catalog/{key}, accepting a product
// id or a SKU.
func (h *Handler) GetCatalogProduct(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	product, ok := h.catalog.Resolve(key)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("product", key), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// Notifications handles GET /api/v1/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.feed.Recent()})
}
