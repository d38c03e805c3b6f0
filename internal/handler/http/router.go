// Package http is the local facade in front of the session layer. Surfaces
// on the same host talk to these endpoints instead of the remote backend.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelane/storefront-session/internal/cart"
	"github.com/avelane/storefront-session/internal/catalog"
	"github.com/avelane/storefront-session/internal/notify"
	"github.com/avelane/storefront-session/internal/session"
	"github.com/avelane/storefront-session/internal/wishlist"
	"github.com/avelane/storefront-session/pkg/health"
	"github.com/avelane/storefront-session/pkg/middleware"
)

// Handler bundles the session layer components behind HTTP endpoints.
type Handler struct {
	sessions  *session.Manager
	carts     *cart.Synchronizer
	wishlists *wishlist.Synchronizer
	catalog   *catalog.Mirror
	feed      *notify.Ring
	logger    *slog.Logger
}

// NewHandler creates the facade handler.
func NewHandler(
	sessions *session.Manager,
	carts *cart.Synchronizer,
	wishlists *wishlist.Synchronizer,
	mirror *catalog.Mirror,
	feed *notify.Ring,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sessions:  sessions,
		carts:     carts,
		wishlists: wishlists,
		catalog:   mirror,
		feed:      feed,
		logger:    logger,
	}
}

// NewRouter creates a chi router with all facade routes registered.
func NewRouter(h *Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("session"))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/password", h.ChangePassword)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{productId}", h.UpdateCartQuantity)
			r.Delete("/items/{productId}", h.RemoveCartItem)
			r.Post("/checkout", h.Checkout)
		})

		r.Get("/orders", h.ListOrders)

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Post("/toggle", h.ToggleWishlist)
			r.Get("/redirect", h.WishlistRedirect)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.ListCatalog)
			r.Get("/{key}", h.GetCatalogProduct)
		})

		r.Get("/notifications", h.Notifications)
	})

	return r
}
