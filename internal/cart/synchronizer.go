// Package cart keeps the in-memory cart in step with whichever backing it
// currently has: the server cart for signed-in users, the locally stored
// guest cart otherwise. Item count and subtotal are always derived from the
// line slice, never tracked separately.
package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/notify"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
	"github.com/avelane/storefront-session/pkg/logger"
)

// SessionState is the read side of the session manager.
type SessionState interface {
	Authenticated() bool
	UserID() string
}

// Expirer tears down the session after the backend rejects its token. The
// teardown emits its own notification, so callers routing an unauthorized
// error here must not notify again.
type Expirer interface {
	Expire(ctx context.Context)
}

// Resolver turns a product id or SKU into a full product record.
type Resolver interface {
	Resolve(key string) (domain.Product, bool)
}

// OrderAPI submits the cart for checkout and reads back order history.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, cart domain.Cart, shipping api.ShippingDetails) (string, error)
	ListOrders(ctx context.Context) ([]api.Order, error)
}

// ActivityPublisher emits cart activity events. May be nil.
type ActivityPublisher interface {
	CartUpdated(ctx context.Context, userID string, itemCount int)
}

// Synchronizer is the cart state machine. The mutex guards only the
// in-memory cart; it is never held across a backend call.
type Synchronizer struct {
	session  SessionState
	expirer  Expirer
	catalog  Resolver
	remote   Backend
	guest    Backend
	orders   OrderAPI
	notifier notify.Notifier
	events   ActivityPublisher
	log      *slog.Logger

	mu   sync.Mutex
	cart domain.Cart
}

// Config collects the synchronizer's collaborators.
type Config struct {
	Session  SessionState
	Expirer  Expirer
	Catalog  Resolver
	Remote   Backend
	Guest    Backend
	Orders   OrderAPI
	Notifier notify.Notifier
	Events   ActivityPublisher
	Logger   *slog.Logger
}

// NewSynchronizer creates a cart synchronizer with an empty cart.
func NewSynchronizer(cfg Config) *Synchronizer {
	return &Synchronizer{
		session:  cfg.Session,
		expirer:  cfg.Expirer,
		catalog:  cfg.Catalog,
		remote:   cfg.Remote,
		guest:    cfg.Guest,
		orders:   cfg.Orders,
		notifier: cfg.Notifier,
		events:   cfg.Events,
		log:      cfg.Logger,
	}
}

func (s *Synchronizer) backend() Backend {
	if s.session.Authenticated() {
		return s.remote
	}
	return s.guest
}

// Snapshot returns a copy of the current cart.
func (s *Synchronizer) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Count returns the current item count, summed over line quantities.
func (s *Synchronizer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Count()
}

func (s *Synchronizer) setCart(cart domain.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
}

// Add resolves the key against the catalog mirror and adds one unit of the
// product. Unavailable products are rejected before any backend call, with
// a single notification.
func (s *Synchronizer) Add(ctx context.Context, key string) error {
	product, ok := s.catalog.Resolve(key)
	if !ok {
		s.notifier.Error(ctx, "product not found")
		return apperrors.NotFound("product", key)
	}
	if !product.Available() {
		s.notifier.Error(ctx, product.Name+" is out of stock")
		return apperrors.OutOfStock(product.ID)
	}

	cart, err := s.backend().Add(ctx, product, 1)
	if err != nil {
		s.handleError(ctx, err, "could not add "+product.Name+" to your cart")
		return err
	}

	s.setCart(cart)
	s.notifier.Success(ctx, product.Name+" added to your cart")
	s.publish(ctx)
	return nil
}

// UpdateQuantity applies a one step quantity change to an existing line.
// The change is applied to the in-memory cart first and reverted if the
// backend refuses it. Decrementing a line at quantity one removes it.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, productID string, action domain.QuantityAction) error {
	if !action.Valid() {
		s.notifier.Error(ctx, "invalid quantity change")
		return apperrors.InvalidInput("unknown quantity action")
	}

	s.mu.Lock()
	previous := s.cart.Clone()
	idx := s.cart.FindLine(productID)
	if idx < 0 {
		s.mu.Unlock()
		s.notifier.Error(ctx, "that item is no longer in your cart")
		return apperrors.NotFound("cart line", productID)
	}

	target := s.cart.Lines[idx].Quantity
	if action == domain.QuantityIncrement {
		target++
	} else {
		target--
	}

	if target <= 0 {
		s.cart = s.cart.WithoutLine(productID)
	} else {
		s.cart.Lines[idx].Quantity = target
	}
	s.mu.Unlock()

	var (
		cart domain.Cart
		err  error
	)
	if target <= 0 {
		cart, err = s.backend().Remove(ctx, productID)
	} else {
		cart, err = s.backend().SetQuantity(ctx, productID, target)
	}
	if err != nil {
		s.setCart(previous)
		s.handleError(ctx, err, "could not update your cart")
		return err
	}

	s.setCart(cart)
	s.publish(ctx)
	return nil
}

// Remove deletes a line, optimistically and with revert on failure.
func (s *Synchronizer) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	previous := s.cart.Clone()
	if s.cart.FindLine(productID) < 0 {
		s.mu.Unlock()
		return nil
	}
	s.cart = s.cart.WithoutLine(productID)
	s.mu.Unlock()

	cart, err := s.backend().Remove(ctx, productID)
	if err != nil {
		s.setCart(previous)
		s.handleError(ctx, err, "could not remove that item")
		return err
	}

	s.setCart(cart)
	s.publish(ctx)
	return nil
}

// Load replaces the in-memory cart from the current backing.
func (s *Synchronizer) Load(ctx context.Context) error {
	cart, err := s.backend().Load(ctx)
	if err != nil {
		s.handleError(ctx, err, "could not load your cart")
		return err
	}
	s.setCart(cart)
	return nil
}

// PlaceOrder submits the cart as an order. Checkout needs a signed-in
// session; guests get a login prompt instead of a backend call. A placed
// order empties the cart.
func (s *Synchronizer) PlaceOrder(ctx context.Context, shipping api.ShippingDetails) (string, error) {
	if !s.session.Authenticated() {
		s.notifier.PromptLogin(ctx, "sign in to check out")
		return "", apperrors.AuthRequired("checkout requires a signed-in session")
	}

	s.mu.Lock()
	cart := s.cart.Clone()
	s.mu.Unlock()

	if cart.Count() == 0 {
		s.notifier.Error(ctx, "your cart is empty")
		return "", apperrors.InvalidInput("cannot place an order with an empty cart")
	}

	orderID, err := s.orders.PlaceOrder(ctx, cart, shipping)
	if err != nil {
		s.handleError(ctx, err, "order could not be placed")
		return "", err
	}

	if err := s.backend().Clear(ctx); err != nil {
		logger.WithContext(ctx, s.log).Warn("clear cart after order", slog.String("error", err.Error()))
	}
	s.setCart(domain.Cart{})

	logger.WithContext(ctx, s.log).Info("order placed", slog.String("order_id", orderID))
	s.notifier.Success(ctx, "order placed")
	s.publish(ctx)
	return orderID, nil
}

// Orders fetches the signed-in user's order history. Guests have no order
// history and get a login prompt.
func (s *Synchronizer) Orders(ctx context.Context) ([]api.Order, error) {
	if !s.session.Authenticated() {
		s.notifier.PromptLogin(ctx, "sign in to see your orders")
		return nil, apperrors.AuthRequired("order history requires a signed-in session")
	}

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		s.handleError(ctx, err, "could not load your orders")
		return nil, err
	}
	return orders, nil
}

// Reset empties the in-memory cart. Runs on logout and expiry; the guest
// cart blob in storage survives sign-in cycles untouched, and comes back
// only through RestoreGuest on the next start.
func (s *Synchronizer) Reset(context.Context) {
	s.setCart(domain.Cart{})
}

// RestoreGuest loads the stored guest cart into memory. Runs once at
// startup, before the session bootstrap decides whether a server cart takes
// over.
func (s *Synchronizer) RestoreGuest(ctx context.Context) {
	cart, err := s.guest.Load(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("restore guest cart", slog.String("error", err.Error()))
		return
	}
	s.setCart(cart)
}

// handleError routes a failed backend call to exactly one notification. An
// unauthorized error hands off to the session teardown, which notifies on
// its own.
func (s *Synchronizer) handleError(ctx context.Context, err error, message string) {
	if apperrors.IsUnauthorized(err) {
		s.expirer.Expire(ctx)
		return
	}
	logger.WithContext(ctx, s.log).Warn("cart operation failed", slog.String("error", err.Error()))
	s.notifier.Error(ctx, message)
}

func (s *Synchronizer) publish(ctx context.Context) {
	if s.events == nil {
		return
	}
	s.events.CartUpdated(ctx, s.session.UserID(), s.Count())
}
