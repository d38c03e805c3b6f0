// Package wishlist mirrors the signed-in user's saved products and defers
// guest saves until after login. Toggling is idempotent from the caller's
// point of view: saving an already saved product settles as saved.
package wishlist

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/notify"
	"github.com/avelane/storefront-session/internal/pending"
	"github.com/avelane/storefront-session/internal/store"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
	"github.com/avelane/storefront-session/pkg/logger"
)

// WishlistAPI is the slice of the backend client the synchronizer needs.
type WishlistAPI interface {
	FetchWishlist(ctx context.Context) (api.WishlistResult, error)
	AddWishlistItem(ctx context.Context, productID string) error
	RemoveWishlistItem(ctx context.Context, productID string) error
}

// SessionState is the read side of the session manager.
type SessionState interface {
	Authenticated() bool
	UserID() string
}

// Expirer tears down the session after a rejected token. It notifies on its
// own; callers routing an unauthorized error here must not notify again.
type Expirer interface {
	Expire(ctx context.Context)
}

// Resolver turns a product id or SKU into a full product record.
type Resolver interface {
	Resolve(key string) (domain.Product, bool)
}

// ActivityPublisher emits wishlist activity events. May be nil.
type ActivityPublisher interface {
	WishlistUpdated(ctx context.Context, userID string, size int)
}

// Synchronizer is the wishlist state machine. The mutex guards only the
// in-memory wishlist and is never held across a backend call.
type Synchronizer struct {
	session  SessionState
	expirer  Expirer
	catalog  Resolver
	api      WishlistAPI
	store    store.Store
	queue    *pending.Queue
	notifier notify.Notifier
	events   ActivityPublisher
	log      *slog.Logger

	mu       sync.Mutex
	wishlist domain.Wishlist
}

// Config collects the synchronizer's collaborators.
type Config struct {
	Session  SessionState
	Expirer  Expirer
	Catalog  Resolver
	API      WishlistAPI
	Store    store.Store
	Queue    *pending.Queue
	Notifier notify.Notifier
	Events   ActivityPublisher
	Logger   *slog.Logger
}

// NewSynchronizer creates a wishlist synchronizer with an empty wishlist.
func NewSynchronizer(cfg Config) *Synchronizer {
	return &Synchronizer{
		session:  cfg.Session,
		expirer:  cfg.Expirer,
		catalog:  cfg.Catalog,
		api:      cfg.API,
		store:    cfg.Store,
		queue:    cfg.Queue,
		notifier: cfg.Notifier,
		events:   cfg.Events,
		log:      cfg.Logger,
	}
}

// Snapshot returns a copy of the current wishlist.
func (s *Synchronizer) Snapshot() domain.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Clone()
}

// Contains reports whether the product is currently saved.
func (s *Synchronizer) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Contains(productID)
}

// Toggle saves or unsaves a product. Guests cannot write to the server
// wishlist: the save is parked in the deferred queue, a redirect marker is
// persisted, and the user is prompted to sign in.
func (s *Synchronizer) Toggle(ctx context.Context, key string) error {
	product, ok := s.catalog.Resolve(key)
	if !ok {
		s.notifier.Error(ctx, "product not found")
		return apperrors.NotFound("product", key)
	}

	if !s.session.Authenticated() {
		return s.deferSave(ctx, product)
	}

	if s.Contains(product.ID) {
		return s.remove(ctx, product)
	}
	return s.add(ctx, product)
}

// deferSave parks a guest's save for replay after login.
func (s *Synchronizer) deferSave(ctx context.Context, product domain.Product) error {
	if err := s.queue.Set(ctx, pending.AddToWishlist{Product: product}); err != nil {
		logger.WithContext(ctx, s.log).Warn("persist deferred save", slog.String("error", err.Error()))
	}
	if err := s.store.Set(ctx, store.KeyPendingRedirect, "1"); err != nil {
		logger.WithContext(ctx, s.log).Warn("persist redirect marker", slog.String("error", err.Error()))
	}

	s.notifier.PromptLogin(ctx, "sign in to save "+product.Name+" to your wishlist")
	return apperrors.AuthRequired("saving to the wishlist requires a signed-in session")
}

func (s *Synchronizer) add(ctx context.Context, product domain.Product) error {
	s.mu.Lock()
	previous := s.wishlist.Clone()
	s.wishlist, _ = s.wishlist.Add(domain.WishlistEntry{ProductID: product.ID, Product: product})
	s.mu.Unlock()

	err := s.api.AddWishlistItem(ctx, product.ID)
	if err != nil && !apperrors.IsConflict(err) {
		s.mu.Lock()
		s.wishlist = previous
		s.mu.Unlock()
		s.handleError(ctx, err, "could not save "+product.Name)
		return err
	}

	s.cache(ctx)
	s.notifier.Success(ctx, product.Name+" saved to your wishlist")
	s.publish(ctx)
	return nil
}

func (s *Synchronizer) remove(ctx context.Context, product domain.Product) error {
	s.mu.Lock()
	previous := s.wishlist.Clone()
	s.wishlist, _ = s.wishlist.Remove(product.ID)
	s.mu.Unlock()

	if err := s.api.RemoveWishlistItem(ctx, product.ID); err != nil {
		s.mu.Lock()
		s.wishlist = previous
		s.mu.Unlock()
		s.handleError(ctx, err, "could not remove "+product.Name)
		return err
	}

	s.cache(ctx)
	s.notifier.Success(ctx, product.Name+" removed from your wishlist")
	s.publish(ctx)
	return nil
}

// LoadFromServer replaces the in-memory wishlist from the backend. When the
// backend answers with bare identifiers, display data is filled from the
// catalog mirror, then from the last cached wishlist for this user.
func (s *Synchronizer) LoadFromServer(ctx context.Context) error {
	result, err := s.api.FetchWishlist(ctx)
	if err != nil {
		s.handleError(ctx, err, "could not load your wishlist")
		return err
	}

	wishlist := result.Wishlist
	if result.Degraded {
		wishlist = s.hydrate(ctx, wishlist)
	}

	s.mu.Lock()
	s.wishlist = wishlist
	s.mu.Unlock()

	s.cache(ctx)
	return nil
}

// hydrate fills product snapshots for bare id entries.
func (s *Synchronizer) hydrate(ctx context.Context, wishlist domain.Wishlist) domain.Wishlist {
	var cached domain.Wishlist
	if uid := s.session.UserID(); uid != "" {
		if err := store.GetJSON(ctx, s.store, store.WishlistKey(uid), &cached); err != nil &&
			!errors.Is(err, apperrors.ErrNotFound) {
			logger.WithContext(ctx, s.log).Warn("read cached wishlist", slog.String("error", err.Error()))
		}
	}

	for i, entry := range wishlist.Entries {
		if entry.Product.ID != "" {
			continue
		}
		if product, ok := s.catalog.Resolve(entry.ProductID); ok {
			wishlist.Entries[i].Product = product
			continue
		}
		for _, c := range cached.Entries {
			if c.ProductID == entry.ProductID && c.Product.ID != "" {
				wishlist.Entries[i].Product = c.Product
				break
			}
		}
	}
	return wishlist
}

// cache writes the current wishlist to the per-user store slot so degraded
// backend responses can be hydrated later.
func (s *Synchronizer) cache(ctx context.Context) {
	uid := s.session.UserID()
	if uid == "" {
		return
	}
	if err := store.SetJSON(ctx, s.store, store.WishlistKey(uid), s.Snapshot()); err != nil {
		logger.WithContext(ctx, s.log).Warn("cache wishlist", slog.String("error", err.Error()))
	}
}

// Replay executes a deferred action against the now signed-in session. It
// is the executor handed to the queue's Drain.
func (s *Synchronizer) Replay(ctx context.Context, action pending.Action) error {
	switch a := action.(type) {
	case pending.AddToWishlist:
		return s.add(ctx, a.Product)
	default:
		return errors.New("unknown pending action variant")
	}
}

// ReplayPending drains the deferred queue. Runs as a login hook; an empty
// queue is a no-op.
func (s *Synchronizer) ReplayPending(ctx context.Context) {
	if err := s.queue.Drain(ctx, s.Replay); err != nil {
		logger.WithContext(ctx, s.log).Warn("replay deferred save", slog.String("error", err.Error()))
	}
}

// RestorePending loads a persisted deferred action at startup.
func (s *Synchronizer) RestorePending(ctx context.Context) {
	if err := s.queue.Restore(ctx); err != nil {
		logger.WithContext(ctx, s.log).Warn("restore deferred save", slog.String("error", err.Error()))
	}
}

// ConsumeRedirect reports whether a guest save asked for a post-login
// redirect to the wishlist, clearing the marker.
func (s *Synchronizer) ConsumeRedirect(ctx context.Context) bool {
	if _, err := s.store.Get(ctx, store.KeyPendingRedirect); err != nil {
		return false
	}
	_ = s.store.Delete(ctx, store.KeyPendingRedirect)
	return true
}

// Reset drops the in-memory wishlist. Runs on logout and expiry; the
// per-user cache entry stays for the next sign-in.
func (s *Synchronizer) Reset(context.Context) {
	s.mu.Lock()
	s.wishlist = domain.Wishlist{}
	s.mu.Unlock()
}

func (s *Synchronizer) handleError(ctx context.Context, err error, message string) {
	if apperrors.IsUnauthorized(err) {
		s.expirer.Expire(ctx)
		return
	}
	logger.WithContext(ctx, s.log).Warn("wishlist operation failed", slog.String("error", err.Error()))
	s.notifier.Error(ctx, message)
}

func (s *Synchronizer) publish(ctx context.Context) {
	if s.events == nil {
		return
	}
	s.mu.Lock()
	size := len(s.wishlist.Entries)
	s.mu.Unlock()
	s.events.WishlistUpdated(ctx, s.session.UserID(), size)
}
