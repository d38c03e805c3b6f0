package cart

import (
	"context"
	"errors"

	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/store"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
)

// Backend applies cart reads and mutations for one session mode. The
// synchronizer picks the remote backend for signed-in users and the guest
// backend otherwise; both expose the same contract so the calling code does
// not branch on authentication.
type Backend interface {
	Load(ctx context.Context) (domain.Cart, error)
	Add(ctx context.Context, product domain.Product, quantity int) (domain.Cart, error)
	SetQuantity(ctx context.Context, productID string, quantity int) (domain.Cart, error)
	Remove(ctx context.Context, productID string) (domain.Cart, error)
	Clear(ctx context.Context) error
}

// CartAPI is the slice of the backend client the remote backend needs.
type CartAPI interface {
	FetchCart(ctx context.Context) (domain.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (domain.Cart, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) (domain.Cart, error)
	RemoveCartItem(ctx context.Context, productID string) (domain.Cart, error)
}

// remoteBackend delegates every operation to the server cart.
type remoteBackend struct {
	api CartAPI
}

// NewRemoteBackend creates the backend for authenticated sessions.
func NewRemoteBackend(api CartAPI) Backend {
	return &remoteBackend{api: api}
}

func (b *remoteBackend) Load(ctx context.Context) (domain.Cart, error) {
	return b.api.FetchCart(ctx)
}

func (b *remoteBackend) Add(ctx context.Context, product domain.Product, quantity int) (domain.Cart, error) {
	return b.api.AddCartItem(ctx, product.ID, quantity)
}

func (b *remoteBackend) SetQuantity(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	return b.api.UpdateCartItem(ctx, productID, quantity)
}

func (b *remoteBackend) Remove(ctx context.Context, productID string) (domain.Cart, error) {
	return b.api.RemoveCartItem(ctx, productID)
}

func (b *remoteBackend) Clear(ctx context.Context) error {
	// Order placement empties the server cart; nothing to delete remotely.
	return nil
}

// guestBackend keeps the cart as a JSON blob in the local store. It never
// touches the network, so guest mutations work offline.
type guestBackend struct {
	store store.Store
}

// NewGuestBackend creates the backend for anonymous sessions.
func NewGuestBackend(s store.Store) Backend {
	return &guestBackend{store: s}
}

func (b *guestBackend) Load(ctx context.Context) (domain.Cart, error) {
	var cart domain.Cart
	err := store.GetJSON(ctx, b.store, store.KeyGuestCart, &cart)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (b *guestBackend) save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if err := store.SetJSON(ctx, b.store, store.KeyGuestCart, cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (b *guestBackend) Add(ctx context.Context, product domain.Product, quantity int) (domain.Cart, error) {
	cart, err := b.Load(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	if idx := cart.FindLine(product.ID); idx >= 0 {
		cart.Lines[idx].Quantity += quantity
		cart.Lines[idx].Product = product
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: product.ID,
			Quantity:  quantity,
			Product:   product,
		})
	}
	return b.save(ctx, cart)
}

func (b *guestBackend) SetQuantity(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	cart, err := b.Load(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	idx := cart.FindLine(productID)
	if idx < 0 {
		return domain.Cart{}, apperrors.NotFound("cart line", productID)
	}
	if quantity <= 0 {
		return b.save(ctx, cart.WithoutLine(productID))
	}
	cart.Lines[idx].Quantity = quantity
	return b.save(ctx, cart)
}

func (b *guestBackend) Remove(ctx context.Context, productID string) (domain.Cart, error) {
	cart, err := b.Load(ctx)
	if err != nil {
		return domain.Cart{}, err
	}
	return b.save(ctx, cart.WithoutLine(productID))
}

func (b *guestBackend) Clear(ctx context.Context) error {
	return b.store.Delete(ctx, store.KeyGuestCart)
}
