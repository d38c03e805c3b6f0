package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/notify"
	"github.com/avelane/storefront-session/internal/store/memory"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
)

type fakeSession struct {
	authed bool
	userID string
}

func (f *fakeSession) Authenticated() bool { return f.authed }
func (f *fakeSession) UserID() string      { return f.userID }

type fakeExpirer struct {
	calls int
}

func (f *fakeExpirer) Expire(context.Context) { f.calls++ }

type fakeResolver map[string]domain.Product

func (f fakeResolver) Resolve(key string) (domain.Product, bool) {
	for _, p := range f {
		if p.Matches(key) {
			return p, true
		}
	}
	return domain.Product{}, false
}

type mockCartAPI struct {
	mock.Mock
}

func (m *mockCartAPI) FetchCart(ctx context.Context) (domain.Cart, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *mockCartAPI) AddCartItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *mockCartAPI) UpdateCartItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *mockCartAPI) RemoveCartItem(ctx context.Context, productID string) (domain.Cart, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Cart), args.Error(1)
}

type mockOrderAPI struct {
	mock.Mock
}

func (m *mockOrderAPI) PlaceOrder(ctx context.Context, cart domain.Cart, shipping api.ShippingDetails) (string, error) {
	args := m.Called(ctx, cart, shipping)
	return args.String(0), args.Error(1)
}

func (m *mockOrderAPI) ListOrders(ctx context.Context) ([]api.Order, error) {
	args := m.Called(ctx)
	var orders []api.Order
	if o := args.Get(0); o != nil {
		orders = o.([]api.Order)
	}
	return orders, args.Error(1)
}

var (
	lamp = domain.Product{ID: "p1", SKU: "SKU-1", Name: "Lamp", Price: 1999, InStock: true, Quantity: 5}
	mug  = domain.Product{ID: "p2", SKU: "SKU-2", Name: "Mug", Price: 450, InStock: true, Quantity: 2}
	sold = domain.Product{ID: "p3", SKU: "SKU-3", Name: "Chair", Price: 9900, InStock: false}
)

type fixture struct {
	sync    *Synchronizer
	session *fakeSession
	expirer *fakeExpirer
	cartAPI *mockCartAPI
	orders  *mockOrderAPI
	ring    *notify.Ring
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	session := &fakeSession{}
	expirer := &fakeExpirer{}
	cartAPI := &mockCartAPI{}
	orders := &mockOrderAPI{}
	ring := notify.NewRing(20)

	sync := NewSynchronizer(Config{
		Session:  session,
		Expirer:  expirer,
		Catalog:  fakeResolver{"p1": lamp, "p2": mug, "p3": sold},
		Remote:   NewRemoteBackend(cartAPI),
		Guest:    NewGuestBackend(memory.New()),
		Orders:   orders,
		Notifier: ring,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{sync: sync, session: session, expirer: expirer, cartAPI: cartAPI, orders: orders, ring: ring}
}

func TestAdd_GuestUsesLocalBacking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sync.Add(ctx, "p1"))
	require.NoError(t, f.sync.Add(ctx, "SKU-1"), "SKU resolves to the same product")

	cart := f.sync.Snapshot()
	require.Len(t, cart.Lines, 1, "one line per product")
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, 2, f.sync.Count())
	f.cartAPI.AssertNotCalled(t, "AddCartItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdd_OutOfStock_NoNetworkOneNotification(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true

	err := f.sync.Add(context.Background(), "p3")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, 0, f.sync.Count())

	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelError, recent[0].Level)
	f.cartAPI.AssertNotCalled(t, "AddCartItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdd_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	err := f.sync.Add(context.Background(), "nope")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Len(t, f.ring.Recent(), 1)
}

func TestAdd_AuthedUsesRemote(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true
	f.session.userID = "u1"

	serverCart := domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1, Product: lamp}}}
	f.cartAPI.On("AddCartItem", mock.Anything, "p1", 1).Return(serverCart, nil)

	require.NoError(t, f.sync.Add(context.Background(), "p1"))

	assert.Equal(t, 1, f.sync.Count())
	f.cartAPI.AssertExpectations(t)
}

func TestUpdateQuantity_RevertsOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sync.Add(ctx, "p1"))
	f.ring.Clear()

	f.session.authed = true
	f.cartAPI.On("UpdateCartItem", mock.Anything, "p1", 2).
		Return(domain.Cart{}, errors.New("backend down"))

	err := f.sync.UpdateQuantity(ctx, "p1", domain.QuantityIncrement)

	require.Error(t, err)
	assert.Equal(t, 1, f.sync.Snapshot().Lines[0].Quantity, "optimistic change reverted")
	require.Len(t, f.ring.Recent(), 1, "exactly one notification per failure")
}

func TestUpdateQuantity_DecrementAtOneRemovesLine(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true
	ctx := context.Background()

	f.cartAPI.On("AddCartItem", mock.Anything, "p1", 1).
		Return(domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1, Product: lamp}}}, nil)
	require.NoError(t, f.sync.Add(ctx, "p1"))

	f.cartAPI.On("RemoveCartItem", mock.Anything, "p1").Return(domain.Cart{}, nil)

	require.NoError(t, f.sync.UpdateQuantity(ctx, "p1", domain.QuantityDecrement))

	assert.Equal(t, 0, f.sync.Count())
	f.cartAPI.AssertNotCalled(t, "UpdateCartItem", mock.Anything, "p1", 0)
	f.cartAPI.AssertExpectations(t)
}

func TestUpdateQuantity_MissingLine(t *testing.T) {
	f := newFixture(t)

	err := f.sync.UpdateQuantity(context.Background(), "p1", domain.QuantityIncrement)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Len(t, f.ring.Recent(), 1)
}

func TestRemove_AbsentLineIsNoop(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true

	require.NoError(t, f.sync.Remove(context.Background(), "p9"))
	f.cartAPI.AssertNotCalled(t, "RemoveCartItem", mock.Anything, mock.Anything)
	assert.Empty(t, f.ring.Recent())
}

func TestUnauthorized_TriggersExpiryWithoutExtraNotification(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true

	f.cartAPI.On("FetchCart", mock.Anything).
		Return(domain.Cart{}, apperrors.SessionExpired("token rejected"))

	require.Error(t, f.sync.Load(context.Background()))

	assert.Equal(t, 1, f.expirer.calls)
	assert.Empty(t, f.ring.Recent(), "expiry teardown owns the notification")
}

func TestPlaceOrder_GuestPromptsLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sync.Add(ctx, "p1"))
	f.ring.Clear()

	_, err := f.sync.PlaceOrder(ctx, api.ShippingDetails{})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelLoginPrompt, recent[0].Level)
	f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true

	_, err := f.sync.PlaceOrder(context.Background(), api.ShippingDetails{})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPlaceOrder_Success_ClearsCart(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true
	ctx := context.Background()

	f.cartAPI.On("AddCartItem", mock.Anything, "p1", 1).
		Return(domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1, Product: lamp}}}, nil)
	require.NoError(t, f.sync.Add(ctx, "p1"))
	f.ring.Clear()

	f.orders.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything).Return("ord-1", nil)

	orderID, err := f.sync.PlaceOrder(ctx, api.ShippingDetails{Name: "Ana"})

	require.NoError(t, err)
	assert.Equal(t, "ord-1", orderID)
	assert.Equal(t, 0, f.sync.Count())

	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelSuccess, recent[0].Level)
}

func TestGuestCartSurvivesSignInCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sync.Add(ctx, "p1"))
	require.NoError(t, f.sync.Add(ctx, "p2"))

	// Sign in: the server cart takes over without merging the guest cart.
	f.session.authed = true
	f.cartAPI.On("FetchCart", mock.Anything).Return(domain.Cart{}, nil)
	require.NoError(t, f.sync.Load(ctx))
	assert.Equal(t, 0, f.sync.Count())

	// Sign out: derived state is cleared even though the guest blob stays
	// in storage.
	f.session.authed = false
	f.sync.Reset(ctx)
	assert.Equal(t, 0, f.sync.Count())

	// The next start restores the untouched guest cart.
	f.sync.RestoreGuest(ctx)
	assert.Equal(t, 2, f.sync.Count())
}

func TestOrders_GuestPromptsLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.Orders(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelLoginPrompt, recent[0].Level)
	f.orders.AssertNotCalled(t, "ListOrders", mock.Anything)
}

func TestOrders_ReturnsHistory(t *testing.T) {
	f := newFixture(t)
	f.session.authed = true

	history := []api.Order{
		{ID: "ord-2", Status: "shipped", Total: 4998},
		{ID: "ord-1", Status: "delivered", Total: 1999},
	}
	f.orders.On("ListOrders", mock.Anything).Return(history, nil)

	orders, err := f.sync.Orders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, history, orders)
}
