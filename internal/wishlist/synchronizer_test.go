package wishlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/internal/notify"
	"github.com/avelane/storefront-session/internal/pending"
	"github.com/avelane/storefront-session/internal/store"
	"github.com/avelane/storefront-session/internal/store/memory"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
	"github.com/avelane/storefront-session/pkg/httpclient"
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

type mockWishlistAPI struct {
	mock.Mock
}

func (m *mockWishlistAPI) FetchWishlist(ctx context.Context) (api.WishlistResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(api.WishlistResult), args.Error(1)
}

func (m *mockWishlistAPI) AddWishlistItem(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *mockWishlistAPI) RemoveWishlistItem(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

var lamp = domain.Product{ID: "p1", SKU: "SKU-1", Name: "Lamp", Price: 1999, InStock: true, Quantity: 5}

type fixture struct {
	syn     *Synchronizer
	session *fakeSession
	expirer *fakeExpirer
	api     *mockWishlistAPI
	store   store.Store
	queue   *pending.Queue
	ring    *notify.Ring
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	session := &fakeSession{userID: ""}
	expirer := &fakeExpirer{}
	wlAPI := &mockWishlistAPI{}
	s := memory.New()
	queue := pending.NewQueue(s)
	ring := notify.NewRing(20)

	syn := NewSynchronizer(Config{
		Session:  session,
		Expirer:  expirer,
		Catalog:  fakeResolver{"p1": lamp},
		API:      wlAPI,
		Store:    s,
		Queue:    queue,
		Notifier: ring,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{syn: syn, session: session, expirer: expirer, api: wlAPI, store: s, queue: queue, ring: ring}
}

func (f *fixture) signIn() {
	f.session.authed = true
	f.session.userID = "u1"
}

func TestToggle_GuestDefersAndPromptsLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.syn.Toggle(ctx, "p1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.False(t, f.syn.Contains("p1"))

	deferred, ok := f.queue.Peek().(pending.AddToWishlist)
	require.True(t, ok)
	assert.Equal(t, "p1", deferred.Product.ID)

	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelLoginPrompt, recent[0].Level)

	_, markerErr := f.store.Get(ctx, store.KeyPendingRedirect)
	assert.NoError(t, markerErr, "redirect marker persisted")
	f.api.AssertNotCalled(t, "AddWishlistItem", mock.Anything, mock.Anything)
}

func TestToggle_AuthedAddThenRemove(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	ctx := context.Background()

	f.api.On("AddWishlistItem", mock.Anything, "p1").Return(nil).Once()
	require.NoError(t, f.syn.Toggle(ctx, "p1"))
	assert.True(t, f.syn.Contains("p1"))

	f.api.On("RemoveWishlistItem", mock.Anything, "p1").Return(nil).Once()
	require.NoError(t, f.syn.Toggle(ctx, "SKU-1"), "SKU resolves to the same product")
	assert.False(t, f.syn.Contains("p1"))

	f.api.AssertExpectations(t)
}

func TestToggle_ConflictSettlesAsSaved(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	f.api.On("AddWishlistItem", mock.Anything, "p1").
		Return(apperrors.Conflict("already saved"))

	require.NoError(t, f.syn.Toggle(context.Background(), "p1"))

	assert.True(t, f.syn.Contains("p1"))
	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelSuccess, recent[0].Level)
}

func TestToggle_LegacyDuplicateReportSettlesAsSaved(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	// Older backend routes answer a duplicate add with a 400 body instead
	// of a 409. The shared error mapping turns it into a conflict.
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"Product already in wishlist"}}`)),
	}
	f.api.On("AddWishlistItem", mock.Anything, "p1").
		Return(httpclient.ParseResponseError(resp, "wishlist"))

	require.NoError(t, f.syn.Toggle(context.Background(), "p1"))

	assert.True(t, f.syn.Contains("p1"))
	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelSuccess, recent[0].Level)
}

func TestToggle_AddFailureReverts(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	f.api.On("AddWishlistItem", mock.Anything, "p1").Return(errors.New("backend down"))

	require.Error(t, f.syn.Toggle(context.Background(), "p1"))

	assert.False(t, f.syn.Contains("p1"))
	require.Len(t, f.ring.Recent(), 1, "exactly one notification per failure")
}

func TestLoadFromServer_FullRecords(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	f.api.On("FetchWishlist", mock.Anything).Return(api.WishlistResult{
		Wishlist: domain.Wishlist{Entries: []domain.WishlistEntry{{ProductID: "p1", Product: lamp}}},
	}, nil)

	require.NoError(t, f.syn.LoadFromServer(context.Background()))

	assert.True(t, f.syn.Contains("p1"))
	assert.Equal(t, "Lamp", f.syn.Snapshot().Entries[0].Product.Name)
}

func TestLoadFromServer_DegradedHydratesFromCatalogAndCache(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	ctx := context.Background()

	// p9 is unknown to the catalog but present in the user's cached wishlist.
	cached := domain.Wishlist{Entries: []domain.WishlistEntry{
		{ProductID: "p9", Product: domain.Product{ID: "p9", Name: "Rug", Price: 5000}},
	}}
	require.NoError(t, store.SetJSON(ctx, f.store, store.WishlistKey("u1"), cached))

	f.api.On("FetchWishlist", mock.Anything).Return(api.WishlistResult{
		Wishlist: domain.Wishlist{Entries: []domain.WishlistEntry{
			{ProductID: "p1"},
			{ProductID: "p9"},
		}},
		Degraded: true,
	}, nil)

	require.NoError(t, f.syn.LoadFromServer(ctx))

	got := f.syn.Snapshot()
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "Lamp", got.Entries[0].Product.Name, "hydrated from the catalog mirror")
	assert.Equal(t, "Rug", got.Entries[1].Product.Name, "hydrated from the cached wishlist")
}

func TestReplayPending_SavesDeferredProductAfterLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.syn.Toggle(ctx, "p1")
	f.ring.Clear()

	f.signIn()
	f.api.On("AddWishlistItem", mock.Anything, "p1").Return(nil)

	f.syn.ReplayPending(ctx)

	assert.True(t, f.syn.Contains("p1"))
	assert.Nil(t, f.queue.Peek())

	recent := f.ring.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelSuccess, recent[0].Level)
}

func TestReplayPending_SurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.syn.Toggle(ctx, "p1")

	// A fresh queue over the same store sees the persisted action.
	restarted := pending.NewQueue(f.store)
	f.syn.queue = restarted
	f.syn.RestorePending(ctx)

	got, ok := restarted.Peek().(pending.AddToWishlist)
	require.True(t, ok)
	assert.Equal(t, "p1", got.Product.ID)
}

func TestUnauthorized_TriggersExpiry(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	f.api.On("FetchWishlist", mock.Anything).
		Return(api.WishlistResult{}, apperrors.SessionExpired("token rejected"))

	require.Error(t, f.syn.LoadFromServer(context.Background()))

	assert.Equal(t, 1, f.expirer.calls)
	assert.Empty(t, f.ring.Recent(), "expiry teardown owns the notification")
}

func TestConsumeRedirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.syn.ConsumeRedirect(ctx))

	_ = f.syn.Toggle(ctx, "p1")

	assert.True(t, f.syn.ConsumeRedirect(ctx))
	assert.False(t, f.syn.ConsumeRedirect(ctx), "marker is consumed")
}

func TestReset_ClearsMemoryOnly(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	ctx := context.Background()

	f.api.On("AddWishlistItem", mock.Anything, "p1").Return(nil)
	require.NoError(t, f.syn.Toggle(ctx, "p1"))

	f.syn.Reset(ctx)

	assert.False(t, f.syn.Contains("p1"))

	var cached domain.Wishlist
	require.NoError(t, store.GetJSON(ctx, f.store, store.WishlistKey("u1"), &cached))
	assert.True(t, cached.Contains("p1"), "per-user cache survives logout")
}
