package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelane/storefront-session/internal/domain"
	apperrors "github.com/avelane/storefront-session/pkg/errors"
	"github.com/avelane/storefront-session/pkg/httpclient"
	"github.com/avelane/storefront-session/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	doer := httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})

	var tokens TokenSource
	if token != "" {
		tokens = TokenFunc(func() string { return token })
	}
	return New(srv.URL, doer, tokens, logger.NewWithWriter("api-test", "error", testWriter{t}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"items":[]}`))
	})

	c := newTestClient(t, handler, "tok-123")
	_, err := c.FetchCart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	c := newTestClient(t, handler, "")
	_, _, err := c.ListProducts(context.Background(), 1, 20)

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_UnwrapsDataEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"p1","name":"Lamp","price":19.99,"inStock":true,"quantity":4}}`))
	})

	c := newTestClient(t, handler, "")
	got, err := c.GetProduct(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, int64(1999), got.Price)
	assert.True(t, got.Available())
}

func TestClient_Unauthorized_MapsToSessionExpired(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"TOKEN_INVALID","message":"token rejected"}}`))
	})

	c := newTestClient(t, handler, "stale")
	_, err := c.FetchCart(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestListProducts_LegacyFieldVariants(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"products":[
			{"_id":"m1","title":"Mug","salePrice":4.5,"available":true,"stock":7},
			{"productId":"m2","title":"Plate","salePrice":9,"available":false},
			{"title":"no identifier, dropped"}
		],"total":41}`))
	})

	c := newTestClient(t, handler, "")
	products, total, err := c.ListProducts(context.Background(), 2, 20)

	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, products, 2)

	assert.Equal(t, "m1", products[0].ID)
	assert.Equal(t, "Mug", products[0].Name)
	assert.Equal(t, int64(450), products[0].Price)
	assert.Equal(t, 7, products[0].Quantity)
	assert.True(t, products[0].Available())

	assert.Equal(t, "m2", products[1].ID)
	assert.False(t, products[1].Available())
}

func TestListProducts_BareArray(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"p1","name":"Lamp","price":10}]`))
	})

	c := newTestClient(t, handler, "")
	products, total, err := c.ListProducts(context.Background(), 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.True(t, products[0].InStock, "routes without a stock flag list only purchasable products")
}

func TestLogin_TokenFieldVariants(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"access_token":"tok-9","user":{"_id":"u1","name":"Ana","email":"a@b.c"}}`))
	})

	c := newTestClient(t, handler, "")
	token, user, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "tok-9", token)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "customer", string(user.Role), "missing role defaults to customer")
}

func TestFetchCart_ItemVariants(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"productId":"p1","quantity":2,"product":{"_id":"p1","title":"Mug","salePrice":4.5}},
			{"quantity":1,"product":{"id":"p2","name":"Plate","price":9}}
		]}`))
	})

	c := newTestClient(t, handler, "tok")
	cart, err := c.FetchCart(context.Background())

	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "p1", cart.Lines[0].ProductID)
	assert.Equal(t, "p2", cart.Lines[1].ProductID, "line id falls back to the product record")
	assert.Equal(t, 4, cart.Count())
}

func TestFetchWishlist_FullRecords(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[{"id":"p1","name":"Lamp","price":10,"inStock":true,"quantity":1}]}`))
	})

	c := newTestClient(t, handler, "tok")
	res, err := c.FetchWishlist(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Degraded)
	require.Len(t, res.Wishlist.Entries, 1)
	assert.Equal(t, "Lamp", res.Wishlist.Entries[0].Product.Name)
}

func TestFetchWishlist_BareIDsIsDegraded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["p1","p2",""]`))
	})

	c := newTestClient(t, handler, "tok")
	res, err := c.FetchWishlist(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []string{"p1", "p2"}, res.Wishlist.IDs())
}

func TestAddWishlistItem_ConflictSurfacesAsConflict(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"CONFLICT","message":"already saved"}}`))
	})

	c := newTestClient(t, handler, "tok")
	err := c.AddWishlistItem(context.Background(), "p1")

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestPlaceOrder(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"orderId":"ord-7","status":"pending"}`))
	})

	c := newTestClient(t, handler, "tok")
	cart := domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1, Product: domain.Product{Price: 450}}}}
	id, err := c.PlaceOrder(context.Background(), cart, ShippingDetails{Name: "Ana", Street: "Main 1", City: "Lisbon", Zip: "1000", Country: "PT"})

	require.NoError(t, err)
	assert.Equal(t, "ord-7", id)
}

func TestListOrders_ShapeVariants(t *testing.T) {
	bare := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"o1","status":"shipped","total_amount":19.99,"createdAt":"2026-08-01"}]`))
	})
	c := newTestClient(t, bare, "tok")

	orders, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, int64(1999), orders[0].Total)
	assert.Equal(t, "2026-08-01", orders[0].CreatedAt)

	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orders":[{"id":"o2","status":"pending","total":5}]}`))
	})
	c = newTestClient(t, wrapped, "tok")

	orders, err = c.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, int64(500), orders[0].Total)
}

func TestUpdateProfile_NormalizesRecord(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/profile", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"u1","name":"Ana Maria","email":"a@b.c"}`))
	})
	c := newTestClient(t, handler, "tok")

	profile, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: "Ana Maria"})
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "Ana Maria", profile.Name)
	assert.Equal(t, domain.RoleCustomer, profile.Role, "missing role defaults to customer")
}
