package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/avelane/storefront-session/internal/domain"
)

type cartLinePayload struct {
	ProductID string         `json:"productId"`
	Product   productPayload `json:"product"`
	Quantity  int            `json:"quantity"`
}

type cartPayload struct {
	Items []cartLinePayload `json:"items"`
	Lines []cartLinePayload `json:"lines"`
}

func (p cartPayload) toDomain() domain.Cart {
	lines := p.Items
	if len(lines) == 0 {
		lines = p.Lines
	}

	cart := domain.Cart{Lines: make([]domain.CartLine, 0, len(lines))}
	for _, l := range lines {
		product := l.Product.toDomain()
		productID := l.ProductID
		if productID == "" {
			productID = product.ID
		}
		if productID == "" || l.Quantity <= 0 {
			continue
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: productID,
			Quantity:  l.Quantity,
			Product:   product,
		})
	}
	return cart
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// FetchCart loads the signed-in user's server cart.
func (c *Client) FetchCart(ctx context.Context) (domain.Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &payload); err != nil {
		return domain.Cart{}, err
	}
	return payload.toDomain(), nil
}

// AddCartItem adds quantity units of a product to the server cart and
// returns the resulting cart.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	var payload cartPayload
	req := cartItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/cart/items", req, &payload); err != nil {
		return domain.Cart{}, err
	}
	return payload.toDomain(), nil
}

// UpdateCartItem sets the quantity of an existing cart line and returns the
// resulting cart.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	var payload cartPayload
	req := cartItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(productID), req, &payload); err != nil {
		return domain.Cart{}, err
	}
	return payload.toDomain(), nil
}

// RemoveCartItem deletes a cart line and returns the resulting cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) (domain.Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(productID), nil, &payload); err != nil {
		return domain.Cart{}, err
	}
	return payload.toDomain(), nil
}
