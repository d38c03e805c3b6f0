package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/avelane/storefront-session/internal/domain"
)

// ShippingDetails is the delivery information attached to an order.
type ShippingDetails struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderRequest struct {
	Items    []orderLineRequest `json:"items"`
	Shipping ShippingDetails    `json:"shipping"`
}

type orderPayload struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
}

// PlaceOrder submits the cart as an order and returns the backend's order
// identifier.
func (c *Client) PlaceOrder(ctx context.Context, cart domain.Cart, shipping ShippingDetails) (string, error) {
	req := orderRequest{
		Items:    make([]orderLineRequest, 0, len(cart.Lines)),
		Shipping: shipping,
	}
	for _, l := range cart.Lines {
		req.Items = append(req.Items, orderLineRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		})
	}

	var payload orderPayload
	if err := c.do(ctx, http.MethodPost, "/orders", req, &payload); err != nil {
		return "", err
	}

	switch {
	case payload.ID != "":
		return payload.ID, nil
	case payload.OrderID != "":
		return payload.OrderID, nil
	default:
		return payload.LegacyID, nil
	}
}

// Order is a normalized order summary from the history endpoint.
type Order struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	CreatedAt string `json:"created_at"`
}

type orderHistoryPayload struct {
	ID          string  `json:"id"`
	LegacyID    string  `json:"_id"`
	OrderID     string  `json:"orderId"`
	Status      string  `json:"status"`
	Total       float64 `json:"total"`
	TotalAmount float64 `json:"total_amount"`
	CreatedAt   string  `json:"created_at"`
	LegacyDate  string  `json:"createdAt"`
}

func (p orderHistoryPayload) toOrder() Order {
	id := p.ID
	if id == "" {
		id = p.OrderID
	}
	if id == "" {
		id = p.LegacyID
	}
	total := p.Total
	if total == 0 {
		total = p.TotalAmount
	}
	created := p.CreatedAt
	if created == "" {
		created = p.LegacyDate
	}
	return Order{
		ID:        id,
		Status:    p.Status,
		Total:     int64(math.Round(total * 100)),
		CreatedAt: created,
	}
}

// ListOrders fetches the signed-in user's order history, newest first as the
// backend returns it.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &payload); err != nil {
		return nil, err
	}

	// The history route returns either a bare array or an object with an
	// orders field.
	var records []orderHistoryPayload
	if err := json.Unmarshal(payload, &records); err != nil {
		var wrapper struct {
			Orders []orderHistoryPayload `json:"orders"`
		}
		if err := json.Unmarshal(payload, &wrapper); err != nil {
			return nil, fmt.Errorf("decode order history: %w", err)
		}
		records = wrapper.Orders
	}

	orders := make([]Order, 0, len(records))
	for _, rec := range records {
		order := rec.toOrder()
		if order.ID == "" {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}
