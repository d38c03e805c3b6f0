package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/avelane/storefront-session/internal/domain"
)

// productPayload accepts every field spelling the backend has shipped over
// the years. Older catalog routes use Mongo style identifiers and titles,
// newer ones use the flat names.
type productPayload struct {
	ID        string `json:"id"`
	LegacyID  string `json:"_id"`
	ProductID string `json:"productId"`

	Name  string `json:"name"`
	Title string `json:"title"`

	SKU         string `json:"sku"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`

	Price     *float64 `json:"price"`
	SalePrice *float64 `json:"salePrice"`

	ImageURL string `json:"image_url"`
	Image    string `json:"image"`

	InStock   *bool `json:"inStock"`
	Available *bool `json:"available"`

	Quantity *int `json:"quantity"`
	Stock    *int `json:"stock"`
}

// toDomain collapses the field variants into the canonical product record.
// Precedence follows the newest route's spelling first.
func (p productPayload) toDomain() domain.Product {
	out := domain.Product{
		SKU:         p.SKU,
		Description: p.Description,
		Brand:       p.Brand,
		Category:    p.Category,
	}

	switch {
	case p.ID != "":
		out.ID = p.ID
	case p.ProductID != "":
		out.ID = p.ProductID
	default:
		out.ID = p.LegacyID
	}

	out.Name = p.Name
	if out.Name == "" {
		out.Name = p.Title
	}

	// Prices arrive as decimal currency; stored as cents.
	price := p.Price
	if p.SalePrice != nil {
		price = p.SalePrice
	}
	if price != nil {
		out.Price = int64(math.Round(*price * 100))
	}

	out.ImageURL = p.ImageURL
	if out.ImageURL == "" {
		out.ImageURL = p.Image
	}

	switch {
	case p.InStock != nil:
		out.InStock = *p.InStock
	case p.Available != nil:
		out.InStock = *p.Available
	default:
		// Routes that omit the flag only list purchasable products.
		out.InStock = true
	}

	switch {
	case p.Quantity != nil:
		out.Quantity = *p.Quantity
	case p.Stock != nil:
		out.Quantity = *p.Stock
	case out.InStock:
		out.Quantity = 1
	}

	return out
}

type productListPayload struct {
	Products   []productPayload `json:"products"`
	TotalCount int              `json:"total_count"`
	Total      int              `json:"total"`
}

// ListProducts fetches one catalog page. It returns the normalized products
// and the backend's total count when the route reports one.
func (c *Client) ListProducts(ctx context.Context, page, limit int) ([]domain.Product, int, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/products?"+q.Encode(), nil, &payload); err != nil {
		return nil, 0, err
	}

	// The list route returns either a bare array or an object with a
	// products field plus a count.
	var bare []productPayload
	if err := json.Unmarshal(payload, &bare); err == nil {
		return normalizeProducts(bare), len(bare), nil
	}

	var wrapped productListPayload
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, 0, fmt.Errorf("decode product list: %w", err)
	}
	total := wrapped.TotalCount
	if total == 0 {
		total = wrapped.Total
	}
	if total == 0 {
		total = len(wrapped.Products)
	}
	return normalizeProducts(wrapped.Products), total, nil
}

// GetProduct fetches a single product by its backend identifier.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var payload productPayload
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &payload); err != nil {
		return domain.Product{}, err
	}
	return payload.toDomain(), nil
}

func normalizeProducts(payloads []productPayload) []domain.Product {
	out := make([]domain.Product, 0, len(payloads))
	for _, p := range payloads {
		prod := p.toDomain()
		if prod.ID == "" {
			continue
		}
		out = append(out, prod)
	}
	return out
}
