package domain

// Product is the canonical product record used across the session layer.
// Every inbound shape (current and legacy endpoints disagree on field names)
// is mapped onto this struct at the API boundary; nothing past that boundary
// ever branches on field-name variants.
type Product struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	InStock     bool   `json:"in_stock"`
	Quantity    int    `json:"quantity"`
}

// Available reports whether the product can be added to a cart: the
// availability flag must be set and tracked stock must be positive.
func (p Product) Available() bool {
	return p.InStock && p.Quantity > 0
}

// Matches reports whether the given key identifies this product, accepting
// either the canonical product id or the SKU. The product id is the canonical
// key; SKU matching exists only because legacy endpoints still hand out SKUs.
func (p Product) Matches(key string) bool {
	if key == "" {
		return false
	}
	return p.ID == key || (p.SKU != "" && p.SKU == key)
}
