package domain

// QuantityAction is the direction of a cart line quantity update.
type QuantityAction string

const (
	// QuantityIncrement raises the line quantity by one.
	QuantityIncrement QuantityAction = "increment"
	// QuantityDecrement lowers the line quantity by one. Decrementing a line
	// at quantity 1 removes the line; a quantity of zero is never stored.
	QuantityDecrement QuantityAction = "decrement"
)

// Valid reports whether the action is one of the two known directions.
func (a QuantityAction) Valid() bool {
	return a == QuantityIncrement || a == QuantityDecrement
}

// CartLine is a single cart entry. Quantity is always >= 1; reaching zero is
// a removal, not a quantity of zero. Exactly one line exists per product id.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// Cart is the in-memory shopping cart. The zero value is an empty cart.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Count returns the total number of items, summing line quantities. It is
// always recomputed, never stored.
func (c Cart) Count() int {
	var n int
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the sum of line prices times quantities, in cents.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Product.Price * int64(l.Quantity)
	}
	return total
}

// FindLine returns the index of the line for the given product id, or -1.
func (c Cart) FindLine(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// WithoutLine returns a copy of the cart with the given product's line
// filtered out. The receiver is not modified.
func (c Cart) WithoutLine(productID string) Cart {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	return Cart{Lines: lines}
}

// Clone returns a deep copy of the cart, safe to hand to callers while the
// original keeps being mutated.
func (c Cart) Clone() Cart {
	if len(c.Lines) == 0 {
		return Cart{Lines: []CartLine{}}
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}
