package domain

// WishlistEntry is a saved product. The Product snapshot may be partial when
// the backend returns bare identifiers; ProductID is always set.
type WishlistEntry struct {
	ProductID string  `json:"product_id"`
	Product   Product `json:"product"`
}

// Wishlist is an ordered set of saved products, keyed by product id.
type Wishlist struct {
	Entries []WishlistEntry `json:"entries"`
}

// Contains reports whether an entry for the product id exists.
func (w Wishlist) Contains(productID string) bool {
	for _, e := range w.Entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// Add appends an entry unless one already exists for the same product.
// It returns the resulting wishlist and whether the entry was added.
func (w Wishlist) Add(entry WishlistEntry) (Wishlist, bool) {
	if w.Contains(entry.ProductID) {
		return w, false
	}
	entries := make([]WishlistEntry, 0, len(w.Entries)+1)
	entries = append(entries, w.Entries...)
	entries = append(entries, entry)
	return Wishlist{Entries: entries}, true
}

// Remove filters out the entry for the product id. It returns the resulting
// wishlist and whether an entry was removed.
func (w Wishlist) Remove(productID string) (Wishlist, bool) {
	if !w.Contains(productID) {
		return w, false
	}
	entries := make([]WishlistEntry, 0, len(w.Entries))
	for _, e := range w.Entries {
		if e.ProductID != productID {
			entries = append(entries, e)
		}
	}
	return Wishlist{Entries: entries}, true
}

// IDs returns the product ids in order.
func (w Wishlist) IDs() []string {
	ids := make([]string, len(w.Entries))
	for i, e := range w.Entries {
		ids[i] = e.ProductID
	}
	return ids
}

// Clone returns a deep copy of the wishlist.
func (w Wishlist) Clone() Wishlist {
	if len(w.Entries) == 0 {
		return Wishlist{Entries: []WishlistEntry{}}
	}
	entries := make([]WishlistEntry, len(w.Entries))
	copy(entries, w.Entries)
	return Wishlist{Entries: entries}
}
