// Package catalog keeps a read-only product mirror in memory. The mirror is
// refreshed in pages from the backend; lookups never touch the network, so a
// stale mirror degrades to stale answers rather than failures.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelane/storefront-session/internal/domain"
	"github.com/avelane/storefront-session/pkg/logger"
)

// Lister fetches catalog pages from the backend.
type Lister interface {
	ListProducts(ctx context.Context, page, limit int) ([]domain.Product, int, error)
}

const (
	defaultPageSize = 50
	// maxPages bounds a refresh against a backend that keeps reporting
	// more results than it returns.
	maxPages = 200
)

// Mirror is the in-memory catalog snapshot. All lookups are served from the
// last successful refresh; a failed refresh keeps the previous snapshot.
type Mirror struct {
	lister   Lister
	pageSize int
	log      *slog.Logger

	mu          sync.RWMutex
	products    []domain.Product
	byID        map[string]int
	bySKU       map[string]int
	lastRefresh time.Time
}

// NewMirror creates an empty mirror. A non-positive pageSize defaults to 50.
func NewMirror(lister Lister, pageSize int, log *slog.Logger) *Mirror {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Mirror{
		lister:   lister,
		pageSize: pageSize,
		log:      log,
		byID:     map[string]int{},
		bySKU:    map[string]int{},
	}
}

// Refresh fetches the full catalog page by page and swaps the snapshot in
// one step. On error the previous snapshot stays in place.
func (m *Mirror) Refresh(ctx context.Context) error {
	var all []domain.Product

	for page := 1; page <= maxPages; page++ {
		products, total, err := m.lister.ListProducts(ctx, page, m.pageSize)
		if err != nil {
			return fmt.Errorf("refresh catalog page %d: %w", page, err)
		}
		all = append(all, products...)
		if len(products) < m.pageSize || len(all) >= total {
			break
		}
	}

	byID := make(map[string]int, len(all))
	bySKU := make(map[string]int, len(all))
	deduped := all[:0]
	for _, p := range all {
		if _, seen := byID[p.ID]; seen {
			continue
		}
		deduped = append(deduped, p)
		byID[p.ID] = len(deduped) - 1
		if p.SKU != "" {
			bySKU[p.SKU] = len(deduped) - 1
		}
	}

	m.mu.Lock()
	m.products = deduped
	m.byID = byID
	m.bySKU = bySKU
	m.lastRefresh = time.Now().UTC()
	m.mu.Unlock()

	logger.WithContext(ctx, m.log).Info("catalog refreshed",
		slog.Int("products", len(deduped)),
	)
	return nil
}

// Run refreshes the mirror immediately and then on every interval tick until
// the context is canceled. Refresh errors are logged, not fatal.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) {
	if err := m.Refresh(ctx); err != nil {
		m.log.Warn("initial catalog refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				m.log.Warn("catalog refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Resolve looks up a product by its id, falling back to SKU. The id is the
// canonical key everywhere else; SKU acceptance is an input convenience.
func (m *Mirror) Resolve(key string) (domain.Product, bool) {
	if key == "" {
		return domain.Product{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if idx, ok := m.byID[key]; ok {
		return m.products[idx], true
	}
	if idx, ok := m.bySKU[key]; ok {
		return m.products[idx], true
	}
	return domain.Product{}, false
}

// Page returns one page of the snapshot plus the total product count.
func (m *Mirror) Page(page, perPage int) ([]domain.Product, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.products)
	start := (page - 1) * perPage
	if start < 0 || start >= total {
		return []domain.Product{}, total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	out := make([]domain.Product, end-start)
	copy(out, m.products[start:end])
	return out, total
}

// Len returns the number of mirrored products.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

// LastRefresh returns when the snapshot was last replaced, zero if never.
func (m *Mirror) LastRefresh() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRefresh
}
