package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"f1-pass-storefront/internal/models"
)

// OrderCacheRepository mirrors the last fetched order for instant display.
// It holds a single entry and is never authoritative.
type OrderCacheRepository struct {
	store StateStore
	key   string
	ttl   time.Duration
}

// NewOrderCacheRepository creates an order cache under the given scope. The
// scope is a visitor id for browser sessions or a fixed name for the CLI.
func NewOrderCacheRepository(store StateStore, scope string, ttl time.Duration) *OrderCacheRepository {
	return &OrderCacheRepository{
		store: store,
		key:   "f1-order:" + scope,
		ttl:   ttl,
	}
}

// Load returns the cached order when its reference matches case-insensitively.
func (r *OrderCacheRepository) Load(ctx context.Context, reference string) (*models.OrderData, bool) {
	var order models.OrderData
	if err := r.store.Get(ctx, r.key, &order); err != nil {
		return nil, false
	}
	if !order.MatchesReference(reference) {
		return nil, false
	}
	return &order, true
}

// Store replaces the cached order.
func (r *OrderCacheRepository) Store(ctx context.Context, order *models.OrderData) error {
	if order == nil {
		return nil
	}
	if err := r.store.Set(ctx, r.key, order, r.ttl); err != nil {
		return fmt.Errorf("failed to cache order: %w", err)
	}
	return nil
}

// Clear drops the cached order.
func (r *OrderCacheRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to clear order cache: %w", err)
	}
	return nil
}
