package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"f1-pass-storefront/internal/models"
)

// BookingRepository persists a visitor's booking selection
type BookingRepository struct {
	store StateStore
	ttl   time.Duration
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(store StateStore, ttl time.Duration) *BookingRepository {
	return &BookingRepository{store: store, ttl: ttl}
}

func bookingKey(visitorID string) string {
	return "f1-pass-booking:" + visitorID
}

// Get returns the visitor's selection, or a default one if none is stored.
func (r *BookingRepository) Get(ctx context.Context, visitorID string) (*models.BookingSelection, error) {
	selection := models.NewBookingSelection()
	if err := r.store.Get(ctx, bookingKey(visitorID), selection); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.NewBookingSelection(), nil
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if selection.SelectedAddOns == nil {
		selection.SelectedAddOns = []models.AddOnSelection{}
	}
	selection.Quantity = models.ClampQuantity(selection.Quantity)
	return selection, nil
}

// Save stores the selection.
func (r *BookingRepository) Save(ctx context.Context, visitorID string, selection *models.BookingSelection) error {
	if err := r.store.Set(ctx, bookingKey(visitorID), selection, r.ttl); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update loads the selection, applies fn and saves the result.
func (r *BookingRepository) Update(ctx context.Context, visitorID string, fn func(*models.BookingSelection)) (*models.BookingSelection, error) {
	selection, err := r.Get(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	fn(selection)
	if err := r.Save(ctx, visitorID, selection); err != nil {
		return nil, err
	}
	return selection, nil
}

// Clear removes the stored selection.
func (r *BookingRepository) Clear(ctx context.Context, visitorID string) error {
	if err := r.store.Delete(ctx, bookingKey(visitorID)); err != nil {
		return fmt.Errorf("failed to clear booking: %w", err)
	}
	return nil
}
