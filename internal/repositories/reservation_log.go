package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"f1-pass-storefront/internal/models"
)

// ReservationLogLimit caps the number of mock reservations kept per session
const ReservationLogLimit = 30

const reservationLogPrefix = "f1-pass-reservation-log:"

// ErrMissingSession is returned when no visitor session scopes the log
var ErrMissingSession = errors.New("reservation log requires a session id")

// ReservationLogEntry is one mock-mode submission
type ReservationLogEntry struct {
	Reference   string                    `json:"reference"`
	SubmittedAt time.Time                 `json:"submittedAt"`
	Payload     models.ReservationPayload `json:"payload"`
}

// ReservationLogRepository records mock reservations per visitor session, newest first
type ReservationLogRepository struct {
	store StateStore
	mu    sync.Mutex
}

// NewReservationLogRepository creates a new reservation log repository
func NewReservationLogRepository(store StateStore) *ReservationLogRepository {
	return &ReservationLogRepository{store: store}
}

// Append prepends entry to the session's log and trims it to ReservationLogLimit.
func (r *ReservationLogRepository) Append(ctx context.Context, sessionID string, entry ReservationLogEntry) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.list(ctx, sessionID)
	if err != nil {
		return err
	}

	entries = append([]ReservationLogEntry{entry}, entries...)
	if len(entries) > ReservationLogLimit {
		entries = entries[:ReservationLogLimit]
	}

	if err := r.store.Set(ctx, reservationLogPrefix+sessionID, entries, 0); err != nil {
		return fmt.Errorf("failed to save reservation log: %w", err)
	}
	return nil
}

// List returns the session's logged reservations, newest first.
func (r *ReservationLogRepository) List(ctx context.Context, sessionID string) ([]ReservationLogEntry, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(ctx, sessionID)
}

func (r *ReservationLogRepository) list(ctx context.Context, sessionID string) ([]ReservationLogEntry, error) {
	var entries []ReservationLogEntry
	if err := r.store.Get(ctx, reservationLogPrefix+sessionID, &entries); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []ReservationLogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to load reservation log: %w", err)
	}
	return entries, nil
}
