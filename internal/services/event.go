package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"f1-pass-storefront/internal/models"
)

// ErrSchemaMismatch is returned when a backend payload does not have the expected shape
var ErrSchemaMismatch = errors.New("payload does not match expected schema")

// HTTPStatusError is a non-2xx response from a read endpoint
type HTTPStatusError struct {
	Operation  string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s request failed (%d)", e.Operation, e.StatusCode)
}

// transient reports whether a failed read is worth one more attempt.
func transient(err error) bool {
	if errors.Is(err, ErrSchemaMismatch) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// EventServiceConfig configures the events feed client
type EventServiceConfig struct {
	BaseURL   string
	LegacyURL string // when set, the flat legacy feed is used instead of /organiser
	Timeout   time.Duration
	StaleTime time.Duration
	Retries   int
}

// EventService fetches and normalizes the event catalogue
type EventService struct {
	config EventServiceConfig
	client *http.Client
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time

	mu        sync.RWMutex
	cached    []*models.Event
	fetchedAt time.Time
}

// NewEventService creates a new event service
func NewEventService(config EventServiceConfig, logger *zap.Logger) *EventService {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	return &EventService{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Mode names the feed the service reads from.
func (s *EventService) Mode() string {
	if s.config.LegacyURL != "" {
		return "legacy-events"
	}
	return "single-organiser"
}

// FetchEvents returns the normalized catalogue. Results younger than the
// stale time are served from memory and concurrent callers share one fetch.
func (s *EventService) FetchEvents(ctx context.Context) ([]*models.Event, error) {
	if events, ok := s.fresh(); ok {
		return events, nil
	}

	result, err, _ := s.group.Do("events", func() (interface{}, error) {
		if events, ok := s.fresh(); ok {
			return events, nil
		}
		events, err := s.fetchWithRetry(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cached = events
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Event), nil
}

// GetEventByID returns one event from the catalogue.
func (s *EventService) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	events, err := s.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}
	event, ok := models.FindEvent(events, id)
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

// Invalidate drops the cached catalogue.
func (s *EventService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

func (s *EventService) fresh() ([]*models.Event, bool) {
	if s.config.StaleTime <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil || s.now().Sub(s.fetchedAt) >= s.config.StaleTime {
		return nil, false
	}
	return s.cached, true
}

func (s *EventService) fetchWithRetry(ctx context.Context) ([]*models.Event, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		events, err := s.fetchOnce(ctx)
		if err == nil {
			return events, nil
		}
		lastErr = err
		if !transient(err) || ctx.Err() != nil {
			break
		}
		s.logger.Warn("event feed fetch failed, retrying",
			zap.String("mode", s.Mode()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func (s *EventService) fetchOnce(ctx context.Context) ([]*models.Event, error) {
	if s.config.LegacyURL != "" {
		return s.fetchLegacy(ctx)
	}
	return s.fetchOrganiser(ctx)
}

func (s *EventService) fetchOrganiser(ctx context.Context) ([]*models.Event, error) {
	status, body, err := s.get(ctx, s.config.BaseURL+"/organiser")
	if err != nil {
		return nil, fmt.Errorf("single organiser API request failed: %w", err)
	}
	if status == http.StatusNotFound {
		return []*models.Event{}, nil
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPStatusError{Operation: "Single organiser API", StatusCode: status}
	}

	var feed organiserFeed
	if err := decodeFeed(body, &feed); err != nil {
		s.logger.Debug("organiser payload rejected", zap.Error(err))
		return nil, fmt.Errorf("single organiser %w", ErrSchemaMismatch)
	}
	return NormalizeFeed(eventFeed{Organiser: &feed}), nil
}

func (s *EventService) fetchLegacy(ctx context.Context) ([]*models.Event, error) {
	status, body, err := s.get(ctx, s.config.LegacyURL)
	if err != nil {
		return nil, fmt.Errorf("events API request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPStatusError{Operation: "Events API", StatusCode: status}
	}

	var feed legacyFeed
	if err := decodeFeed(body, &feed); err != nil {
		s.logger.Debug("legacy events payload rejected", zap.Error(err))
		return nil, fmt.Errorf("events API %w", ErrSchemaMismatch)
	}
	return NormalizeFeed(eventFeed{Legacy: &feed}), nil
}

func (s *EventService) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
