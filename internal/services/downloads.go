package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Download is a file fetched from the backend for re-serving
type Download struct {
	Body        []byte
	ContentType string
	Filename    string
}

// DownloadService fetches files served from the backend origin rather than the API
type DownloadService struct {
	origin string
	client *http.Client
}

// NewDownloadService creates a download service for the given backend origin
func NewDownloadService(origin string, timeout time.Duration) *DownloadService {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &DownloadService{
		origin: strings.TrimSuffix(origin, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchCalendar downloads the ICS file of an event.
func (s *DownloadService) FetchCalendar(ctx context.Context, eventID string) (*Download, error) {
	endpoint := fmt.Sprintf("%s/e/%s/calendar.ics", s.origin, url.PathEscape(eventID))
	body, err := s.fetch(ctx, "Calendar", endpoint, "text/calendar, application/octet-stream")
	if err != nil {
		return nil, err
	}
	return &Download{
		Body:        body,
		ContentType: "text/calendar; charset=utf-8",
		Filename:    "event.ics",
	}, nil
}

// FetchPaymentInstructions downloads the payment instructions PDF of an order.
func (s *DownloadService) FetchPaymentInstructions(ctx context.Context, reference string) (*Download, error) {
	endpoint := fmt.Sprintf("%s/order/%s/payment-instructions.pdf", s.origin, url.PathEscape(reference))
	body, err := s.fetch(ctx, "Payment instructions", endpoint, "application/pdf")
	if err != nil {
		return nil, err
	}
	return &Download{
		Body:        body,
		ContentType: "application/pdf",
		Filename:    fmt.Sprintf("Payment-Instructions-%s.pdf", reference),
	}, nil
}

func (s *DownloadService) fetch(ctx context.Context, operation, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", strings.ToLower(operation), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Operation: operation, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s body: %w", strings.ToLower(operation), err)
	}
	return body, nil
}
