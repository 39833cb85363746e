package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"f1-pass-storefront/internal/middleware"
	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/services"
)

const testVisitor = "0b8f1c9e-3f39-4a51-9a43-3f0f3b8a6c11"

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) FetchEvents(ctx context.Context) ([]*models.Event, error) {
	args := m.Called(ctx)
	events, _ := args.Get(0).([]*models.Event)
	return events, args.Error(1)
}

func (m *mockCatalog) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	event, _ := args.Get(0).(*models.Event)
	return event, args.Error(1)
}

type mockDownloads struct {
	mock.Mock
}

func (m *mockDownloads) FetchCalendar(ctx context.Context, eventID string) (*services.Download, error) {
	args := m.Called(ctx, eventID)
	download, _ := args.Get(0).(*services.Download)
	return download, args.Error(1)
}

func (m *mockDownloads) FetchPaymentInstructions(ctx context.Context, reference string) (*services.Download, error) {
	args := m.Called(ctx, reference)
	download, _ := args.Get(0).(*services.Download)
	return download, args.Error(1)
}

type mockTeams struct {
	mock.Mock
}

func (m *mockTeams) FetchTeamSections(ctx context.Context, query services.TeamQuery) []models.F1TeamSection {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.F1TeamSection)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitReservation(ctx context.Context, payload *models.ReservationPayload) (*models.ReservationResponse, error) {
	args := m.Called(ctx, payload)
	resp, _ := args.Get(0).(*models.ReservationResponse)
	return resp, args.Error(1)
}

type mockLifecycle struct {
	mock.Mock
}

func (m *mockLifecycle) FetchOrderByReference(ctx context.Context, reference string) (*models.OrderData, bool) {
	args := m.Called(ctx, reference)
	order, _ := args.Get(0).(*models.OrderData)
	return order, args.Bool(1)
}

func (m *mockLifecycle) UploadReceipt(ctx context.Context, reference, filename string, file io.Reader) models.MutationResult {
	args := m.Called(ctx, reference, filename, file)
	return args.Get(0).(models.MutationResult)
}

func (m *mockLifecycle) ConfirmReceipt(ctx context.Context, reference string) models.MutationResult {
	args := m.Called(ctx, reference)
	return args.Get(0).(models.MutationResult)
}

func (m *mockLifecycle) RemoveReceipt(ctx context.Context, reference string) models.MutationResult {
	args := m.Called(ctx, reference)
	return args.Get(0).(models.MutationResult)
}

func (m *mockLifecycle) SendPaymentInstructionsEmail(ctx context.Context, reference string, sendTo models.SendTo) models.MutationResult {
	args := m.Called(ctx, reference, sendTo)
	return args.Get(0).(models.MutationResult)
}

func intPtr(v int) *int { return &v }

// testEvents is a small catalogue: one limited ticket with add-ons and one
// unlimited ticket.
func testEvents() []*models.Event {
	return []*models.Event{
		{
			ID:        "101",
			Name:      "Australian Grand Prix",
			Venue:     "Albert Park",
			City:      "Melbourne",
			Country:   "Australia",
			DateLabel: "Mar 13-15, 2026",
			Currency:  &models.Currency{Code: "AUD", Symbol: "A$"},
			Tickets: []models.TicketPackage{
				{
					ID:                "1",
					Title:             "General Admission",
					Price:             250,
					QuantityRemaining: intPtr(3),
					AddOns: []models.TicketAddOn{
						{ID: "9", Title: "Parking", Price: 40, Options: []models.TicketAddOnOption{{ID: "91", Title: "Premium", PriceModifier: 15}}},
					},
				},
				{ID: "2", Title: "VIP Lounge", Price: 1200, IsUnlimited: true},
			},
		},
	}
}

func newRequest(method, target string, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithVisitorID(req.Context(), testVisitor))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dest), rr.Body.String())
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponse
	decodeBody(t, rr, &body)
	return body.Error
}
