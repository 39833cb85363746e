package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/services"
)

func eventRouter(h *EventHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/events", h.ListEvents)
	r.Get("/api/events/{eventID}", h.GetEvent)
	r.Get("/api/events/{eventID}/calendar", h.Calendar)
	r.Get("/api/teams", h.Teams)
	return r
}

func TestEventHandler_ListEvents(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("FetchEvents", mock.Anything).Return(testEvents(), nil).Once()

	rr := httptest.NewRecorder()
	eventRouter(NewEventHandler(catalog, nil, nil, zap.NewNop())).ServeHTTP(rr, newRequest("GET", "/api/events", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	var body EventListResponse
	decodeBody(t, rr, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Australian Grand Prix", body.Events[0].Name)
	catalog.AssertExpectations(t)
}

func TestEventHandler_ListEvents_Empty(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("FetchEvents", mock.Anything).Return(nil, nil)

	rr := httptest.NewRecorder()
	eventRouter(NewEventHandler(catalog, nil, nil, zap.NewNop())).ServeHTTP(rr, newRequest("GET", "/api/events", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"events":[],"count":0}`, rr.Body.String())
}

func TestEventHandler_ListEvents_CouldNotLoad(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "schema mismatch", err: fmt.Errorf("organiser feed: %w", services.ErrSchemaMismatch)},
		{name: "upstream status", err: &services.HTTPStatusError{Operation: "Organiser events", StatusCode: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &mockCatalog{}
			catalog.On("FetchEvents", mock.Anything).Return(nil, tt.err)

			rr := httptest.NewRecorder()
			eventRouter(NewEventHandler(catalog, nil, nil, zap.NewNop())).ServeHTTP(rr, newRequest("GET", "/api/events", ""))

			assert.Equal(t, http.StatusBadGateway, rr.Code)
			assert.Equal(t, "Could not load events from the public API endpoint.", errorMessage(t, rr))
		})
	}
}

func TestEventHandler_GetEvent(t *testing.T) {
	catalog := &mockCatalog{}
	catalog.On("GetEventByID", mock.Anything, "101").Return(testEvents()[0], nil)
	catalog.On("GetEventByID", mock.Anything, "999").Return(nil, models.ErrEventNotFound)
	catalog.On("GetEventByID", mock.Anything, "500").Return(nil, errors.New("boom"))
	router := eventRouter(NewEventHandler(catalog, nil, nil, zap.NewNop()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/events/101", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	var event models.Event
	decodeBody(t, rr, &event)
	assert.Equal(t, "101", event.ID)
	assert.Len(t, event.Tickets, 2)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/events/999", ""))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Event not found", errorMessage(t, rr))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/events/500", ""))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestEventHandler_Calendar(t *testing.T) {
	downloads := &mockDownloads{}
	downloads.On("FetchCalendar", mock.Anything, "101").Return(&services.Download{
		Body:        []byte("BEGIN:VCALENDAR\nEND:VCALENDAR\n"),
		ContentType: "text/calendar; charset=utf-8",
		Filename:    "event.ics",
	}, nil)
	downloads.On("FetchCalendar", mock.Anything, "404").Return(nil, &services.HTTPStatusError{Operation: "Calendar", StatusCode: 404})
	downloads.On("FetchCalendar", mock.Anything, "down").Return(nil, errors.New("dial tcp: connection refused"))
	router := eventRouter(NewEventHandler(nil, downloads, nil, zap.NewNop()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/events/101/calendar", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="event.ics"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "private, no-cache", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "BEGIN:VCALENDAR")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/events/404/calendar", ""))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Could not load calendar", errorMessage(t, rr))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest("GET", "/api/events/down/calendar", ""))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Failed to fetch calendar", errorMessage(t, rr))
}

func TestEventHandler_Teams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		query  services.TeamQuery
	}{
		{name: "filtered", target: "/api/teams?organiser_id=7&year=2026", query: services.TeamQuery{OrganiserID: 7, Year: 2026}},
		{name: "unfiltered", target: "/api/teams", query: services.TeamQuery{}},
		{name: "garbage ignored", target: "/api/teams?organiser_id=abc&year=-1", query: services.TeamQuery{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teams := &mockTeams{}
			teams.On("FetchTeamSections", mock.Anything, tt.query).
				Return([]models.F1TeamSection{{ID: 1, Title: "The grid", Year: 2026}}).Once()

			rr := httptest.NewRecorder()
			eventRouter(NewEventHandler(nil, nil, teams, zap.NewNop())).ServeHTTP(rr, newRequest("GET", tt.target, ""))

			require.Equal(t, http.StatusOK, rr.Code)
			var body struct {
				Sections []models.F1TeamSection `json:"sections"`
			}
			decodeBody(t, rr, &body)
			require.Len(t, body.Sections, 1)
			assert.Equal(t, "The grid", body.Sections[0].Title)
			teams.AssertExpectations(t)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(HealthInfo{EventsMode: "single-organiser", OrderMode: "mock"}).Health(rr, newRequest("GET", "/health", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Status string     `json:"status"`
		Info   HealthInfo `json:"info"`
	}
	decodeBody(t, rr, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "mock", body.Info.OrderMode)
}
