package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/logger"
	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/services"
)

// EventCatalog is the read side of the events feed
type EventCatalog interface {
	FetchEvents(ctx context.Context) ([]*models.Event, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// Downloads proxies the files the backend serves outside its JSON API
type Downloads interface {
	FetchCalendar(ctx context.Context, eventID string) (*services.Download, error)
	FetchPaymentInstructions(ctx context.Context, reference string) (*services.Download, error)
}

// TeamSource provides the team sections shown on the standings page
type TeamSource interface {
	FetchTeamSections(ctx context.Context, query services.TeamQuery) []models.F1TeamSection
}

// EventHandler serves the event catalogue, calendar downloads and teams
type EventHandler struct {
	events    EventCatalog
	downloads Downloads
	teams     TeamSource
	logger    *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventCatalog, downloads Downloads, teams TeamSource, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		events:    events,
		downloads: downloads,
		teams:     teams,
		logger:    logger,
	}
}

// EventListResponse is the body of GET /api/events
type EventListResponse struct {
	Events []*models.Event `json:"events"`
	Count  int             `json:"count"`
}

// ListEvents returns the normalized catalogue
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.FetchEvents(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to load events", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Could not load events from the public API endpoint.")
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: events, Count: len(events)})
}

// GetEvent returns one event
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventID"))
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "Missing event id")
		return
	}

	event, err := h.events.GetEventByID(r.Context(), eventID)
	if errors.Is(err, models.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to load event",
			zap.String("event_id", eventID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Could not load this event from the API.")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Calendar proxies the event's ICS file as a download
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventID"))
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "Missing event id")
		return
	}

	download, err := h.downloads.FetchCalendar(r.Context(), eventID)
	if err != nil {
		writeProxyError(w, r, h.logger, err, "calendar")
		return
	}
	writeDownload(w, download)
}

// Teams returns the team sections, optionally filtered by organiser and year
func (h *EventHandler) Teams(w http.ResponseWriter, r *http.Request) {
	query := services.TeamQuery{}
	if v, err := strconv.ParseInt(r.URL.Query().Get("organiser_id"), 10, 64); err == nil && v > 0 {
		query.OrganiserID = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && v > 0 {
		query.Year = v
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sections": h.teams.FetchTeamSections(r.Context(), query),
	})
}

// writeProxyError maps a download failure: an upstream status is passed
// through, anything else is a bad gateway.
func writeProxyError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, what string) {
	var statusErr *services.HTTPStatusError
	if errors.As(err, &statusErr) {
		writeError(w, statusErr.StatusCode, "Could not load "+what)
		return
	}
	logger.FromContext(r.Context(), log).Error(what+" proxy error", zap.Error(err))
	writeError(w, http.StatusBadGateway, "Failed to fetch "+what)
}

func writeDownload(w http.ResponseWriter, download *services.Download) {
	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(download.Filename, `"`, "")+`"`)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download.Body)
}
