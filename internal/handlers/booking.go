package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/logger"
	"f1-pass-storefront/internal/models"
)

// BookingStore persists booking selections per visitor
type BookingStore interface {
	Get(ctx context.Context, visitorID string) (*models.BookingSelection, error)
	Update(ctx context.Context, visitorID string, fn func(*models.BookingSelection)) (*models.BookingSelection, error)
	Clear(ctx context.Context, visitorID string) error
}

// BookingHandler exposes the visitor's booking selection
type BookingHandler struct {
	bookings BookingStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingStore, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		validate: newValidator(),
		logger:   logger,
	}
}

type selectionRequest struct {
	EventID        string                `json:"eventId" validate:"required"`
	TicketID       string                `json:"ticketId" validate:"required"`
	TicketCategory models.TicketCategory `json:"ticketCategory"`
}

// quantityRequest accepts the quantity as a number or a string; anything
// that does not parse becomes 1.
type quantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

type addOnsRequest struct {
	AddOns []models.AddOnSelection `json:"addOns" validate:"dive"`
}

// Get returns the current selection
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	visitor, err := visitorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing visitor session")
		return
	}

	selection, err := h.bookings.Get(r.Context(), visitor)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selection)
}

// Clear resets the selection
func (h *BookingHandler) Clear(w http.ResponseWriter, r *http.Request) {
	visitor, err := visitorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing visitor session")
		return
	}

	if err := h.bookings.Clear(r.Context(), visitor); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewBookingSelection())
}

// SetSelection picks the event and ticket, dropping earlier add-ons
func (h *BookingHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.bind(w, r, &req) {
		return
	}
	h.update(w, r, func(b *models.BookingSelection) {
		b.SetSelection(strings.TrimSpace(req.EventID), strings.TrimSpace(req.TicketID), req.TicketCategory)
	})
}

// SetQuantity stores the ticket quantity, clamped to the allowed range
func (h *BookingHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !h.bind(w, r, &req) {
		return
	}
	quantity := models.ParseQuantity(strings.Trim(string(req.Quantity), `"`))
	h.update(w, r, func(b *models.BookingSelection) {
		b.SetQuantity(quantity)
	})
}

// SetAddOns replaces the add-on selections
func (h *BookingHandler) SetAddOns(w http.ResponseWriter, r *http.Request) {
	var req addOnsRequest
	if !h.bind(w, r, &req) {
		return
	}
	h.update(w, r, func(b *models.BookingSelection) {
		b.SetSelectedAddOns(req.AddOns)
	})
}

func (h *BookingHandler) bind(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := decodeJSON(w, r, dest); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "Validation failed",
			Fields: fieldMessages(err),
		})
		return false
	}
	return true
}

func (h *BookingHandler) update(w http.ResponseWriter, r *http.Request, fn func(*models.BookingSelection)) {
	visitor, err := visitorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing visitor session")
		return
	}

	selection, err := h.bookings.Update(r.Context(), visitor, fn)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selection)
}

func (h *BookingHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), h.logger).Error("booking store failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Could not save your selection. Please try again.")
}
