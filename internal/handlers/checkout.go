package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/format"
	"f1-pass-storefront/internal/logger"
	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/services"
)

const (
	msgPackageNotSelected  = "Package not selected"
	msgPackageSoldOut      = "Package sold out"
	msgSelectPackageFirst  = "Select a race package first."
	msgCompleteHolders     = "Please complete ticket holder details for each ticket."
	msgAddOnUnavailable    = "One of the selected add-ons is no longer available. Please review your extras."
	msgSubmitFailed        = "Could not submit reservation"
	msgCheckoutValidation  = "Please check the highlighted fields."
	msgEventsUnavailable   = "Could not load events from the public API endpoint."
	msgSelectionUnreadable = "Could not load your selection. Please try again."
)

// OrderCacheFactory returns the order cache scoped to one visitor
type OrderCacheFactory func(visitorID string) services.OrderCache

// CheckoutHandler turns the booking selection into a reservation
type CheckoutHandler struct {
	events    EventCatalog
	bookings  BookingStore
	submitter services.ReservationSubmitter
	caches    OrderCacheFactory
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler. caches may be nil.
func NewCheckoutHandler(events EventCatalog, bookings BookingStore, submitter services.ReservationSubmitter, caches OrderCacheFactory, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		events:    events,
		bookings:  bookings,
		submitter: submitter,
		caches:    caches,
		validate:  newValidator(),
		logger:    logger,
	}
}

// CheckoutEvent is the event summary shown next to the checkout form
type CheckoutEvent struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Venue     string           `json:"venue"`
	City      string           `json:"city"`
	Country   string           `json:"country"`
	DateLabel string           `json:"dateLabel"`
	Currency  *models.Currency `json:"currency,omitempty"`
}

// CheckoutSummary is the body of GET /api/checkout
type CheckoutSummary struct {
	Event       CheckoutEvent           `json:"event"`
	Ticket      models.TicketPackage    `json:"ticket"`
	Quantity    int                     `json:"quantity"`
	MaxQuantity int                     `json:"maxQuantity"`
	SoldOut     bool                    `json:"soldOut"`
	AddOns      []models.AddOnSelection `json:"addOns"`
	Pricing     services.PriceBreakdown `json:"pricing"`
	TotalLabel  string                  `json:"totalLabel"`
}

// CheckoutRequest is the checkout form
type CheckoutRequest struct {
	FirstName     string                `json:"firstName" validate:"required,min=2"`
	LastName      string                `json:"lastName" validate:"required,min=2"`
	Email         string                `json:"email" validate:"required,email"`
	Phone         string                `json:"phone" validate:"required,min=7"`
	Notes         string                `json:"notes"`
	TicketHolders []models.TicketHolder `json:"ticketHolders" validate:"required,min=1,dive"`
}

// FinishDescriptor tells the client where to route after a submission
type FinishDescriptor struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Reference   string `json:"reference,omitempty"`
	OrderURL    string `json:"orderUrl,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	Total       string `json:"total,omitempty"`
}

// resolved is the selection re-derived against a fresh catalogue
type resolved struct {
	event    *models.Event
	ticket   *models.TicketPackage
	booking  *models.BookingSelection
	quantity int
}

// Summary returns the resolved selection with its price estimate
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	visitor, err := visitorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing visitor session")
		return
	}

	sel, status, message := h.resolve(r, visitor)
	if status != http.StatusOK {
		writeError(w, status, message)
		return
	}

	pricing := services.PriceSummary(sel.ticket, sel.quantity, sel.booking.SelectedAddOns)
	writeJSON(w, http.StatusOK, CheckoutSummary{
		Event: CheckoutEvent{
			ID:        sel.event.ID,
			Name:      sel.event.Name,
			Venue:     sel.event.Venue,
			City:      sel.event.City,
			Country:   sel.event.Country,
			DateLabel: sel.event.DateLabel,
			Currency:  sel.event.Currency,
		},
		Ticket:      *sel.ticket,
		Quantity:    sel.quantity,
		MaxQuantity: sel.ticket.MaxQuantity(),
		SoldOut:     !sel.ticket.IsPurchasable(),
		AddOns:      sel.booking.SelectedAddOns,
		Pricing:     pricing,
		TotalLabel:  format.Money(pricing.Total, eventCurrency(sel.event)),
	})
}

// Submit validates the form and posts the reservation. Once the form is
// valid the response is always a finish descriptor.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	visitor, err := visitorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing visitor session")
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sel, status, message := h.resolve(r, visitor)
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		writeJSON(w, http.StatusOK, FinishDescriptor{Status: models.StatusError, Message: msgSelectPackageFirst})
		return
	default:
		writeError(w, status, message)
		return
	}
	if !sel.ticket.IsPurchasable() {
		log.Info("refusing checkout for sold out ticket",
			zap.String("event_id", sel.event.ID),
			zap.String("ticket_id", sel.ticket.ID))
		writeJSON(w, http.StatusOK, FinishDescriptor{Status: models.StatusError, Message: msgPackageSoldOut})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  msgCheckoutValidation,
			Fields: fieldMessages(err),
		})
		return
	}
	if len(req.TicketHolders) < sel.quantity {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  msgCompleteHolders,
			Fields: map[string]string{"ticketHolders": msgCompleteHolders},
		})
		return
	}
	if err := services.ValidateAddOnSelections(sel.ticket, sel.booking.SelectedAddOns); err != nil {
		log.Info("rejecting stale add-on selection", zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  msgAddOnUnavailable,
			Fields: map[string]string{"addOns": msgAddOnUnavailable},
		})
		return
	}

	payload := &models.ReservationPayload{
		EventID:  sel.event.ID,
		TicketID: sel.ticket.ID,
		Quantity: sel.quantity,
		AddOns:   sel.booking.SelectedAddOns,
		Customer: models.Customer{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     strings.TrimSpace(req.Email),
			Phone:     strings.TrimSpace(req.Phone),
			Notes:     strings.TrimSpace(req.Notes),
		},
		TicketHolders: req.TicketHolders[:sel.quantity],
		PayOffline:    true,
	}

	resp, err := h.submitter.SubmitReservation(r.Context(), payload)
	if err != nil {
		writeJSON(w, http.StatusOK, h.failure(r, err))
		return
	}

	if err := h.bookings.Clear(r.Context(), visitor); err != nil {
		log.Warn("failed to clear booking after reservation", zap.Error(err))
	}
	if resp.Data != nil && h.caches != nil {
		if err := h.caches(visitor).Store(r.Context(), resp.Data); err != nil {
			log.Warn("failed to cache order", zap.Error(err))
		}
	}

	log.Info("reservation created",
		zap.String("reference", resp.ReservationReference),
		zap.String("event_id", payload.EventID),
		zap.Int("quantity", payload.Quantity),
	)

	finish := FinishDescriptor{
		Status:    models.StatusSuccess,
		Message:   resp.Message,
		Reference: resp.ReservationReference,
		OrderURL:  "/order/" + url.PathEscape(resp.ReservationReference),
	}
	if resp.GrandTotal != nil {
		currency := eventCurrency(sel.event)
		if resp.Data != nil && resp.Data.Currency != nil && resp.Data.Currency.Code != "" {
			currency = resp.Data.Currency.Code
		}
		finish.Total = format.Money(*resp.GrandTotal, currency)
	}
	writeJSON(w, http.StatusOK, finish)
}

func (h *CheckoutHandler) failure(r *http.Request, err error) FinishDescriptor {
	log := logger.FromContext(r.Context(), h.logger)

	var apiErr *services.OrderAPIError
	if errors.As(err, &apiErr) {
		log.Warn("reservation rejected", zap.Int("status", apiErr.StatusCode), zap.String("message", apiErr.Message))
		return FinishDescriptor{
			Status:      models.StatusError,
			Message:     apiErr.UserMessage(),
			CheckoutURL: apiErr.CheckoutURL,
		}
	}

	log.Error("reservation failed", zap.Error(err))
	return FinishDescriptor{Status: models.StatusError, Message: msgSubmitFailed}
}

// resolve looks up the stored (or query-supplied) event and ticket in the
// current catalogue and caps the quantity to the ticket's availability.
func (h *CheckoutHandler) resolve(r *http.Request, visitor string) (*resolved, int, string) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.logger)

	booking, err := h.bookings.Get(ctx, visitor)
	if err != nil {
		log.Error("failed to load booking", zap.Error(err))
		return nil, http.StatusInternalServerError, msgSelectionUnreadable
	}

	eventID := firstNonBlank(r.URL.Query().Get("event"), booking.EventID)
	ticketID := firstNonBlank(r.URL.Query().Get("ticket"), booking.TicketID)
	if eventID == "" || ticketID == "" {
		return nil, http.StatusNotFound, msgPackageNotSelected
	}

	events, err := h.events.FetchEvents(ctx)
	if err != nil {
		log.Error("failed to load events for checkout", zap.Error(err))
		return nil, http.StatusBadGateway, msgEventsUnavailable
	}

	event, ok := models.FindEvent(events, eventID)
	if !ok {
		return nil, http.StatusNotFound, msgPackageNotSelected
	}
	ticket, ok := event.TicketByID(ticketID)
	if !ok {
		return nil, http.StatusNotFound, msgPackageNotSelected
	}

	quantity := booking.Quantity
	if limit := ticket.MaxQuantity(); quantity > limit {
		quantity = limit
		if _, err := h.bookings.Update(ctx, visitor, func(b *models.BookingSelection) { b.SetQuantity(limit) }); err != nil {
			log.Warn("failed to persist capped quantity", zap.Error(err))
		}
	}

	return &resolved{event: event, ticket: ticket, booking: booking, quantity: quantity}, http.StatusOK, ""
}

func eventCurrency(event *models.Event) string {
	if event.Currency != nil && event.Currency.Code != "" {
		return event.Currency.Code
	}
	return models.DefaultOrderCurrency.Code
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
