package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

const (
	msgUnexpectedSuccess = "Order created but response payload was unexpected."
	msgOrderFailed       = "Order could not be created. Please try again."
	msgInvalidResponse   = "Invalid server response"
)

// ReservationSubmitter submits a booking to the ticketing backend
type ReservationSubmitter interface {
	SubmitReservation(ctx context.Context, payload *models.ReservationPayload) (*models.ReservationResponse, error)
}

// OrderAPIError is a failed reservation submission
type OrderAPIError struct {
	Message          string
	StatusCode       int
	CheckoutURL      string
	ValidationErrors map[string][]string
}

func (e *OrderAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("order API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("order API error: %s", e.Message)
}

// UserMessage returns the first field validation message, or the general
// message when the backend reported none. Fields are visited in name order.
func (e *OrderAPIError) UserMessage() string {
	fields := make([]string, 0, len(e.ValidationErrors))
	for field := range e.ValidationErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, msg := range e.ValidationErrors[field] {
			if msg != "" {
				return msg
			}
		}
	}
	return e.Message
}

// OrderClientConfig configures the orders REST client
type OrderClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OrderClient talks to the backend /orders endpoints
type OrderClient struct {
	config OrderClientConfig
	client *http.Client
	logger *zap.Logger
}

// NewOrderClient creates a new orders client
func NewOrderClient(config OrderClientConfig, logger *zap.Logger) *OrderClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &OrderClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

type reservationAddOn struct {
	AddOnID  json.Number  `json:"add_on_id"`
	Quantity int          `json:"quantity"`
	OptionID *json.Number `json:"option_id,omitempty"`
}

type reservationTicket struct {
	TicketID json.Number        `json:"ticket_id"`
	Quantity int                `json:"quantity"`
	AddOns   []reservationAddOn `json:"add_ons,omitempty"`
}

type reservationHolder struct {
	TicketID  json.Number `json:"ticket_id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
}

// reservationRequest is the POST /orders body
type reservationRequest struct {
	EventID        json.Number         `json:"event_id"`
	Tickets        []reservationTicket `json:"tickets"`
	OrderFirstName string              `json:"order_first_name"`
	OrderLastName  string              `json:"order_last_name"`
	OrderEmail     string              `json:"order_email"`
	TicketHolders  []reservationHolder `json:"ticket_holders"`
	PayOffline     bool                `json:"pay_offline"`
}

type orderSuccessResponse struct {
	Status  *string           `json:"status" validate:"required,eq=success"`
	Message *string           `json:"message" validate:"required"`
	Data    *models.OrderData `json:"data" validate:"required"`
}

type orderErrorResponse struct {
	Status      *string             `json:"status" validate:"required,eq=error"`
	Message     *string             `json:"message" validate:"required"`
	CheckoutURL *string             `json:"checkout_url"`
	Errors      map[string][]string `json:"errors"`
}

// ErrInvalidID is returned when an event, ticket or add-on id is not a
// backend numeric id
var ErrInvalidID = errors.New("invalid backend id")

// backendID renders ids as JSON numbers.
func backendID(kind, id string) (json.Number, error) {
	id = strings.TrimSpace(id)
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", fmt.Errorf("%w: %s id %q", ErrInvalidID, kind, id)
	}
	return json.Number(id), nil
}

func reservationQuantity(payload *models.ReservationPayload) int {
	if payload.Quantity < 1 {
		return 1
	}
	return payload.Quantity
}

// BuildReservationRequest maps a payload to the backend body. The holder
// list always has one entry per ticket: extra holders are dropped and
// missing ones are filled with the buyer. A non-numeric id fails with
// ErrInvalidID.
func BuildReservationRequest(payload *models.ReservationPayload) (reservationRequest, error) {
	quantity := reservationQuantity(payload)
	eventID, err := backendID("event", payload.EventID)
	if err != nil {
		return reservationRequest{}, err
	}
	ticketID, err := backendID("ticket", payload.TicketID)
	if err != nil {
		return reservationRequest{}, err
	}

	var addOns []reservationAddOn
	for _, a := range payload.AddOns {
		addOnID, err := backendID("add-on", a.AddOnID)
		if err != nil {
			return reservationRequest{}, err
		}
		addOn := reservationAddOn{AddOnID: addOnID, Quantity: a.Quantity}
		if a.OptionID != "" {
			optionID, err := backendID("add-on option", a.OptionID)
			if err != nil {
				return reservationRequest{}, err
			}
			addOn.OptionID = &optionID
		}
		addOns = append(addOns, addOn)
	}

	holders := make([]reservationHolder, 0, quantity)
	for _, h := range payload.TicketHolders {
		if len(holders) == quantity {
			break
		}
		holders = append(holders, reservationHolder{
			TicketID:  ticketID,
			FirstName: h.FirstName,
			LastName:  h.LastName,
			Email:     h.Email,
		})
	}
	for len(holders) < quantity {
		holders = append(holders, reservationHolder{
			TicketID:  ticketID,
			FirstName: payload.Customer.FirstName,
			LastName:  payload.Customer.LastName,
			Email:     payload.Customer.Email,
		})
	}

	return reservationRequest{
		EventID: eventID,
		Tickets: []reservationTicket{{
			TicketID: ticketID,
			Quantity: quantity,
			AddOns:   addOns,
		}},
		OrderFirstName: payload.Customer.FirstName,
		OrderLastName:  payload.Customer.LastName,
		OrderEmail:     payload.Customer.Email,
		TicketHolders:  holders,
		PayOffline:     payload.PayOffline,
	}, nil
}

// SubmitReservation posts the reservation. It is never retried.
func (c *OrderClient) SubmitReservation(ctx context.Context, payload *models.ReservationPayload) (*models.ReservationResponse, error) {
	body, err := BuildReservationRequest(payload)
	if err != nil {
		return nil, err
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reservation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ordersURL(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send reservation request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.handleAPIError(resp.StatusCode, bodyBytes)
	}

	var success orderSuccessResponse
	if err := json.Unmarshal(bodyBytes, &success); err != nil || payloadValidator.Struct(&success) != nil {
		c.logger.Warn("reservation accepted with unexpected payload",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(bodyBytes)))
		return nil, &OrderAPIError{Message: msgUnexpectedSuccess, StatusCode: resp.StatusCode}
	}

	order := success.Data
	c.logger.Info("reservation created",
		zap.String("reference", order.OrderReference),
		zap.Int("tickets", reservationQuantity(payload)))

	return &models.ReservationResponse{
		Status:               models.StatusSuccess,
		ReservationReference: order.OrderReference,
		OrderURL:             order.OrderURL,
		Message:              *success.Message,
		GrandTotal:           order.GrandTotal,
		Data:                 order,
	}, nil
}

// handleAPIError turns a non-2xx reservation response into an *OrderAPIError.
func (c *OrderClient) handleAPIError(statusCode int, body []byte) error {
	var errResp orderErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		if !json.Valid(body) {
			// mirrors an unreadable body being treated as {status:error, message:"Invalid server response"}
			return &OrderAPIError{Message: msgInvalidResponse, StatusCode: statusCode}
		}
		return &OrderAPIError{Message: msgOrderFailed, StatusCode: statusCode}
	}
	if payloadValidator.Struct(&errResp) != nil {
		return &OrderAPIError{Message: msgOrderFailed, StatusCode: statusCode}
	}

	apiErr := &OrderAPIError{
		Message:          *errResp.Message,
		StatusCode:       statusCode,
		ValidationErrors: errResp.Errors,
	}
	if errResp.CheckoutURL != nil {
		apiErr.CheckoutURL = *errResp.CheckoutURL
	}
	c.logger.Info("reservation rejected",
		zap.Int("status", statusCode),
		zap.String("message", apiErr.Message),
		zap.Int("field_errors", len(apiErr.ValidationErrors)))
	return apiErr
}

func (c *OrderClient) ordersURL() string {
	return strings.TrimSuffix(c.config.BaseURL, "/") + "/orders"
}

func (c *OrderClient) orderURL(reference string) string {
	return c.ordersURL() + "/" + url.PathEscape(reference)
}
