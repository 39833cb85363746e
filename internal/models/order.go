package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// SendTo selects the recipients of a payment-instructions email
type SendTo string

const (
	SendToMe        SendTo = "me"
	SendToAttendees SendTo = "attendees"
)

// Valid reports whether s is a known recipient group.
func (s SendTo) Valid() bool {
	return s == SendToMe || s == SendToAttendees
}

// OrderState is the lifecycle state of an order as seen by the storefront
type OrderState string

const (
	OrderSubmitted        OrderState = "submitted"
	OrderAwaitingPayment  OrderState = "awaiting_payment"
	OrderReceiptPending   OrderState = "receipt_pending"
	OrderReceiptConfirmed OrderState = "receipt_confirmed"
	OrderDeadlinePassed   OrderState = "deadline_passed"
	OrderPaid             OrderState = "paid"
)

// DefaultOrderCurrency is shown when an order carries no currency
var DefaultOrderCurrency = Currency{Code: "EUR", Symbol: "€"}

// Receipt is the proof-of-payment file attached to an order
type Receipt struct {
	Confirmed   bool    `json:"confirmed"`
	Filename    string  `json:"filename"`
	ReceiptID   *int64  `json:"receipt_id,omitempty"`
	ConfirmedAt *string `json:"confirmed_at,omitempty"`
}

// OrderItem is one line of an order
type OrderItem struct {
	Title     string   `json:"title"`
	Quantity  int      `json:"quantity"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
	Total     *float64 `json:"total,omitempty"`
}

// OrderEvent is the event summary embedded in an order
type OrderEvent struct {
	Title string `json:"title"`
}

// OrderData is the backend's authoritative order record
type OrderData struct {
	OrderReference            string          `json:"order_reference" validate:"required"`
	OrderURL                  *string         `json:"order_url,omitempty"`
	PaymentInstructionsPDFURL *string         `json:"payment_instructions_pdf_url,omitempty"`
	GrandTotal                *float64        `json:"grand_total"`
	IsPaymentReceived         bool            `json:"is_payment_received"`
	PaymentDeadlineAt         *string         `json:"payment_deadline_at,omitempty"`
	HasPendingReceipt         bool            `json:"has_pending_receipt,omitempty"`
	ReceiptConfirmedFlag      bool            `json:"receipt_confirmed,omitempty"`
	FirstName                 string          `json:"first_name,omitempty"`
	LastName                  string          `json:"last_name,omitempty"`
	Email                     string          `json:"email,omitempty"`
	Receipt                   *Receipt        `json:"receipt,omitempty"`
	Currency                  *Currency       `json:"currency,omitempty"`
	Event                     *OrderEvent     `json:"event,omitempty"`
	OrderItems                []OrderItem     `json:"order_items,omitempty"`
	Attendees                 json.RawMessage `json:"attendees,omitempty"`
}

// UnmarshalJSON accepts grand_total as a number or numeric string. Other
// type mismatches are reported after every decodable field has been set.
func (o *OrderData) UnmarshalJSON(data []byte) error {
	type alias OrderData
	aux := struct {
		*alias
		GrandTotal json.RawMessage `json:"grand_total"`
	}{alias: (*alias)(o)}

	err := json.Unmarshal(data, &aux)
	o.GrandTotal = parseNullableFloat(aux.GrandTotal)
	return err
}

func parseNullableFloat(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	} else {
		s = string(raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// IsPaid reports whether the backend has accepted payment.
func (o *OrderData) IsPaid() bool {
	return o.IsPaymentReceived
}

// Deadline returns the parsed payment deadline.
func (o *OrderData) Deadline() (time.Time, bool) {
	if o.PaymentDeadlineAt == nil {
		return time.Time{}, false
	}
	return ParseTimestamp(*o.PaymentDeadlineAt)
}

// DeadlinePassed reports whether the payment deadline lies before now.
func (o *OrderData) DeadlinePassed(now time.Time) bool {
	deadline, ok := o.Deadline()
	return ok && deadline.Before(now)
}

// ReceiptConfirmed reports whether the buyer has confirmed the uploaded receipt.
func (o *OrderData) ReceiptConfirmed() bool {
	return o.ReceiptConfirmedFlag || (o.Receipt != nil && o.Receipt.Confirmed)
}

// HasUnconfirmedReceipt reports whether a receipt awaits the buyer's confirmation.
func (o *OrderData) HasUnconfirmedReceipt() bool {
	return o.Receipt != nil && !o.Receipt.Confirmed
}

// CanUploadReceipt reports whether a receipt may be uploaded at now.
func (o *OrderData) CanUploadReceipt(now time.Time) bool {
	return !o.IsPaid() && !o.DeadlinePassed(now) && !o.ReceiptConfirmed()
}

// ShowConfirmStep reports whether the confirm-or-replace choice applies.
func (o *OrderData) ShowConfirmStep(now time.Time) bool {
	return o.CanUploadReceipt(now) && o.HasUnconfirmedReceipt()
}

// CanRemoveReceipt reports whether the unconfirmed receipt may be deleted.
func (o *OrderData) CanRemoveReceipt(now time.Time) bool {
	return o.ShowConfirmStep(now)
}

// State derives the lifecycle state at now.
func (o *OrderData) State(now time.Time) OrderState {
	switch {
	case o.IsPaid():
		return OrderPaid
	case o.ReceiptConfirmed():
		return OrderReceiptConfirmed
	case o.DeadlinePassed(now):
		return OrderDeadlinePassed
	case o.HasUnconfirmedReceipt():
		return OrderReceiptPending
	default:
		return OrderAwaitingPayment
	}
}

// DisplayCurrency returns the order currency or the EUR default.
func (o *OrderData) DisplayCurrency() Currency {
	if o.Currency == nil || o.Currency.Code == "" {
		return DefaultOrderCurrency
	}
	return *o.Currency
}

// MatchesReference compares order references case-insensitively.
func (o *OrderData) MatchesReference(reference string) bool {
	return strings.EqualFold(strings.TrimSpace(o.OrderReference), strings.TrimSpace(reference))
}

// OrderFlags are the derived booleans a client needs to render an order
type OrderFlags struct {
	State            OrderState `json:"state"`
	IsPaid           bool       `json:"isPaid"`
	DeadlinePassed   bool       `json:"deadlinePassed"`
	ReceiptConfirmed bool       `json:"receiptConfirmed"`
	CanUploadReceipt bool       `json:"canUploadReceipt"`
	ShowConfirmStep  bool       `json:"showConfirmStep"`
	CanRemoveReceipt bool       `json:"canRemoveReceipt"`
}

// Flags evaluates every derived flag at now.
func (o *OrderData) Flags(now time.Time) OrderFlags {
	return OrderFlags{
		State:            o.State(now),
		IsPaid:           o.IsPaid(),
		DeadlinePassed:   o.DeadlinePassed(now),
		ReceiptConfirmed: o.ReceiptConfirmed(),
		CanUploadReceipt: o.CanUploadReceipt(now),
		ShowConfirmStep:  o.ShowConfirmStep(now),
		CanRemoveReceipt: o.CanRemoveReceipt(now),
	}
}

// Customer holds the buyer's contact details
type Customer struct {
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=7"`
	Notes     string `json:"notes,omitempty"`
}

// TicketHolder is the named attendee of one ticket
type TicketHolder struct {
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
}

// ReservationPayload is a booking request ready to be submitted
type ReservationPayload struct {
	EventID       string           `json:"eventId"`
	TicketID      string           `json:"ticketId"`
	Quantity      int              `json:"quantity"`
	AddOns        []AddOnSelection `json:"addOns"`
	Customer      Customer         `json:"customer"`
	TicketHolders []TicketHolder   `json:"ticketHolders"`
	PayOffline    bool             `json:"payOffline"`
}

// ReservationResponse is the outcome of a successful submission
type ReservationResponse struct {
	Status               string     `json:"status"`
	ReservationReference string     `json:"reservationReference"`
	OrderURL             *string    `json:"orderUrl"`
	Message              string     `json:"message"`
	GrandTotal           *float64   `json:"grandTotal"`
	Data                 *OrderData `json:"data,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MutationResult is returned by every order lifecycle mutation
type MutationResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the mutation succeeded.
func (r MutationResult) OK() bool {
	return r.Status == StatusSuccess
}

// MutationSuccess builds a successful result.
func MutationSuccess(message string) MutationResult {
	return MutationResult{Status: StatusSuccess, Message: message}
}

// MutationFailure builds a failed result.
func MutationFailure(message string) MutationResult {
	return MutationResult{Status: StatusError, Message: message}
}
