package models

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultBookingQuantity is the quantity of a fresh selection
	DefaultBookingQuantity = 2
	// MaxBookingQuantity caps tickets per reservation
	MaxBookingQuantity = 20
)

// AddOnSelection is a chosen add-on on the booking side
type AddOnSelection struct {
	AddOnID  string `json:"addOnId"`
	Quantity int    `json:"quantity"`
	OptionID string `json:"optionId,omitempty"`
}

// BookingSelection is the visitor's current event/ticket choice, kept between
// the event page and checkout. It is never authoritative: ids are re-resolved
// against a fresh event fetch.
type BookingSelection struct {
	EventID        string           `json:"eventId,omitempty"`
	TicketID       string           `json:"ticketId,omitempty"`
	TicketCategory TicketCategory   `json:"ticketCategory,omitempty"`
	Quantity       int              `json:"quantity"`
	SelectedAddOns []AddOnSelection `json:"selectedAddOns"`
}

// NewBookingSelection returns an empty selection with default quantity
func NewBookingSelection() *BookingSelection {
	return &BookingSelection{
		Quantity:       DefaultBookingQuantity,
		SelectedAddOns: []AddOnSelection{},
	}
}

// SetSelection replaces the event and ticket. Add-ons are ticket specific,
// so any previous add-on choice is dropped.
func (b *BookingSelection) SetSelection(eventID, ticketID string, category TicketCategory) {
	b.EventID = eventID
	b.TicketID = ticketID
	b.TicketCategory = category
	b.SelectedAddOns = []AddOnSelection{}
}

// SetQuantity stores the quantity clamped to [1, MaxBookingQuantity].
func (b *BookingSelection) SetQuantity(quantity int) {
	b.Quantity = ClampQuantity(quantity)
}

// SetSelectedAddOns replaces the add-on selections. Entries with a quantity
// below one are normalised to one.
func (b *BookingSelection) SetSelectedAddOns(addOns []AddOnSelection) {
	selected := make([]AddOnSelection, 0, len(addOns))
	for _, a := range addOns {
		if a.Quantity < 1 {
			a.Quantity = 1
		}
		selected = append(selected, a)
	}
	b.SelectedAddOns = selected
}

// Clear resets the selection to its defaults.
func (b *BookingSelection) Clear() {
	*b = *NewBookingSelection()
}

// HasSelection reports whether an event and ticket have been picked.
func (b *BookingSelection) HasSelection() bool {
	return b.EventID != "" && b.TicketID != ""
}

// ClampQuantity bounds a quantity to [1, MaxBookingQuantity].
func ClampQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	if quantity > MaxBookingQuantity {
		return MaxBookingQuantity
	}
	return quantity
}

// ParseQuantity converts user input to a clamped quantity; anything that
// is not a number becomes 1.
func ParseQuantity(value string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > MaxBookingQuantity {
		return MaxBookingQuantity
	}
	return int(f)
}
