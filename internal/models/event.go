package models

import (
	"strings"
	"time"
)

// TicketCategory is the seating class inferred from a ticket title
type TicketCategory string

const (
	CategoryGrandstand TicketCategory = "grandstand"
	CategoryVIP        TicketCategory = "vip"
	CategoryPaddock    TicketCategory = "paddock"
)

// DefaultOrganiserName is used when neither the event nor the feed names an organiser
const DefaultOrganiserName = "Formula One Digital Media Limited"

// Currency is the display currency of an event or order
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// Organiser represents the company selling an event
type Organiser struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        *string `json:"email"`
	LogoURL      string  `json:"logoUrl"`
	OrganiserURL string  `json:"organiserUrl"`
}

// TicketAddOnOption is one mutually exclusive variant of an add-on
type TicketAddOnOption struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	PriceModifier float64 `json:"priceModifier"`
}

// TicketAddOn represents an optional extra that can be attached to a ticket
type TicketAddOn struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Price       float64             `json:"price"`
	Options     []TicketAddOnOption `json:"options"`
}

// OptionByID returns the option with the given id, if any.
func (a *TicketAddOn) OptionByID(id string) (*TicketAddOnOption, bool) {
	for i := range a.Options {
		if a.Options[i].ID == id {
			return &a.Options[i], true
		}
	}
	return nil, false
}

// UnitPrice returns the base price plus the modifier of the selected option.
func (a *TicketAddOn) UnitPrice(optionID string) float64 {
	price := a.Price
	if optionID != "" {
		if opt, ok := a.OptionByID(optionID); ok {
			price += opt.PriceModifier
		}
	}
	return price
}

// TicketPackage represents a purchasable ticket within an event.
// QuantityRemaining is nil exactly when IsUnlimited is true.
type TicketPackage struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	DescriptionMarkdown string         `json:"descriptionMarkdown"`
	DescriptionPlain    string         `json:"descriptionPlain"`
	DescriptionPreview  string         `json:"descriptionPreview"`
	Price               float64        `json:"price"`
	IsSoldOut           bool           `json:"isSoldOut"`
	IsUnlimited         bool           `json:"isUnlimited"`
	QuantityRemaining   *int           `json:"quantityRemaining"`
	StartSaleDate       *string        `json:"startSaleDate"`
	EndSaleDate         *string        `json:"endSaleDate"`
	Category            TicketCategory `json:"category"`
	AddOns              []TicketAddOn  `json:"addOns,omitempty"`
}

// IsPurchasable reports whether the ticket is on sale with stock left.
func (t *TicketPackage) IsPurchasable() bool {
	if t.IsSoldOut {
		return false
	}
	return t.IsUnlimited || (t.QuantityRemaining != nil && *t.QuantityRemaining > 0)
}

// AddOnByID returns the add-on with the given id, if any.
func (t *TicketPackage) AddOnByID(id string) (*TicketAddOn, bool) {
	for i := range t.AddOns {
		if t.AddOns[i].ID == id {
			return &t.AddOns[i], true
		}
	}
	return nil, false
}

// MaxQuantity returns the largest quantity a buyer may request for this ticket.
func (t *TicketPackage) MaxQuantity() int {
	if t.IsUnlimited || t.QuantityRemaining == nil {
		return MaxBookingQuantity
	}
	if *t.QuantityRemaining < 1 {
		return 1
	}
	if *t.QuantityRemaining > MaxBookingQuantity {
		return MaxBookingQuantity
	}
	return *t.QuantityRemaining
}

// Event represents one race weekend with its ticket inventory
type Event struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Venue         string          `json:"venue"`
	City          string          `json:"city"`
	Country       string          `json:"country"`
	Zone          string          `json:"zone"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	DateLabel     string          `json:"dateLabel"`
	MonthLabel    string          `json:"monthLabel"`
	Description   string          `json:"description"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	VenueImageURL string          `json:"venueImageUrl,omitempty"`
	EventURL      string          `json:"eventUrl,omitempty"`
	Organiser     Organiser       `json:"organiser"`
	Tickets       []TicketPackage `json:"tickets"`
	TicketCount   int             `json:"ticketCount"`
	FromPrice     float64         `json:"fromPrice"`
	Currency      *Currency       `json:"currency,omitempty"`
}

// TicketByID returns the ticket with the given id, if any.
func (e *Event) TicketByID(id string) (*TicketPackage, bool) {
	for i := range e.Tickets {
		if e.Tickets[i].ID == id {
			return &e.Tickets[i], true
		}
	}
	return nil, false
}

// StartTime parses StartDate; the zero time is returned when it cannot be parsed.
func (e *Event) StartTime() time.Time {
	t, _ := ParseTimestamp(e.StartDate)
	return t
}

// FindEvent returns the event with the given id from a list.
func FindEvent(events []*Event, id string) (*Event, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the backend's date formats. Timestamps without a zone are UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
