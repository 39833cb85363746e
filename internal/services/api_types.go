package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// payloadValidator checks backend payloads after decoding. Pointer fields
// tagged required must be present; zero values are allowed.
var payloadValidator = validator.New()

// FlexNumber decodes a JSON number or numeric string. Anything else is a
// decode error, which rejects the whole payload.
type FlexNumber float64

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = FlexNumber(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid number %s", string(data))
	}
	*n = FlexNumber(f)
	return nil
}

// Float returns the value, or 0 for a nil pointer.
func (n *FlexNumber) Float() float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}

// NullableNumber decodes an optional numeric field. Missing, null, empty or
// non-numeric input leaves it invalid instead of failing the payload.
type NullableNumber struct {
	Value float64
	Valid bool
}

func (n *NullableNumber) UnmarshalJSON(data []byte) error {
	*n = NullableNumber{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var f float64
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	} else if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = NullableNumber{Value: f, Valid: true}
	return nil
}

type apiOrganiser struct {
	ID           *int64  `json:"id" validate:"required"`
	Name         *string `json:"name" validate:"required"`
	Email        *string `json:"email"`
	LogoURL      *string `json:"logo_url"`
	OrganiserURL *string `json:"organiser_url"`
}

type apiAddOnOption struct {
	ID            *FlexNumber `json:"id" validate:"required"`
	Title         *string     `json:"title" validate:"required"`
	PriceModifier *FlexNumber `json:"price_modifier" validate:"required"`
}

type apiAddOn struct {
	ID          *FlexNumber      `json:"id" validate:"required"`
	Title       *string          `json:"title" validate:"required"`
	Description *string          `json:"description"`
	Price       *FlexNumber      `json:"price" validate:"required"`
	Options     []apiAddOnOption `json:"options" validate:"omitempty,dive"`
}

type apiTicket struct {
	ID                *FlexNumber    `json:"id" validate:"required"`
	Title             *string        `json:"title" validate:"required"`
	Description       *string        `json:"description"`
	Price             *FlexNumber    `json:"price" validate:"required"`
	IsSoldOut         *bool          `json:"is_sold_out" validate:"required"`
	QuantityAvailable NullableNumber `json:"quantity_available"`
	QuantityRemaining NullableNumber `json:"quantity_remaining"`
	QuantitySold      NullableNumber `json:"quantity_sold"`
	StartSaleDate     *string        `json:"start_sale_date"`
	EndSaleDate       *string        `json:"end_sale_date"`
	AddOns            []apiAddOn     `json:"add_ons" validate:"omitempty,dive"`
}

type apiCurrency struct {
	Code   *string `json:"code" validate:"required"`
	Symbol *string `json:"symbol" validate:"required"`
}

type apiEvent struct {
	ID                   *int64        `json:"id" validate:"required"`
	Title                *string       `json:"title" validate:"required"`
	Description          *string       `json:"description"`
	DescriptionHTML      *string       `json:"description_html"`
	StartDate            *string       `json:"start_date" validate:"required"`
	EndDate              *string       `json:"end_date" validate:"required"`
	VenueName            *string       `json:"venue_name"`
	VenueNameFull        *string       `json:"venue_name_full"`
	LocationAddress      *string       `json:"location_address"`
	LocationAddressLine1 *string       `json:"location_address_line_1"`
	LocationAddressLine2 *string       `json:"location_address_line_2"`
	LocationState        *string       `json:"location_state"`
	LocationPostCode     *string       `json:"location_post_code"`
	LocationCountry      *string       `json:"location_country"`
	EventURL             *string       `json:"event_url"`
	ImageURL             *string       `json:"image_url"`
	VenueImageURL        *string       `json:"venue_image_url"`
	Organiser            *apiOrganiser `json:"organiser"`
	Tickets              []apiTicket   `json:"tickets" validate:"required,dive"`
	Currency             *apiCurrency  `json:"currency"`
}

type apiOrganiserWithEvents struct {
	apiOrganiser
	Events []apiEvent `json:"events" validate:"required,dive"`
}

// organiserFeed is GET /organiser
type organiserFeed struct {
	Data *apiOrganiserWithEvents `json:"data" validate:"required"`
}

type apiPageMeta struct {
	CurrentPage *float64 `json:"current_page" validate:"required"`
	LastPage    *float64 `json:"last_page" validate:"required"`
	PerPage     *float64 `json:"per_page" validate:"required"`
	Total       *float64 `json:"total" validate:"required"`
}

// legacyFeed is the flat events list served by EVENTS_API_URL
type legacyFeed struct {
	Data []apiEvent   `json:"data" validate:"required,dive"`
	Meta *apiPageMeta `json:"meta"`
}

// eventFeed is resolved once at the fetch boundary; exactly one field is set.
type eventFeed struct {
	Organiser *organiserFeed
	Legacy    *legacyFeed
}

// decodeFeed strictly decodes and validates body into dest.
func decodeFeed(body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return err
	}
	return payloadValidator.Struct(dest)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func trimmed(p *string) string {
	return strings.TrimSpace(str(p))
}
