package services

import (
	"fmt"

	"f1-pass-storefront/internal/models"
)

// PriceBreakdown is the client-side estimate shown at checkout. The backend
// computes the authoritative grand total.
type PriceBreakdown struct {
	Subtotal    float64 `json:"subtotal"`
	AddOnsTotal float64 `json:"addOnsTotal"`
	Total       float64 `json:"total"`
}

// PriceSummary prices quantity tickets plus the selected add-ons. Unknown
// add-ons are ignored.
func PriceSummary(ticket *models.TicketPackage, quantity int, selections []models.AddOnSelection) PriceBreakdown {
	if quantity < 1 {
		quantity = 1
	}
	subtotal := ticket.Price * float64(quantity)

	var addOns float64
	for _, sel := range selections {
		addOn, ok := ticket.AddOnByID(sel.AddOnID)
		if !ok {
			continue
		}
		addOns += addOn.UnitPrice(sel.OptionID) * float64(sel.Quantity)
	}

	return PriceBreakdown{
		Subtotal:    subtotal,
		AddOnsTotal: addOns,
		Total:       subtotal + addOns,
	}
}

// ValidateAddOnSelections checks every selection against the ticket. Each
// add-on may be chosen once with a quantity of at least one, and an option
// id must belong to its add-on.
func ValidateAddOnSelections(ticket *models.TicketPackage, selections []models.AddOnSelection) error {
	seen := make(map[string]bool, len(selections))
	for _, sel := range selections {
		addOn, ok := ticket.AddOnByID(sel.AddOnID)
		if !ok {
			return fmt.Errorf("%w: unknown add-on %q", models.ErrInvalidAddOn, sel.AddOnID)
		}
		if seen[sel.AddOnID] {
			return fmt.Errorf("%w: add-on %q selected twice", models.ErrInvalidAddOn, sel.AddOnID)
		}
		seen[sel.AddOnID] = true

		if sel.Quantity < 1 {
			return fmt.Errorf("%w: quantity for %q must be at least 1", models.ErrInvalidAddOn, sel.AddOnID)
		}
		if sel.OptionID != "" {
			if _, ok := addOn.OptionByID(sel.OptionID); !ok {
				return fmt.Errorf("%w: option %q does not belong to %q", models.ErrInvalidAddOn, sel.OptionID, sel.AddOnID)
			}
		}
	}
	return nil
}
