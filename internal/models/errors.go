package models

import "errors"

// Common errors used throughout the application
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNothingSelected = errors.New("package not selected")
	ErrInvalidAddOn    = errors.New("invalid add-on selection")
	ErrInvalidInput    = errors.New("invalid input")
)
