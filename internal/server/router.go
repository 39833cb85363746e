package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"f1-pass-storefront/internal/handlers"
	"f1-pass-storefront/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Events   *handlers.EventHandler
	Booking  *handlers.BookingHandler
	Checkout *handlers.CheckoutHandler
	Orders   *handlers.OrderHandler
	Health   *handlers.HealthHandler
}

// RouterConfig holds the middleware collaborators
type RouterConfig struct {
	Logger   *zap.Logger
	Sessions *middleware.SessionMiddleware
	CORS     middleware.CORSConfig
	Limiter  *middleware.RateLimiter // nil disables submit rate limiting
}

// NewRouter mounts the storefront API
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(cfg.Logger))
	r.Use(middleware.ErrorHandlingMiddleware(cfg.Logger))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORSMiddleware(cfg.CORS))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", h.Health.Health)

	limited := middleware.RateLimit(cfg.Limiter)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.Visitor)

		// Catalogue
		r.Get("/api/events", h.Events.ListEvents)
		r.Get("/api/events/{eventID}", h.Events.GetEvent)
		r.Get("/api/events/{eventID}/calendar", h.Events.Calendar)
		r.Get("/api/teams", h.Events.Teams)

		// Booking selection
		r.Route("/api/booking", func(r chi.Router) {
			r.Get("/", h.Booking.Get)
			r.Delete("/", h.Booking.Clear)
			r.Put("/selection", h.Booking.SetSelection)
			r.Put("/quantity", h.Booking.SetQuantity)
			r.Put("/add-ons", h.Booking.SetAddOns)
		})

		// Checkout
		r.Get("/api/checkout", h.Checkout.Summary)
		r.With(limited).Post("/api/checkout", h.Checkout.Submit)

		// Order view
		r.Route("/api/orders/{reference}", func(r chi.Router) {
			r.Get("/", h.Orders.Get)
			r.Get("/events", h.Orders.Events)
			r.Post("/receipt", h.Orders.UploadReceipt)
			r.Delete("/receipt", h.Orders.RemoveReceipt)
			r.Post("/receipt/confirm", h.Orders.ConfirmReceipt)
			r.Get("/payment-instructions", h.Orders.PaymentInstructions)
			r.With(limited).Post("/payment-instructions/email", h.Orders.SendPaymentInstructions)
		})
	})

	return r
}
