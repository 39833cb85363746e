package server

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/config"
	"f1-pass-storefront/internal/handlers"
	"f1-pass-storefront/internal/middleware"
	"f1-pass-storefront/internal/repositories"
	"f1-pass-storefront/internal/services"
)

// eventFetchRetries is how often a failed catalogue fetch is retried. One
// retry on a transient failure, never more.
const eventFetchRetries = 1

// App is the assembled storefront
type App struct {
	Handler http.Handler
	Limiter *middleware.RateLimiter
	Info    handlers.HealthInfo
}

// New wires the state store, backend clients and handlers described by cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := repositories.NewStateStore(ctx, repositories.StoreOptions{
		Driver:        cfg.Store.Driver,
		Dir:           cfg.Store.Dir,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	log.Info("state store ready", zap.String("driver", cfg.Store.Driver))

	bookings := repositories.NewBookingRepository(store, cfg.Store.TTL)
	reservations := repositories.NewReservationLogRepository(store)
	caches := func(visitorID string) services.OrderCache {
		return repositories.NewOrderCacheRepository(store, visitorID, cfg.Store.TTL)
	}

	events := services.NewEventService(services.EventServiceConfig{
		BaseURL:   cfg.API.BaseURL,
		LegacyURL: cfg.API.EventsURL,
		Timeout:   cfg.API.Timeout,
		StaleTime: cfg.API.StaleTime,
		Retries:   eventFetchRetries,
	}, log)
	orders := services.NewOrderClient(services.OrderClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, log)
	submitter := services.NewReservationSubmitter(cfg.API.UseMockOrder, orders, reservations, cfg.API.MockDelay, log)
	teams := services.NewTeamService(cfg.API.BaseURL, cfg.API.Timeout, log)
	downloads := services.NewDownloadService(cfg.BackendOrigin(), cfg.API.Timeout)

	archive, err := services.NewReceiptArchiveStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up receipt archive: %w", err)
	}

	info := handlers.HealthInfo{
		EventsMode:     events.Mode(),
		OrderMode:      "live",
		StateStore:     cfg.Store.Driver,
		ReceiptArchive: cfg.Receipts.Archive,
	}
	if cfg.API.UseMockOrder {
		info.OrderMode = "mock"
	}

	limiter := middleware.NewRateLimiter(cfg.Server.SubmitRateLimit, cfg.Server.SubmitRateWindow)
	sessionStore := middleware.NewCookieStore(cfg.Session.Secret, cfg.Session.MaxAge, !cfg.IsDevelopment())

	h := Handlers{
		Events:   handlers.NewEventHandler(events, downloads, teams, log),
		Booking:  handlers.NewBookingHandler(bookings, log),
		Checkout: handlers.NewCheckoutHandler(events, bookings, submitter, caches, log),
		Orders: handlers.NewOrderHandler(handlers.OrderHandlerConfig{
			Lifecycle:    orders,
			Downloads:    downloads,
			Caches:       caches,
			Emails:       services.NewSendGuard(),
			Receipts:     services.NewReceiptValidator(cfg.Receipts.MaxBytes),
			Archiver:     services.NewReceiptArchiver(archive, log),
			PollInterval: cfg.Poll.Interval,
		}, log),
		Health: handlers.NewHealthHandler(info),
	}

	router := NewRouter(RouterConfig{
		Logger:   log,
		Sessions: middleware.NewSessionMiddleware(sessionStore, log),
		CORS:     middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins),
		Limiter:  limiter,
	}, h)

	return &App{Handler: router, Limiter: limiter, Info: info}, nil
}
