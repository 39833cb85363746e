package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/config"
	"f1-pass-storefront/internal/logger"
	"f1-pass-storefront/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: "f1-pass-storefront",
		Development: cfg.Log.Format == "console" || (cfg.Log.Format == "" && cfg.IsDevelopment()),
		OutputPath:  "stdout",
	})
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialise server", zap.Error(err))
	}
	go app.Limiter.RunCleanup(ctx, cfg.Server.SubmitRateWindow)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		// no write timeout: payment status is streamed until the order is paid
		IdleTimeout: 2 * time.Minute,
	}

	go func() {
		zapLogger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("events_mode", app.Info.EventsMode),
			zap.String("order_mode", app.Info.OrderMode),
			zap.String("state_store", app.Info.StateStore),
			zap.String("receipt_archive", app.Info.ReceiptArchive))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
