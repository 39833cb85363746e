package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/config"
	"f1-pass-storefront/internal/format"
	"f1-pass-storefront/internal/logger"
	"f1-pass-storefront/internal/models"
	"f1-pass-storefront/internal/repositories"
	"f1-pass-storefront/internal/services"
)

func main() {
	reference := flag.String("ref", "", "order reference, e.g. F1-000123")
	watch := flag.Bool("watch", false, "keep polling until payment is received")
	interval := flag.Duration("interval", 0, "poll interval (default PAYMENT_POLL_INTERVAL)")
	flag.Parse()

	if *reference == "" && flag.NArg() > 0 {
		*reference = flag.Arg(0)
	}
	if *reference == "" {
		fmt.Fprintln(os.Stderr, "usage: check-order -ref F1-000123 [-watch] [-interval 5s]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if *interval <= 0 {
		*interval = cfg.Poll.Interval
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true, OutputPath: "stderr"})
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repositories.NewStateStore(ctx, repositories.StoreOptions{
		Driver:        cfg.Store.Driver,
		Dir:           cfg.Store.Dir,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
	})
	if err != nil {
		log.Fatal("Failed to open state store:", err)
	}

	client := services.NewOrderClient(services.OrderClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, zapLogger)
	cache := repositories.NewOrderCacheRepository(store, "cli", cfg.Store.TTL)
	view := services.NewOrderView(*reference, client, cache, zapLogger)
	defer view.Close()

	if cached, ok := view.Paint(ctx); ok {
		fmt.Println("Last seen:")
		printOrder(cached, view)
	}

	if !*watch {
		order, ok := view.Refresh(ctx)
		if !ok {
			log.Fatalf("Order %s not found", *reference)
		}
		fmt.Println("Current:")
		printOrder(order, view)
		return
	}

	poller := services.NewPaymentPoller(view, *interval, zapLogger)
	err = poller.Watch(ctx, func(order *models.OrderData) {
		printOrder(order, view)
	})
	switch {
	case err == nil:
		fmt.Printf("Payment received for %s\n", view.Reference())
	case errors.Is(err, models.ErrOrderNotFound):
		log.Fatalf("Order %s not found", *reference)
	case errors.Is(err, context.Canceled):
		zapLogger.Info("stopped watching", zap.String("reference", view.Reference()))
	default:
		log.Fatal("Watch failed:", err)
	}
}

func printOrder(order *models.OrderData, view *services.OrderView) {
	flags := order.Flags(view.Now())

	total := "unknown"
	if order.GrandTotal != nil {
		total = format.Money(*order.GrandTotal, order.DisplayCurrency().Code)
	}
	deadline := "none"
	if order.PaymentDeadlineAt != nil {
		deadline = format.DateTime(*order.PaymentDeadlineAt)
	}

	fmt.Printf("  Reference: %s\n", order.OrderReference)
	fmt.Printf("  State:     %s\n", flags.State)
	fmt.Printf("  Total:     %s\n", total)
	fmt.Printf("  Deadline:  %s\n", deadline)
	if order.Receipt != nil {
		fmt.Printf("  Receipt:   %s (confirmed: %v)\n", order.Receipt.Filename, order.Receipt.Confirmed)
	}
}
