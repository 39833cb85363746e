package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/config"
	"f1-pass-storefront/internal/format"
	"f1-pass-storefront/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	events := services.NewEventService(services.EventServiceConfig{
		BaseURL:   cfg.API.BaseURL,
		LegacyURL: cfg.API.EventsURL,
		Timeout:   cfg.API.Timeout,
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	catalogue, err := events.FetchEvents(ctx)
	if err != nil {
		log.Fatal("Failed to fetch events:", err)
	}

	fmt.Printf("Checking Events (%s feed)\n", events.Mode())
	fmt.Printf("Total Events: %d\n", len(catalogue))

	var tickets, soldOut int
	for _, e := range catalogue {
		tickets += e.TicketCount
		for _, t := range e.Tickets {
			if t.IsSoldOut {
				soldOut++
			}
		}
	}
	fmt.Printf("Ticket Packages: %d (%d sold out)\n", tickets, soldOut)

	fmt.Println("\nEvents:")
	for _, e := range catalogue {
		currency := ""
		if e.Currency != nil {
			currency = e.Currency.Code
		}
		fmt.Printf("  %-6s %-40s %-18s from %s\n", e.ID, e.Name, e.DateLabel, format.Money(e.FromPrice, currency))
	}
}
