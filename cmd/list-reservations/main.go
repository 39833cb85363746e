package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"f1-pass-storefront/internal/config"
	"f1-pass-storefront/internal/repositories"
)

func main() {
	visitor := flag.String("visitor", "", "visitor session id whose mock reservations to list")
	flag.Parse()
	if *visitor == "" {
		log.Fatal("Usage: list-reservations -visitor <session id>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// The in-memory store only lives inside the server process
	if cfg.Store.Driver == "memory" {
		log.Fatal("STATE_STORE=memory keeps reservations inside the server; use file or redis to list them")
	}

	ctx := context.Background()
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

	entries, err := repositories.NewReservationLogRepository(store).List(ctx, *visitor)
	if err != nil {
		log.Fatal("Failed to list reservations:", err)
	}

	fmt.Printf("Mock Reservations for %s (%d, newest first)\n", *visitor, len(entries))
	fmt.Println("==========================================")
	for _, e := range entries {
		p := e.Payload
		fmt.Printf("%s  %s  event=%s ticket=%s qty=%d  %s %s <%s>\n",
			e.Reference,
			e.SubmittedAt.Format("2006-01-02 15:04:05"),
			p.EventID, p.TicketID, p.Quantity,
			p.Customer.FirstName, p.Customer.LastName, p.Customer.Email)
	}
}
