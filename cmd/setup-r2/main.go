package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"f1-pass-storefront/internal/config"
	"f1-pass-storefront/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Printf("Receipt Archive Information:\n")
	fmt.Printf("  Archive Mode: %s\n", cfg.Receipts.Archive)
	fmt.Printf("  R2 Configured: %v\n", cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "")
	fmt.Printf("  Bucket Name: %s\n", cfg.R2.BucketName)
	fmt.Printf("  Public URL: %s\n", cfg.R2.PublicURL)
	fmt.Printf("  Fallback Path: %s\n", cfg.Receipts.ArchiveDir)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r2, err := services.NewR2ArchiveStore(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("R2 configuration validation failed: %v", err)
	}
	fmt.Println("\nR2 configuration is valid")

	// Check if we should write a probe object
	if len(os.Args) > 1 && os.Args[1] == "probe" {
		body := fmt.Sprintf("receipt archive probe %s\n", time.Now().UTC().Format(time.RFC3339))
		key := fmt.Sprintf("receipts/_probe/%d.txt", time.Now().Unix())
		location, err := r2.Put(ctx, key, strings.NewReader(body), "text/plain", int64(len(body)))
		if err != nil {
			log.Fatalf("Failed to write probe object: %v", err)
		}
		fmt.Printf("Probe object written to %s\n", location)
	} else {
		fmt.Println("\nTo write a probe object, run: go run ./cmd/setup-r2 probe")
	}
}
