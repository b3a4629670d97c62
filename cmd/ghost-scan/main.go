package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/models"
	"bitbucket.org/vendaops/salesops_backend/workflow"
)

func main() {
	daysBack := flag.Int("days-back", 0, "Optional: lookback window in days. Defaults to GHOST_SCAN_DAYS_BACK (14).")
	createAlerts := flag.Bool("create-alerts", false, "Publish an alert message when the scan inserts new cases.")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before scanning.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	// Redis is skipped on purpose: the scanner only uses it for cache
	// invalidation, and the helpers are no-ops without a connection.

	if *migrate {
		models.MigrateTable()
	}

	scanner := workflow.NewGhostScanner(db, config.GetLogger())
	result, err := scanner.Run(ctx, workflow.GhostScanOptions{
		DaysBack:     *daysBack,
		CreateAlerts: *createAlerts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
