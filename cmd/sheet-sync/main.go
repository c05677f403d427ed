package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/sheetsync"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout for the sync run.")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	settings, err := config.LoadFleetSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid fleet settings: %v\n", err)
		os.Exit(1)
	}

	// Explicit DB connect (config does not connect in init()).
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Ensure schema is up-to-date (creates collection_records/vehicles if missing).
	models.MigrateTable()

	worker := sheetsync.NewWorker(config.GetLogger(), settings.Timezone)
	result, err := worker.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheet sync failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("sheet sync done: read=%d imported=%d skipped=%d coerced=%d\n",
		result.RowsRead, result.RecordsImported, result.RowsSkipped, result.ValuesCoerced)
}
