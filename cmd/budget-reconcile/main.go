// budget-reconcile recomputes every budget's cached aggregates from the
// transaction log and reports drift. Run it from cron or by hand after an
// incident; it only writes reconciliation_reports rows, never the aggregates.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/budget-reconcile
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/bahariworks/procurement_backend/workflow"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "Reconciler")

	mismatches, err := workflow.RunBudgetReconciliationChecks(ctx, db, config.GetLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}
	if mismatches > 0 {
		fmt.Printf("found %d mismatches; see reconciliation_reports\n", mismatches)
		os.Exit(2)
	}
	fmt.Println("all budget aggregates match the transaction log")
}
