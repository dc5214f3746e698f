package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/models/reports"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/mmdatafocus/books_ledger/workflow"
	"gorm.io/gorm"
)

// closing-balance-reconcile finds snapshot series whose chain is broken
// (duplicate dates, or an opening that does not equal the previous closing)
// and, unless -dry-run is given, merges and re-chains them.
func main() {
	businessID := flag.String("business", "", "Business id to reconcile (required)")
	dryRun := flag.Bool("dry-run", false, "Only report chain breaks; do not write")
	flag.Parse()

	bid := strings.TrimSpace(*businessID)
	if bid == "" {
		fmt.Fprintln(os.Stderr, "-business is required")
		os.Exit(2)
	}

	logger := config.GetLogger()
	ctx := utils.SetBusinessIdInContext(context.Background(), bid)
	ctx = utils.SetUserInContext(ctx, 0, "ClosingBalanceReconcile")

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if !*dryRun {
		config.ConnectRedisWithRetry()
	}

	categoryIds, err := models.ClosingBalanceCategoryIds(ctx, db, bid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list categories: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	var totalBreaks, totalRemoved, totalRewritten, failed int
	for _, categoryId := range categoryIds {
		rows, err := models.GetClosingBalances(ctx, db, bid, categoryId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "category %d: failed to load snapshots: %v\n", categoryId, err)
			failed++
			continue
		}
		breaks := workflow.FindChainBreaks(rows)
		if len(breaks) == 0 {
			continue
		}
		totalBreaks += len(breaks)
		for _, b := range breaks {
			_ = enc.Encode(b)
		}
		if *dryRun {
			continue
		}

		removed, rewritten, err := reconcileCategory(ctx, db, bid, categoryId)
		if err != nil {
			config.LogError(logger, "closing-balance-reconcile", "main", "Reconciling category", categoryId, err)
			failed++
			continue
		}
		totalRemoved += removed
		totalRewritten += rewritten
		fmt.Printf("category=%d removed=%d rewritten=%d\n", categoryId, removed, rewritten)
	}

	if !*dryRun && totalRewritten > 0 {
		reports.InvalidateReportCache(logger, bid)
	}
	fmt.Printf("business=%s categories=%d breaks=%d removed=%d rewritten=%d failed=%d dry_run=%t\n",
		bid, len(categoryIds), totalBreaks, totalRemoved, totalRewritten, failed, *dryRun)
	if failed > 0 {
		os.Exit(1)
	}
}

func reconcileCategory(ctx context.Context, db *gorm.DB, businessId string, categoryId int) (removed int, rewritten int, err error) {
	logger := config.GetLogger()
	unlock, err := workflow.DefaultCategoryLocker().Lock(ctx, logger, businessId, []int{categoryId})
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release, err := workflow.AcquireCategoryPostingLocks(tx, businessId, []int{categoryId})
		if err != nil {
			return err
		}
		defer release()
		removed, rewritten, err = workflow.ReconcileCategorySnapshots(ctx, tx, logger, businessId, categoryId)
		return err
	})
	return removed, rewritten, err
}
