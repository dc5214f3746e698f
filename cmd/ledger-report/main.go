package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models/reports"
	"github.com/mmdatafocus/books_ledger/utils"
)

// ledger-report builds one statement for a business and prints it as JSON,
// or writes it to an .xlsx file when -xlsx is given.
func main() {
	businessID := flag.String("business", "", "Business id (required)")
	reportType := flag.String("type", "BalanceSheet", "BalanceSheet, ProfitLoss, TrialBalance, CashFlow or VatReturn")
	start := flag.String("start", "", "Start date (dd/MM/yyyy)")
	end := flag.String("end", "", "End date (dd/MM/yyyy)")
	xlsx := flag.String("xlsx", "", "Optional: write the report to this .xlsx path instead of stdout")
	flag.Parse()

	bid := strings.TrimSpace(*businessID)
	if bid == "" {
		fmt.Fprintln(os.Stderr, "-business is required")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), bid)
	report, err := reports.BuildReport(ctx, *reportType, *start, *end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build report: %v\n", err)
		os.Exit(1)
	}

	if path := strings.TrimSpace(*xlsx); path != "" {
		f, err := reports.ExportReportToExcel(report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export report: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := f.SaveAs(path); err != nil {
			fmt.Fprintf(os.Stderr, "save %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", path)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		os.Exit(1)
	}
}
