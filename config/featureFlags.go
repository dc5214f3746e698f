package config

import (
	"os"
	"strings"
)

const defaultBankSuspenseCategoryId = 46

// BankSuspenseCategoryId is the BANK/CASH category that never keeps a
// bank-account series (the internal clearing account).
//
// Set via env:
// - BANK_SUSPENSE_CATEGORY_ID=46
func BankSuspenseCategoryId() int {
	return intFromEnv("BANK_SUSPENSE_CATEGORY_ID", defaultBankSuspenseCategoryId)
}

// StrictBalanceCheck turns a balance sheet or trial balance mismatch into a
// request error instead of a flagged report.
//
// Set via env:
// - STRICT_BALANCE_CHECK=true
func StrictBalanceCheck() bool {
	return boolFromEnv("STRICT_BALANCE_CHECK")
}

// DistributedCategoryLock adds a Redis lock on top of the in-process
// category mutex so several instances can post to the same books.
//
// Set via env:
// - LEDGER_DISTRIBUTED_LOCK=true
func DistributedCategoryLock() bool {
	return boolFromEnv("LEDGER_DISTRIBUTED_LOCK")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
