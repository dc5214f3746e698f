package models

import (
	"log"

	"gorm.io/gorm"
)

// MigrateTable creates or updates the ledger tables. Production schemas are
// managed outside the service; this is for local databases and tests.
func MigrateTable(db *gorm.DB) error {
	err := db.AutoMigrate(
		&AccountCategory{}, &BankAccount{},
		&Journal{}, &JournalLineItem{},
		&RunningBalance{}, &ClosingBalance{},
		&Invoice{}, &InvoiceLineItem{}, &Expense{}, &CreditNote{},
		&VatReportFiling{}, &VatPayment{},
	)
	if err != nil {
		log.Printf("failed to migrate ledger tables: %v", err)
		return err
	}
	return nil
}
