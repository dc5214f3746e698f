package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the VAT-relevant view of a recorded expense. Only expenses with
// VatClaimable contribute input VAT and get frozen by a filing.
type Expense struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;size:64;not null" json:"business_id"`
	ExpenseDate     time.Time       `gorm:"index;not null" json:"expense_date"`
	Description     string          `gorm:"size:255" json:"description"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	VatAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"vat_amount"`
	VatCategory     VatCategory     `gorm:"size:20;not null" json:"vat_category"`
	VatClaimable    bool            `gorm:"not null;default:false" json:"vat_claimable"`
	ExchangeRate    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:1" json:"exchange_rate"`
	IsReverseCharge bool            `gorm:"not null;default:false" json:"is_reverse_charge"`
	EditFlag        bool            `gorm:"not null" json:"edit_flag"`
	DeleteFlag      bool            `gorm:"not null;default:false" json:"delete_flag"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
