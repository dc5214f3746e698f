package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote covers both directions: a CREDIT_NOTE issued to a customer
// reduces output VAT, a DEBIT_NOTE from a supplier reduces input VAT.
type CreditNote struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;size:64;not null" json:"business_id"`
	Type         CreditNoteType  `gorm:"size:20;index;not null" json:"type"`
	NoteNumber   string          `gorm:"size:100" json:"note_number"`
	NoteDate     time.Time       `gorm:"index;not null" json:"note_date"`
	SubTotal     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sub_total"`
	VatAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"vat_amount"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,6);not null;default:1" json:"exchange_rate"`
	EditFlag     bool            `gorm:"not null" json:"edit_flag"`
	DeleteFlag   bool            `gorm:"not null;default:false" json:"delete_flag"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
