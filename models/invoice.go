package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the VAT-relevant view of a sales (CUSTOMER) or purchase
// (SUPPLIER) invoice. EditFlag is false while a filed VAT return covers it.
type Invoice struct {
	ID              int               `gorm:"primary_key" json:"id"`
	BusinessId      string            `gorm:"index;size:64;not null" json:"business_id"`
	Type            InvoiceType       `gorm:"size:20;index;not null" json:"type"`
	InvoiceNumber   string            `gorm:"size:100" json:"invoice_number"`
	InvoiceDate     time.Time         `gorm:"index;not null" json:"invoice_date"`
	PlaceOfSupply   PlaceOfSupply     `gorm:"index" json:"place_of_supply"`
	ExchangeRate    decimal.Decimal   `gorm:"type:decimal(20,6);not null;default:1" json:"exchange_rate"`
	Status          InvoiceStatus     `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	IsReverseCharge bool              `gorm:"not null;default:false" json:"is_reverse_charge"`
	EditFlag        bool              `gorm:"not null" json:"edit_flag"`
	DeleteFlag      bool              `gorm:"not null;default:false" json:"delete_flag"`
	LineItems       []InvoiceLineItem `gorm:"foreignKey:InvoiceId" json:"line_items"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLineItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Description string          `gorm:"size:255" json:"description"`
	SubTotal    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sub_total"`
	VatAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"vat_amount"`
	VatCategory VatCategory     `gorm:"size:20;not null" json:"vat_category"`
}
