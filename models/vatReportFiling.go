package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VatReportFiling is a VAT return for one period, from draft to paid.
type VatReportFiling struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"index;size:64;not null" json:"business_id"`
	ReferenceNumber     string          `gorm:"size:64;index" json:"reference_number"`
	StartDate           time.Time       `gorm:"index;not null" json:"start_date"`
	EndDate             time.Time       `gorm:"index;not null" json:"end_date"`
	Status              VatReportStatus `gorm:"size:20;not null;index" json:"status"`
	TotalOutputVat      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_output_vat"`
	TotalInputVat       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_input_vat"`
	TotalTaxPayable     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_tax_payable"`
	TotalTaxReclaimable decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_tax_reclaimable"`
	BalanceDue          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance_due"`
	IsVatReclaimable    bool            `gorm:"not null;default:false" json:"is_vat_reclaimable"`
	TaxFiledOn          *time.Time      `json:"tax_filed_on"`
	InputVatJournalId   *int            `json:"input_vat_journal_id"`
	OutputVatJournalId  *int            `json:"output_vat_journal_id"`
	CreatedBy           int             `json:"created_by"`
	Payments            []VatPayment    `gorm:"foreignKey:VatReportFilingId" json:"payments"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type VatPayment struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"index;size:64;not null" json:"business_id"`
	VatReportFilingId int             `gorm:"index;not null" json:"vat_report_filing_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate       time.Time       `gorm:"not null" json:"payment_date"`
	BankCategoryId    int             `gorm:"not null" json:"bank_category_id"`
	JournalId         int             `gorm:"index" json:"journal_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// GetVatReportFilingForUpdate loads a filing with its payments and locks the
// filing row for the rest of tx.
func GetVatReportFilingForUpdate(ctx context.Context, tx *gorm.DB, businessId string, id int) (*VatReportFiling, error) {
	var filing VatReportFiling
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Payments").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&filing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &filing, nil
}

// GetVatReportFilingForPeriod returns the filing covering exactly
// [start, end], or nil when there is none.
func GetVatReportFilingForPeriod(ctx context.Context, db *gorm.DB, businessId string, start, end time.Time) (*VatReportFiling, error) {
	var filings []VatReportFiling
	if err := db.WithContext(ctx).
		Where("business_id = ? AND start_date = ? AND end_date = ?", businessId, start, end).
		Order("id").
		Limit(1).
		Find(&filings).Error; err != nil {
		return nil, err
	}
	if len(filings) == 0 {
		return nil, nil
	}
	return &filings[0], nil
}

// HasOverlappingVatReportFiling reports whether any filing of the business
// shares at least one day with [start, end].
func HasOverlappingVatReportFiling(ctx context.Context, db *gorm.DB, businessId string, start, end time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&VatReportFiling{}).
		Where("business_id = ? AND start_date <= ? AND end_date >= ?", businessId, end, start).
		Count(&count).Error
	return count > 0, err
}

// IsPeriodFiled reports whether a filed (or paid) return covers [start, end].
func IsPeriodFiled(ctx context.Context, db *gorm.DB, businessId string, start, end time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&VatReportFiling{}).
		Where("business_id = ? AND start_date <= ? AND end_date >= ?", businessId, start, end).
		Where("status <> ?", VatReportStatusUnFiled).
		Count(&count).Error
	return count > 0, err
}
