package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Journal is a double-entry posting. Journals are never hard-deleted; a
// deletion sets DeleteFlag on the journal and its lines and reverses their
// balance effect.
type Journal struct {
	ID            int               `gorm:"primary_key" json:"id"`
	BusinessId    string            `gorm:"index;size:64;not null;index:idx_journal_biz_ref,priority:1" json:"business_id" validate:"required"`
	JournalDate   time.Time         `gorm:"index;not null" json:"journal_date" validate:"required"`
	ReferenceType ReferenceType     `gorm:"size:30;index:idx_journal_biz_ref,priority:2" json:"reference_type" validate:"required"`
	ReferenceId   int               `gorm:"index:idx_journal_biz_ref,priority:3" json:"reference_id"`
	Description   string            `gorm:"type:text" json:"description"`
	CreatedBy     int               `json:"created_by"`
	DeleteFlag    bool              `gorm:"not null;default:false;index" json:"delete_flag"`
	DeletedAt     *time.Time        `json:"deleted_at"`
	LineItems     []JournalLineItem `gorm:"foreignKey:JournalId" json:"line_items" validate:"required,min=1,dive"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// JournalLineItem is one leg of a journal: exactly one of DebitAmount and
// CreditAmount is positive. CurrentBalance is the category's running balance
// right after this line was applied.
type JournalLineItem struct {
	ID                int             `gorm:"primary_key" json:"id"`
	JournalId         int             `gorm:"index;not null" json:"journal_id"`
	BusinessId        string          `gorm:"index;size:64;not null" json:"business_id"`
	AccountCategoryId int             `gorm:"index;not null" json:"account_category_id" validate:"required,gt=0"`
	Description       string          `gorm:"size:255" json:"description"`
	DebitAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit_amount"`
	CreditAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_amount"`
	ExchangeRate      decimal.Decimal `gorm:"type:decimal(20,6);not null;default:1" json:"exchange_rate"`
	ReferenceType     ReferenceType   `gorm:"size:30" json:"reference_type"`
	ReferenceId       int             `json:"reference_id"`
	DeleteFlag        bool            `gorm:"not null;default:false" json:"delete_flag"`
	CreatedBy         int             `json:"created_by"`
	CurrentBalance    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// BankAmount is the unsigned amount in the linked bank account's currency,
	// fixed at posting so a reversal takes out exactly what was put in.
	BankAmount *decimal.Decimal `gorm:"type:decimal(20,4)" json:"bank_amount,omitempty"`

	// JournalDate is carried from the parent when the line is posted.
	JournalDate time.Time `gorm:"-" json:"-"`
}

// Amount is the unsigned amount of whichever side is set.
func (l *JournalLineItem) Amount() decimal.Decimal {
	if l.CreditAmount.IsPositive() {
		return l.CreditAmount
	}
	return l.DebitAmount
}

// SignedAmount is the line's effect on a balance: credits add, debits
// subtract, and a deleted line has the opposite effect.
func (l *JournalLineItem) SignedAmount() decimal.Decimal {
	amount := l.CreditAmount.Sub(l.DebitAmount)
	if l.DeleteFlag {
		return amount.Neg()
	}
	return amount
}

func (l *JournalLineItem) Validate(index int) error {
	field := fmt.Sprintf("LineItems[%d]", index)
	if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
		return utils.NewValidationError(field, "amounts must not be negative")
	}
	hasDebit := l.DebitAmount.IsPositive()
	hasCredit := l.CreditAmount.IsPositive()
	if hasDebit == hasCredit {
		return utils.NewValidationError(field, "exactly one of debit and credit must be set")
	}
	return nil
}

// Validate checks the journal before anything is persisted.
func (j *Journal) Validate() error {
	if err := utils.ValidateStruct(j); err != nil {
		return err
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i := range j.LineItems {
		if err := j.LineItems[i].Validate(i); err != nil {
			return err
		}
		totalDebit = totalDebit.Add(j.LineItems[i].DebitAmount)
		totalCredit = totalCredit.Add(j.LineItems[i].CreditAmount)
	}
	if !totalDebit.Equal(totalCredit) {
		return utils.NewValidationError("LineItems", "debit total %s does not equal credit total %s", totalDebit.String(), totalCredit.String())
	}
	return nil
}

func (j *Journal) AccountCategoryIds() []int {
	ids := make([]int, 0, len(j.LineItems))
	for _, l := range j.LineItems {
		ids = append(ids, l.AccountCategoryId)
	}
	return utils.SortedUnique(ids)
}

func (j *Journal) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: journals are soft-deleted, not removed")
}

func (l *JournalLineItem) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: journal line items are soft-deleted, not removed")
}

func (l *JournalLineItem) BeforeUpdate(tx *gorm.DB) error {
	// Only the soft-delete flag and the stamped balance may change after posting.
	allowed := map[string]bool{
		"DeleteFlag":     true,
		"CurrentBalance": true,
		"BankAmount":     true,
		"UpdatedAt":      true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("immutable ledger: only delete_flag, current_balance and bank_amount may be updated on journal_line_items")
		}
	}
	return nil
}

// CreateJournal inserts the journal and its line items. Balances are not
// touched here.
func CreateJournal(ctx context.Context, tx *gorm.DB, journal *Journal) error {
	if err := tx.WithContext(ctx).Create(journal).Error; err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	return nil
}

func GetJournals(ctx context.Context, db *gorm.DB, businessId string, ids []int) ([]*Journal, error) {
	var journals []*Journal
	if err := db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("business_id = ? AND id IN ?", businessId, utils.SortedUnique(ids)).
		Order("id").
		Find(&journals).Error; err != nil {
		return nil, err
	}
	return journals, nil
}

func GetJournal(ctx context.Context, db *gorm.DB, businessId string, id int) (*Journal, error) {
	journals, err := GetJournals(ctx, db, businessId, []int{id})
	if err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return journals[0], nil
}
