package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClosingBalance is one dated snapshot of an account category. Snapshots of a
// category form a chain: each OpeningBalance equals the previous
// snapshot's ClosingBalance.
type ClosingBalance struct {
	ID                        int              `gorm:"primary_key" json:"id"`
	BusinessId                string           `gorm:"size:64;not null;uniqueIndex:idx_closing_balance_category_date,priority:1" json:"business_id"`
	AccountCategoryId         int              `gorm:"not null;uniqueIndex:idx_closing_balance_category_date,priority:2" json:"account_category_id"`
	ClosingBalanceDate        time.Time        `gorm:"not null;uniqueIndex:idx_closing_balance_category_date,priority:3" json:"closing_balance_date"`
	OpeningBalance            decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"opening_balance"`
	ClosingBalance            decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"closing_balance"`
	BankAccountOpeningBalance *decimal.Decimal `gorm:"type:decimal(20,4)" json:"bank_account_opening_balance"`
	BankAccountClosingBalance *decimal.Decimal `gorm:"type:decimal(20,4)" json:"bank_account_closing_balance"`
	CreatedAt                 time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClosingBalance) TableName() string {
	return "account_category_closing_balances"
}

// NetMovement is the sum of the postings recorded on this snapshot's date.
func (c *ClosingBalance) NetMovement() decimal.Decimal {
	return c.ClosingBalance.Sub(c.OpeningBalance)
}

func (c *ClosingBalance) BankNetMovement() decimal.Decimal {
	if c.BankAccountClosingBalance == nil {
		return decimal.Zero
	}
	opening := decimal.Zero
	if c.BankAccountOpeningBalance != nil {
		opening = *c.BankAccountOpeningBalance
	}
	return c.BankAccountClosingBalance.Sub(opening)
}

// GetClosingBalancesForUpdate loads the whole series of a category in date
// order, locking every row for the rest of tx.
func GetClosingBalancesForUpdate(ctx context.Context, tx *gorm.DB, businessId string, accountCategoryId int) ([]ClosingBalance, error) {
	var rows []ClosingBalance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND account_category_id = ?", businessId, accountCategoryId).
		Order("closing_balance_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func GetClosingBalances(ctx context.Context, db *gorm.DB, businessId string, accountCategoryId int) ([]ClosingBalance, error) {
	var rows []ClosingBalance
	err := db.WithContext(ctx).
		Where("business_id = ? AND account_category_id = ?", businessId, accountCategoryId).
		Order("closing_balance_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// GetLatestClosingBalance returns the last snapshot dated on or before asOf,
// or nil if there is none.
func GetLatestClosingBalance(ctx context.Context, db *gorm.DB, businessId string, accountCategoryId int, asOf time.Time) (*ClosingBalance, error) {
	var rows []ClosingBalance
	if err := db.WithContext(ctx).
		Where("business_id = ? AND account_category_id = ? AND closing_balance_date <= ?", businessId, accountCategoryId, asOf).
		Order("closing_balance_date DESC, id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ClosingBalanceCategoryIds lists every category of a business that has at
// least one snapshot.
func ClosingBalanceCategoryIds(ctx context.Context, db *gorm.DB, businessId string) ([]int, error) {
	var ids []int
	err := db.WithContext(ctx).Model(&ClosingBalance{}).
		Where("business_id = ?", businessId).
		Distinct("account_category_id").
		Order("account_category_id").
		Pluck("account_category_id", &ids).Error
	return ids, err
}
