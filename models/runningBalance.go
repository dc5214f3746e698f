package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunningBalance is the single live balance row of an account category.
type RunningBalance struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"size:64;not null;uniqueIndex:idx_running_balance_category,priority:1" json:"business_id"`
	AccountCategoryId int             `gorm:"not null;uniqueIndex:idx_running_balance_category,priority:2" json:"account_category_id"`
	OpeningBalance    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"opening_balance"`
	RunningBalance    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"running_balance"`
	EffectiveDate     time.Time       `gorm:"not null" json:"effective_date"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RunningBalance) TableName() string {
	return "account_category_running_balances"
}

// GetRunningBalanceForUpdate returns the row locked for the rest of tx, or
// nil when the category has never been posted to.
func GetRunningBalanceForUpdate(ctx context.Context, tx *gorm.DB, businessId string, accountCategoryId int) (*RunningBalance, error) {
	var rb RunningBalance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND account_category_id = ?", businessId, accountCategoryId).
		First(&rb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rb, nil
}

func GetRunningBalances(ctx context.Context, db *gorm.DB, businessId string, accountCategoryIds []int) (map[int]*RunningBalance, error) {
	var rows []*RunningBalance
	if err := db.WithContext(ctx).
		Where("business_id = ? AND account_category_id IN ?", businessId, accountCategoryIds).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[int]*RunningBalance, len(rows))
	for _, r := range rows {
		result[r.AccountCategoryId] = r
	}
	return result, nil
}
