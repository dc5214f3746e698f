package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankAccount backs a BANK/CASH category. ExchangeRate is foreign units per
// one unit of base currency and is ignored when IsBaseCurrency is set.
type BankAccount struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;size:64;not null" json:"business_id"`
	Name           string          `gorm:"size:100;not null" json:"name"`
	CurrencyCode   string          `gorm:"size:3;not null" json:"currency_code"`
	IsBaseCurrency bool            `gorm:"not null" json:"is_base_currency"`
	ExchangeRate   decimal.Decimal `gorm:"type:decimal(20,6);default:1" json:"exchange_rate"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ToBankAmount converts a posting amount into the bank account's series
// amount: unchanged for base currency, otherwise amount / rate rounded
// half-up to 2 places.
func (b *BankAccount) ToBankAmount(amount decimal.Decimal) decimal.Decimal {
	if b == nil || b.IsBaseCurrency || b.ExchangeRate.IsZero() {
		return amount
	}
	return utils.RoundHalfUp(amount.Div(b.ExchangeRate), 2)
}

func GetBankAccount(ctx context.Context, db *gorm.DB, businessId string, id int) (*BankAccount, error) {
	var account BankAccount
	if err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}
