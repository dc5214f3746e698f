package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ApplyPosting adds the line's signed amount to the category's running
// balance, then cascades the same amount through the closing balances.
// line.JournalDate must be set. Returns the new running balance.
func ApplyPosting(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, line *models.JournalLineItem, category *models.AccountCategory) (decimal.Decimal, error) {
	delta := line.SignedAmount()
	date := utils.DateOnly(line.JournalDate)

	rb, err := models.GetRunningBalanceForUpdate(ctx, tx, line.BusinessId, line.AccountCategoryId)
	if err != nil {
		config.LogError(logger, "RunningBalanceWorkflow", "ApplyPosting", "Loading running balance", line.AccountCategoryId, err)
		return decimal.Zero, fmt.Errorf("load running balance of category %d: %w", line.AccountCategoryId, err)
	}
	if rb == nil {
		rb = &models.RunningBalance{
			BusinessId:        line.BusinessId,
			AccountCategoryId: line.AccountCategoryId,
			OpeningBalance:    line.Amount(),
			RunningBalance:    delta,
			EffectiveDate:     date,
		}
		if err := tx.WithContext(ctx).Create(rb).Error; err != nil {
			config.LogError(logger, "RunningBalanceWorkflow", "ApplyPosting", "Creating running balance", rb, err)
			return decimal.Zero, fmt.Errorf("create running balance of category %d: %w", line.AccountCategoryId, err)
		}
	} else {
		rb.RunningBalance = rb.RunningBalance.Add(delta)
		if err := tx.WithContext(ctx).Model(rb).Updates(map[string]interface{}{
			"running_balance": rb.RunningBalance,
		}).Error; err != nil {
			config.LogError(logger, "RunningBalanceWorkflow", "ApplyPosting", "Updating running balance", rb, err)
			return decimal.Zero, fmt.Errorf("update running balance of category %d: %w", line.AccountCategoryId, err)
		}
	}

	posting := SnapshotPosting{
		BusinessId:        line.BusinessId,
		AccountCategoryId: line.AccountCategoryId,
		Date:              date,
		Delta:             delta,
	}
	if isBankLinked(category) {
		bankDelta, err := bankDeltaFor(ctx, tx, line, category)
		if err != nil {
			return decimal.Zero, err
		}
		posting.BankDelta = &bankDelta
	}
	if _, err := ApplyToClosingBalances(ctx, tx, logger, posting); err != nil {
		return decimal.Zero, err
	}
	return rb.RunningBalance, nil
}

func isBankLinked(category *models.AccountCategory) bool {
	return category != nil &&
		category.ChartCategory.IsBankOrCash() &&
		category.ID != config.BankSuspenseCategoryId()
}

// bankDeltaFor converts the line amount into the bank account's currency,
// keeping the sign of the ledger movement. The converted amount is stored on
// the line the first time; later calls (reversal) reuse it whatever the
// account's rate is by then.
func bankDeltaFor(ctx context.Context, tx *gorm.DB, line *models.JournalLineItem, category *models.AccountCategory) (decimal.Decimal, error) {
	var amount decimal.Decimal
	if line.BankAmount != nil {
		amount = *line.BankAmount
	} else {
		var bank *models.BankAccount
		if category.BankAccountId != nil {
			b, err := models.GetBankAccount(ctx, tx, line.BusinessId, *category.BankAccountId)
			if err != nil {
				return decimal.Zero, fmt.Errorf("bank account of category %d: %w", category.ID, err)
			}
			bank = b
		}
		amount = bank.ToBankAmount(line.Amount())
		line.BankAmount = utils.DecimalPtr(amount)
	}
	if line.SignedAmount().IsNegative() {
		amount = amount.Neg()
	}
	return amount, nil
}
