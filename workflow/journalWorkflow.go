package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/models/reports"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var decimalOne = decimal.NewFromInt(1)

// PostJournal validates and stores a journal, then applies every line to the
// running balances and closing balance series of its categories. All of it
// commits or rolls back together.
func PostJournal(ctx context.Context, logger *logrus.Logger, journal *models.Journal) (*models.Journal, error) {
	if err := prepareJournal(ctx, journal); err != nil {
		return nil, err
	}
	db := config.GetDB()

	unlock, err := DefaultCategoryLocker().Lock(ctx, logger, journal.BusinessId, journal.AccountCategoryIds())
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release, err := AcquireCategoryPostingLocks(tx, journal.BusinessId, journal.AccountCategoryIds())
		if err != nil {
			return err
		}
		defer release()
		return postJournalTx(ctx, tx, logger, journal)
	})
	if err != nil {
		config.LogError(logger, "JournalWorkflow", "PostJournal", "Posting journal", journal, err)
		return nil, err
	}
	reports.InvalidateReportCache(logger, journal.BusinessId)
	return journal, nil
}

// prepareJournal fills tenant and audit fields from ctx and validates.
func prepareJournal(ctx context.Context, journal *models.Journal) error {
	if journal == nil {
		return utils.NewValidationError("Journal", "journal is required")
	}
	if journal.BusinessId == "" {
		businessId, ok := utils.GetBusinessIdFromContext(ctx)
		if !ok || businessId == "" {
			return errors.New("business id is required")
		}
		journal.BusinessId = businessId
	}
	if journal.CreatedBy == 0 {
		journal.CreatedBy, _ = utils.GetUserIdFromContext(ctx)
	}
	if journal.ReferenceType == "" {
		journal.ReferenceType = models.ReferenceTypeManual
	}
	journal.JournalDate = utils.DateOnly(journal.JournalDate)
	return journal.Validate()
}

// postJournalTx expects the categories of journal to be locked already.
func postJournalTx(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, journal *models.Journal) error {
	categories, err := models.GetAccountCategories(ctx, tx, journal.BusinessId, journal.AccountCategoryIds())
	if err != nil {
		return err
	}

	journal.ID = 0
	journal.DeleteFlag = false
	journal.DeletedAt = nil
	for i := range journal.LineItems {
		line := &journal.LineItems[i]
		line.ID = 0
		line.BusinessId = journal.BusinessId
		line.ReferenceType = journal.ReferenceType
		line.ReferenceId = journal.ReferenceId
		line.CreatedBy = journal.CreatedBy
		line.DeleteFlag = false
		line.BankAmount = nil
		if line.ExchangeRate.IsZero() {
			line.ExchangeRate = decimalOne
		}
	}
	if err := models.CreateJournal(ctx, tx, journal); err != nil {
		return err
	}

	for i := range journal.LineItems {
		line := &journal.LineItems[i]
		line.JournalDate = journal.JournalDate
		balance, err := ApplyPosting(ctx, tx, logger, line, categories[line.AccountCategoryId])
		if err != nil {
			return fmt.Errorf("apply line %d of journal %d: %w", i, journal.ID, err)
		}
		line.CurrentBalance = balance
		if err := tx.WithContext(ctx).Model(line).Updates(map[string]interface{}{
			"current_balance": balance,
			"bank_amount":     line.BankAmount,
		}).Error; err != nil {
			return fmt.Errorf("stamp balance on line %d: %w", line.ID, err)
		}
	}
	return nil
}

// ReverseJournals soft-deletes the given journals and takes their effect
// back out of every balance. Journals already deleted are skipped, so
// calling it twice is harmless. Returns the ids that were reversed now.
func ReverseJournals(ctx context.Context, logger *logrus.Logger, journalIds []int) ([]int, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	ids := utils.SortedUnique(journalIds)
	if len(ids) == 0 {
		return nil, utils.NewValidationError("JournalIds", "at least one journal id is required")
	}
	db := config.GetDB()

	journals, err := models.GetJournals(ctx, db, businessId, ids)
	if err != nil {
		return nil, err
	}
	if len(journals) != len(ids) {
		return nil, fmt.Errorf("journals %v: %w", ids, utils.ErrorRecordNotFound)
	}
	var categoryIds []int
	for _, j := range journals {
		categoryIds = append(categoryIds, j.AccountCategoryIds()...)
	}

	unlock, err := DefaultCategoryLocker().Lock(ctx, logger, businessId, categoryIds)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var reversed []int
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release, err := AcquireCategoryPostingLocks(tx, businessId, categoryIds)
		if err != nil {
			return err
		}
		defer release()
		reversed, err = reverseJournalsTx(ctx, tx, logger, businessId, ids)
		return err
	})
	if err != nil {
		config.LogError(logger, "JournalWorkflow", "ReverseJournals", "Reversing journals", ids, err)
		return nil, err
	}
	if len(reversed) > 0 {
		reports.InvalidateReportCache(logger, businessId)
	}
	return reversed, nil
}

// reverseJournalsTx expects the journals' categories to be locked already.
func reverseJournalsTx(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, businessId string, ids []int) ([]int, error) {
	// re-read inside tx so a concurrent reversal is seen
	journals, err := models.GetJournals(ctx, tx, businessId, ids)
	if err != nil {
		return nil, err
	}
	var categoryIds []int
	for _, j := range journals {
		categoryIds = append(categoryIds, j.AccountCategoryIds()...)
	}
	categories, err := models.GetAccountCategories(ctx, tx, businessId, categoryIds)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var reversed []int
	for _, j := range journals {
		if j.DeleteFlag {
			continue
		}
		for i := range j.LineItems {
			line := &j.LineItems[i]
			if line.DeleteFlag {
				continue
			}
			if err := tx.WithContext(ctx).Model(line).Update("delete_flag", true).Error; err != nil {
				return nil, fmt.Errorf("flag line %d: %w", line.ID, err)
			}
			line.DeleteFlag = true
			line.JournalDate = j.JournalDate
			if _, err := ApplyPosting(ctx, tx, logger, line, categories[line.AccountCategoryId]); err != nil {
				return nil, fmt.Errorf("reverse line %d of journal %d: %w", line.ID, j.ID, err)
			}
		}
		if err := tx.WithContext(ctx).Model(&models.Journal{}).
			Where("id = ?", j.ID).
			Updates(map[string]interface{}{
				"delete_flag": true,
				"deleted_at":  &now,
			}).Error; err != nil {
			return nil, fmt.Errorf("flag journal %d: %w", j.ID, err)
		}
		reversed = append(reversed, j.ID)
	}
	return reversed, nil
}
