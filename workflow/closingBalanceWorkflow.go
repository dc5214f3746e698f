package workflow

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSnapshotConflict means another writer inserted the same (category, date)
// snapshot first. The whole posting is rolled back and can be retried.
var ErrSnapshotConflict = errors.New("closing balance snapshot was created concurrently")

const mysqlErrDuplicateEntry = 1062

// ApplyToClosingBalances runs the cascade for one posting against the
// category's stored series and writes every changed row in tx.
func ApplyToClosingBalances(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, p SnapshotPosting) (*models.ClosingBalance, error) {
	rows, err := models.GetClosingBalancesForUpdate(ctx, tx, p.BusinessId, p.AccountCategoryId)
	if err != nil {
		config.LogError(logger, "ClosingBalanceWorkflow", "ApplyToClosingBalances", "Loading closing balances", p, err)
		return nil, fmt.Errorf("load closing balances of category %d: %w", p.AccountCategoryId, err)
	}

	if hasDuplicateDates(rows) {
		rows, err = mergeDuplicateSnapshots(ctx, tx, logger, rows)
		if err != nil {
			return nil, err
		}
	}

	result := Cascade(rows, p)
	for i := range result.Rows {
		if err := saveSnapshot(ctx, tx, &result.Rows[i]); err != nil {
			config.LogError(logger, "ClosingBalanceWorkflow", "ApplyToClosingBalances", "Saving closing balance", result.Rows[i], err)
			return nil, err
		}
	}
	target := result.Target()
	return &target, nil
}

// mergeDuplicateSnapshots collapses same-date rows in place and returns the
// surviving series.
func mergeDuplicateSnapshots(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, rows []models.ClosingBalance) ([]models.ClosingBalance, error) {
	merged, removedIds := ReconcileSnapshots(rows)
	if len(removedIds) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", removedIds).Delete(&models.ClosingBalance{}).Error; err != nil {
			config.LogError(logger, "ClosingBalanceWorkflow", "mergeDuplicateSnapshots", "Deleting duplicate snapshots", removedIds, err)
			return nil, err
		}
	}
	for i := range merged {
		if err := tx.WithContext(ctx).Save(&merged[i]).Error; err != nil {
			config.LogError(logger, "ClosingBalanceWorkflow", "mergeDuplicateSnapshots", "Saving merged snapshot", merged[i], err)
			return nil, err
		}
	}
	logger.WithFields(logrus.Fields{
		"field":       "mergeDuplicateSnapshots",
		"removed_ids": removedIds,
	}).Warn("merged duplicate closing balance snapshots")
	return merged, nil
}

func saveSnapshot(ctx context.Context, tx *gorm.DB, row *models.ClosingBalance) error {
	if row.ID != 0 {
		return tx.WithContext(ctx).Save(row).Error
	}
	err := tx.WithContext(ctx).Create(row).Error
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		return fmt.Errorf("category %d on %s: %w", row.AccountCategoryId, utils.FormatReportDate(row.ClosingBalanceDate), ErrSnapshotConflict)
	}
	return err
}

func hasDuplicateDates(rows []models.ClosingBalance) bool {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		k := utils.DateOnly(r.ClosingBalanceDate).Format("2006-01-02")
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

// ReconcileCategorySnapshots merges duplicate snapshots of one category and
// re-chains its series. It returns the number of rows removed and rewritten.
func ReconcileCategorySnapshots(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, businessId string, categoryId int) (removed int, rewritten int, err error) {
	rows, err := models.GetClosingBalancesForUpdate(ctx, tx, businessId, categoryId)
	if err != nil {
		return 0, 0, err
	}
	if len(FindChainBreaks(rows)) == 0 {
		return 0, 0, nil
	}
	merged, err := mergeDuplicateSnapshots(ctx, tx, logger, rows)
	if err != nil {
		return 0, 0, err
	}
	return len(rows) - len(merged), len(merged), nil
}
