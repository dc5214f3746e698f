package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBusinessId = "biz-test"

// setupLedgerDB installs a fresh in-memory database as the global handle.
// One connection keeps the memory database alive and serializes writers.
func setupLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.MigrateTable(db))

	prev := config.GetDB()
	config.SetDB(db)
	config.SetRedisClient(nil)
	t.Cleanup(func() {
		config.SetDB(prev)
		_ = sqlDB.Close()
	})
	return db
}

func testContext() context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), testBusinessId)
	return utils.SetUserInContext(ctx, 1, "tester")
}

func createCategory(t *testing.T, db *gorm.DB, name string, chart models.ChartCategory, systemCode string) *models.AccountCategory {
	t.Helper()
	c := &models.AccountCategory{
		BusinessId:    testBusinessId,
		Name:          name,
		ChartCategory: chart,
		SystemCode:    systemCode,
	}
	require.NoError(t, models.CreateAccountCategory(context.Background(), db, c))
	return c
}

func march(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

func twoLegJournal(date time.Time, debitCategory, creditCategory int, amount int64) *models.Journal {
	return &models.Journal{
		JournalDate: date,
		Description: "test journal",
		LineItems: []models.JournalLineItem{
			{AccountCategoryId: debitCategory, DebitAmount: dec(amount)},
			{AccountCategoryId: creditCategory, CreditAmount: dec(amount)},
		},
	}
}

func closingSeries(t *testing.T, db *gorm.DB, categoryId int) []models.ClosingBalance {
	t.Helper()
	rows, err := models.GetClosingBalances(context.Background(), db, testBusinessId, categoryId)
	require.NoError(t, err)
	return rows
}

func runningBalance(t *testing.T, db *gorm.DB, categoryId int) *models.RunningBalance {
	t.Helper()
	rbs, err := models.GetRunningBalances(context.Background(), db, testBusinessId, []int{categoryId})
	require.NoError(t, err)
	return rbs[categoryId]
}
