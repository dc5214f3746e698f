package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBusinessId = "biz-reports"

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func setupReportDB(t *testing.T) *gorm.DB {
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

func setupReportCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	config.SetRedisClient(client)
	t.Cleanup(func() {
		config.SetRedisClient(nil)
		_ = client.Close()
	})
	t.Setenv("ENABLE_REPORT_CACHE", "true")
	return mr
}

// seedLedgerBook writes ledgerBook as categories and closing balance rows.
func seedLedgerBook(t *testing.T, db *gorm.DB) map[string]int {
	t.Helper()
	ids := map[string]int{}
	for _, s := range ledgerBook {
		id, ok := ids[s.name]
		if !ok {
			c := &models.AccountCategory{
				BusinessId:    testBusinessId,
				Name:          s.name,
				ChartCategory: s.chart,
				SystemCode:    s.system,
			}
			require.NoError(t, db.Create(c).Error)
			id = c.ID
			ids[s.name] = id
		}
		require.NoError(t, db.Create(&models.ClosingBalance{
			BusinessId:         testBusinessId,
			AccountCategoryId:  id,
			ClosingBalanceDate: s.date,
			OpeningBalance:     dec(s.opening),
			ClosingBalance:     dec(s.closing),
		}).Error)
	}
	return ids
}

func reportContext() context.Context {
	return utils.SetBusinessIdInContext(context.Background(), testBusinessId)
}

func TestBuildReport_FromStoredSnapshots(t *testing.T) {
	db := setupReportDB(t)
	seedLedgerBook(t, db)
	ctx := reportContext()

	got, err := BuildReport(ctx, "balance-sheet", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	bs, ok := got.(*BalanceSheetReport)
	require.True(t, ok)
	assert.True(t, bs.IsBalanced)
	assertDecimal(t, dec(15500), bs.TotalAssets)
	assertDecimal(t, dec(10500), bs.Bank["Bank"])
	assertDecimal(t, dec(1000), bs.Equities[RetainedEarnings])

	got, err = BuildReport(ctx, "ProfitLoss", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	pl := got.(*ProfitAndLossReport)
	assertDecimal(t, dec(2500), pl.NetProfitLoss)
	assert.NotContains(t, pl.NonOperatingIncome, "Consulting")

	got, err = BuildReport(ctx, "trial_balance", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	tb := got.(*TrialBalanceReport)
	assert.True(t, tb.IsBalanced)
	assertDecimal(t, dec(16500), tb.TotalDebit)

	got, err = BuildReport(ctx, "cashflow", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	cf := got.(*CashFlowReport)
	assertDecimal(t, dec(1000), cf.StartingBalance)
	assertDecimal(t, dec(10500), cf.EndingBalance)
	assert.Empty(t, cf.Warnings)
}

func TestBuildReport_BalanceSheetAsOfEarlierDate(t *testing.T) {
	db := setupReportDB(t)
	seedLedgerBook(t, db)

	got, err := BuildReport(reportContext(), "BalanceSheet", "01/02/2024", "29/02/2024")
	require.NoError(t, err)
	bs := got.(*BalanceSheetReport)

	assertDecimal(t, dec(1000), bs.Bank["Bank"])
	assertDecimal(t, dec(1000), bs.Equities[CurrentEarnings])
	assert.NotContains(t, bs.Equities, "Owner Capital")
	assert.True(t, bs.IsBalanced)
}

func TestBuildReport_EmptyVatReturn(t *testing.T) {
	setupReportDB(t)

	got, err := BuildReport(reportContext(), "VatReturn", "01/01/2024", "31/01/2024")
	require.NoError(t, err)
	vat := got.(*VatReturnReport)

	assert.Len(t, vat.StandardRatedSales, len(models.AllPlacesOfSupply))
	assert.True(t, vat.TotalOutputVat.IsZero())
	assert.True(t, vat.NetVatPayableOrReclaimable.IsZero())
	assert.False(t, vat.IsFiledPeriod)
}

func TestBuildReport_RejectsBadInput(t *testing.T) {
	setupReportDB(t)
	ctx := reportContext()

	tests := []struct {
		name       string
		reportType string
		start, end string
	}{
		{"unknown type", "GeneralLedger", "01/03/2024", "31/03/2024"},
		{"malformed start", "BalanceSheet", "2024-03-01", "31/03/2024"},
		{"empty end", "BalanceSheet", "01/03/2024", ""},
		{"start after end", "BalanceSheet", "31/03/2024", "01/03/2024"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildReport(ctx, tc.reportType, tc.start, tc.end)
			require.Error(t, err)
			assert.True(t, utils.IsValidationError(err), "got %v", err)
		})
	}

	_, err := BuildReport(context.Background(), "BalanceSheet", "01/03/2024", "31/03/2024")
	assert.Error(t, err)
}

func TestBuildReport_CacheHitAndInvalidation(t *testing.T) {
	db := setupReportDB(t)
	ids := seedLedgerBook(t, db)
	mr := setupReportCache(t)
	ctx := reportContext()
	period, err := ParseReportPeriod("01/03/2024", "31/03/2024")
	require.NoError(t, err)
	key := reportCacheKey(testBusinessId, ReportTypeBalanceSheet, period)

	first, err := BuildReport(ctx, "BalanceSheet", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	require.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 120*time.Second)

	// a posting written behind the cache's back
	require.NoError(t, db.Create(&models.ClosingBalance{
		BusinessId:         testBusinessId,
		AccountCategoryId:  ids["Bank"],
		ClosingBalanceDate: day(time.March, 25),
		OpeningBalance:     dec(-10500),
		ClosingBalance:     dec(-10400),
	}).Error)

	cached, err := BuildReport(ctx, "BalanceSheet", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	assertDecimal(t, first.(*BalanceSheetReport).TotalAssets, cached.(*BalanceSheetReport).TotalAssets)

	InvalidateReportCache(testLogger(), testBusinessId)
	assert.False(t, mr.Exists(key))

	fresh, err := BuildReport(ctx, "BalanceSheet", "01/03/2024", "31/03/2024")
	require.NoError(t, err)
	assertDecimal(t, dec(10400), fresh.(*BalanceSheetReport).Bank["Bank"])
	assert.False(t, fresh.(*BalanceSheetReport).IsBalanced)
}

func TestInvalidateReportCache_OnlyTouchesOneBusiness(t *testing.T) {
	mr := setupReportCache(t)
	require.NoError(t, mr.Set("Report:"+testBusinessId+":BalanceSheet:2024-03-01:2024-03-31", "{}"))
	require.NoError(t, mr.Set("Report:other-biz:BalanceSheet:2024-03-01:2024-03-31", "{}"))

	InvalidateReportCache(testLogger(), testBusinessId)

	assert.False(t, mr.Exists("Report:"+testBusinessId+":BalanceSheet:2024-03-01:2024-03-31"))
	assert.True(t, mr.Exists("Report:other-biz:BalanceSheet:2024-03-01:2024-03-31"))
}

func TestParseReportType(t *testing.T) {
	tests := map[string]ReportType{
		"BalanceSheet":  ReportTypeBalanceSheet,
		"balance-sheet": ReportTypeBalanceSheet,
		"PROFIT_LOSS":   ReportTypeProfitLoss,
		"trial balance": ReportTypeTrialBalance,
		" cashflow ":    ReportTypeCashFlow,
		"vatreturn":     ReportTypeVatReturn,
	}
	for in, want := range tests {
		got, err := ParseReportType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseReportType("ledger")
	assert.True(t, utils.IsValidationError(err))
}

func TestParseReportPeriod(t *testing.T) {
	p, err := ParseReportPeriod("01/03/2024", "31/03/2024")
	require.NoError(t, err)
	assert.True(t, p.Start.Equal(day(time.March, 1)))
	assert.True(t, p.End.Equal(day(time.March, 31)))
	assert.True(t, p.EndExclusive().Equal(day(time.April, 1)))

	same, err := ParseReportPeriod("15/03/2024", "15/03/2024")
	require.NoError(t, err)
	assert.True(t, same.Start.Equal(same.End))

	_, err = ParseReportPeriod("32/03/2024", "31/03/2024")
	assert.True(t, utils.IsValidationError(err))
}

func TestSingleflightBuild_CallerCancelLeavesBuildRunning(t *testing.T) {
	key := "test:" + t.Name()
	callerCtx, cancel := context.WithCancel(reportContext())
	buildCtx := make(chan context.Context, 1)
	release := make(chan struct{})
	callerErr := make(chan error, 1)

	go func() {
		_, err, _ := singleflightBuild(callerCtx, key, func(ctx context.Context) (Report, error) {
			buildCtx <- ctx
			<-release
			return BuildProfitAndLoss(march(), nil), nil
		})
		callerErr <- err
	}()

	inner := <-buildCtx
	cancel()
	require.ErrorIs(t, <-callerErr, context.Canceled)
	assert.NoError(t, inner.Err())
	businessId, ok := utils.GetBusinessIdFromContext(inner)
	assert.True(t, ok)
	assert.Equal(t, testBusinessId, businessId)
	close(release)

	got, err, _ := singleflightBuild(reportContext(), key, func(ctx context.Context) (Report, error) {
		return BuildProfitAndLoss(march(), nil), nil
	})
	require.NoError(t, err)
	assert.Equal(t, ReportTypeProfitLoss, got.Header().ReportType)
}
