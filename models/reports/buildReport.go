package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ErrUnbalancedReport is returned instead of an out-of-balance statement
// when STRICT_BALANCE_CHECK is on.
var ErrUnbalancedReport = errors.New("report is out of balance")

var (
	reportBuildGroup singleflight.Group
	tracer           = otel.Tracer("github.com/mmdatafocus/books_ledger/models/reports")
)

// BuildReport builds one statement for the business in ctx. Dates are
// dd/MM/yyyy.
func BuildReport(ctx context.Context, reportType string, startDate string, endDate string) (Report, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	rt, err := ParseReportType(reportType)
	if err != nil {
		return nil, err
	}
	period, err := ParseReportPeriod(startDate, endDate)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "reports.BuildReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("report.type", string(rt)),
		attribute.String("report.business_id", businessId),
		attribute.String("report.start", startDate),
		attribute.String("report.end", endDate),
	)

	started := time.Now()
	defer logSlowReport(ctx, string(rt), started, map[string]any{"start": startDate, "end": endDate})

	logger := config.GetLogger()
	key := reportCacheKey(businessId, rt, period)
	useCache := reportCacheEnabled()
	if useCache {
		cached := newReport(rt)
		exists, err := cacheGet(key, cached)
		if err != nil {
			config.LogError(logger, "BuildReport", "BuildReport", "Reading report cache", key, err)
		} else if exists {
			span.SetAttributes(attribute.Bool("report.cache_hit", true))
			return checkBalance(logger, cached)
		}
	}

	report, err, shared := singleflightBuild(ctx, key, func(ctx context.Context) (Report, error) {
		return buildReport(ctx, config.GetDB(), logger, businessId, rt, period)
	})
	span.SetAttributes(attribute.Bool("report.shared", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if useCache {
		if err := cacheSet(key, report, reportCacheTTL()); err != nil {
			config.LogError(logger, "BuildReport", "BuildReport", "Writing report cache", key, err)
		}
	}
	return checkBalance(logger, report)
}

// singleflightBuild shares one build between callers of the same key. The
// build keeps ctx's values but not its cancellation, so a caller giving up
// does not fail the others waiting on it.
func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (Report, error)) (Report, error, bool) {
	buildCtx := context.WithoutCancel(ctx)
	resultChan := reportBuildGroup.DoChan(key, func() (interface{}, error) {
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err, res.Shared
		}
		return res.Val.(Report), nil, res.Shared
	}
}

func checkBalance(logger *logrus.Logger, report Report) (Report, error) {
	bc, ok := report.(balanceChecker)
	if !ok {
		return report, nil
	}
	if balanced, _ := bc.balanced(); !balanced && config.StrictBalanceCheck() {
		return nil, fmt.Errorf("%s %s-%s: %w", report.Header().ReportType, report.Header().StartDate, report.Header().EndDate, ErrUnbalancedReport)
	}
	return report, nil
}

func buildReport(ctx context.Context, db *gorm.DB, logger *logrus.Logger, businessId string, rt ReportType, period ReportPeriod) (Report, error) {
	switch rt {
	case ReportTypeBalanceSheet:
		rows, err := fetchCategorySnapshots(ctx, db, businessId, chartCategoriesWhere(allRules), nil, period.End)
		if err != nil {
			return nil, err
		}
		r := BuildBalanceSheet(period, rows)
		if !r.IsBalanced {
			config.LogError(logger, "BalanceSheetReport", "BuildBalanceSheet", "Balance sheet out of balance", map[string]any{
				"business_id":            businessId,
				"totalAssets":            r.TotalAssets,
				"totalLiabilityEquities": r.TotalLiabilityEquities,
			}, fmt.Errorf("difference %s", r.Difference))
		}
		return r, nil

	case ReportTypeProfitLoss:
		rows, err := fetchCategorySnapshots(ctx, db, businessId, chartCategoriesWhere(profitAndLossRules), &period.Start, period.End)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(period, rows), nil

	case ReportTypeTrialBalance:
		rows, err := fetchCategorySnapshots(ctx, db, businessId, chartCategoriesWhere(allRules), nil, period.End)
		if err != nil {
			return nil, err
		}
		r := BuildTrialBalance(period, rows)
		if !r.IsBalanced {
			config.LogError(logger, "TrialBalanceReport", "BuildTrialBalance", "Trial balance out of balance", map[string]any{
				"business_id": businessId,
				"totalDebit":  r.TotalDebit,
				"totalCredit": r.TotalCredit,
			}, fmt.Errorf("difference %s", r.Difference))
		}
		return r, nil

	case ReportTypeCashFlow:
		return buildCashFlow(ctx, db, logger, businessId, period), nil

	case ReportTypeVatReturn:
		return ComputeVatReturn(ctx, db, businessId, period)
	}
	return nil, utils.NewValidationError("reportType", "unknown report type %q", rt)
}

// buildCashFlow never fails: a sub-query error leaves its part at zero and
// is reported in Warnings.
func buildCashFlow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, businessId string, period ReportPeriod) *CashFlowReport {
	var warnings []string

	openingDate := utils.EndOfPreviousMonth(period.Start)
	opening, err := fetchCategorySnapshots(ctx, db, businessId, chartCategoriesWhere(cashRules), nil, openingDate)
	if err != nil {
		config.LogError(logger, "CashFlowReport", "buildCashFlow", "Loading starting balance", businessId, err)
		warnings = append(warnings, "startingBalance")
		opening = nil
	}

	window, err := fetchCategorySnapshots(ctx, db, businessId, chartCategoriesWhere(nonCashRules), &period.Start, period.End)
	if err != nil {
		config.LogError(logger, "CashFlowReport", "buildCashFlow", "Loading period movements", businessId, err)
		warnings = append(warnings, "movements")
		window = nil
	}
	return BuildCashFlow(period, opening, window, warnings)
}
