package reports

import (
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/shopspring/decimal"
)

// SignRule turns a stored (credit-positive) balance into the amount a
// statement displays.
type SignRule int

const (
	SignNoChange SignRule = iota
	SignNegate
)

func (r SignRule) Apply(stored decimal.Decimal) decimal.Decimal {
	if r == SignNegate {
		return stored.Neg()
	}
	return stored
}

type balanceSheetBucket string

const (
	bsCurrentAssets         balanceSheetBucket = "currentAssets"
	bsBank                  balanceSheetBucket = "bank"
	bsAccountReceivable     balanceSheetBucket = "accountReceivable"
	bsOtherCurrentAssets    balanceSheetBucket = "otherCurrentAssets"
	bsFixedAssets           balanceSheetBucket = "fixedAssets"
	bsAccountPayable        balanceSheetBucket = "accountPayable"
	bsOtherCurrentLiability balanceSheetBucket = "otherCurrentLiability"
	bsOtherLiability        balanceSheetBucket = "otherLiability"
	bsEquities              balanceSheetBucket = "equities"
	bsEarnings              balanceSheetBucket = "earnings"
)

type trialBalanceBucket string

const (
	tbAccountReceivable trialBalanceBucket = "accountReceivable"
	tbBank              trialBalanceBucket = "bank"
	tbAssets            trialBalanceBucket = "assets"
	tbFixedAsset        trialBalanceBucket = "fixedAsset"
	tbAccountPayable    trialBalanceBucket = "accountPayable"
	tbLiabilities       trialBalanceBucket = "liabilities"
	tbEquities          trialBalanceBucket = "equities"
	tbIncome            trialBalanceBucket = "income"
	tbExpense           trialBalanceBucket = "expense"
)

type cashFlowSection string

const (
	cfCash      cashFlowSection = "cash"
	cfOperating cashFlowSection = "operating"
	cfInvesting cashFlowSection = "investing"
	cfFinancing cashFlowSection = "financing"
)

type chartCategoryRule struct {
	Sign             SignRule
	BalanceSheet     balanceSheetBucket
	TrialBalance     trialBalanceBucket
	CashFlow         cashFlowSection
	RetainedEarnings bool
}

// chartCategoryTable is the only place that knows how a chart category is
// presented. Every statement builder reads from it.
var chartCategoryTable = map[models.ChartCategory]chartCategoryRule{
	models.ChartCategoryCash:                    {SignNegate, bsCurrentAssets, tbBank, cfCash, false},
	models.ChartCategoryBank:                    {SignNegate, bsBank, tbBank, cfCash, false},
	models.ChartCategoryCurrentAsset:            {SignNegate, bsCurrentAssets, tbAssets, cfOperating, false},
	models.ChartCategoryStock:                   {SignNegate, bsCurrentAssets, tbAssets, cfOperating, false},
	models.ChartCategoryOtherCurrentAsset:       {SignNegate, bsOtherCurrentAssets, tbAssets, cfOperating, false},
	models.ChartCategoryAccountsReceivable:      {SignNegate, bsAccountReceivable, tbAccountReceivable, cfOperating, false},
	models.ChartCategoryFixedAsset:              {SignNegate, bsFixedAssets, tbFixedAsset, cfInvesting, false},
	models.ChartCategoryAccountsPayable:         {SignNoChange, bsAccountPayable, tbAccountPayable, cfOperating, false},
	models.ChartCategoryOtherCurrentLiabilities: {SignNoChange, bsOtherCurrentLiability, tbLiabilities, cfOperating, false},
	models.ChartCategoryOtherLiability:          {SignNoChange, bsOtherLiability, tbLiabilities, cfOperating, false},
	models.ChartCategoryEquity:                  {SignNoChange, bsEquities, tbEquities, cfFinancing, false},
	models.ChartCategoryIncome:                  {SignNoChange, bsEarnings, tbIncome, cfOperating, true},
	models.ChartCategoryAdminExpense:            {SignNegate, bsEarnings, tbExpense, cfOperating, true},
	models.ChartCategoryOtherExpense:            {SignNegate, bsEarnings, tbExpense, cfOperating, true},
	models.ChartCategoryCostOfGoodsSold:         {SignNegate, bsEarnings, tbExpense, cfOperating, true},
}

func ruleFor(c models.ChartCategory) (chartCategoryRule, bool) {
	r, ok := chartCategoryTable[c]
	return r, ok
}

// DisplayAmount applies the category's sign rule to a stored balance.
func DisplayAmount(c models.ChartCategory, stored decimal.Decimal) decimal.Decimal {
	r, ok := ruleFor(c)
	if !ok {
		return stored
	}
	return r.Sign.Apply(stored)
}

// chartCategoriesWhere lists the chart categories whose rule matches, in
// the catalog's fixed order.
func chartCategoriesWhere(match func(chartCategoryRule) bool) []models.ChartCategory {
	var out []models.ChartCategory
	for _, c := range models.AllChartCategories {
		if r, ok := ruleFor(c); ok && match(r) {
			out = append(out, c)
		}
	}
	return out
}

func allRules(chartCategoryRule) bool { return true }

func profitAndLossRules(r chartCategoryRule) bool { return r.RetainedEarnings }

func cashRules(r chartCategoryRule) bool { return r.CashFlow == cfCash }

func nonCashRules(r chartCategoryRule) bool { return r.CashFlow != cfCash }
