package reports

import (
	"fmt"

	"github.com/mmdatafocus/books_ledger/models"
	"github.com/shopspring/decimal"
)

const (
	OpeningBalanceEquityOffset = "OPENING_BALANCE_EQUITY_OFFSET"
	RetainedEarnings           = "RETAINED_EARNINGS"
	CurrentEarnings            = "Earnings"
)

type BalanceSheetReport struct {
	ReportHeader
	CurrentAssets          amountMap       `json:"currentAssets"`
	Bank                   amountMap       `json:"bank"`
	AccountReceivable      amountMap       `json:"accountReceivable"`
	OtherCurrentAssets     amountMap       `json:"otherCurrentAssets"`
	FixedAssets            amountMap       `json:"fixedAssets"`
	AccountPayable         amountMap       `json:"accountPayable"`
	OtherCurrentLiability  amountMap       `json:"otherCurrentLiability"`
	OtherLiability         amountMap       `json:"otherLiability"`
	Equities               amountMap       `json:"equities"`
	TotalCurrentAssets     decimal.Decimal `json:"totalCurrentAssets"`
	TotalFixedAssets       decimal.Decimal `json:"totalFixedAssets"`
	TotalAssets            decimal.Decimal `json:"totalAssets"`
	TotalLiability         decimal.Decimal `json:"totalLiability"`
	TotalEquities          decimal.Decimal `json:"totalEquities"`
	TotalLiabilityEquities decimal.Decimal `json:"totalLiabilityEquities"`
	IsBalanced             bool            `json:"isBalanced"`
	Difference             decimal.Decimal `json:"difference"`
}

func (r *BalanceSheetReport) bucket(b balanceSheetBucket) amountMap {
	switch b {
	case bsCurrentAssets:
		return r.CurrentAssets
	case bsBank:
		return r.Bank
	case bsAccountReceivable:
		return r.AccountReceivable
	case bsOtherCurrentAssets:
		return r.OtherCurrentAssets
	case bsFixedAssets:
		return r.FixedAssets
	case bsAccountPayable:
		return r.AccountPayable
	case bsOtherCurrentLiability:
		return r.OtherCurrentLiability
	case bsOtherLiability:
		return r.OtherLiability
	case bsEquities:
		return r.Equities
	}
	return nil
}

func (r *BalanceSheetReport) balanced() (bool, decimal.Decimal) {
	return r.IsBalanced, r.Difference
}

// BuildBalanceSheet classifies the latest snapshot of every category dated
// on or before the period end. Income and expense categories last touched
// before the period start are carried as retained earnings; the rest show
// as the period's earnings.
func BuildBalanceSheet(period ReportPeriod, snapshots []CategorySnapshot) *BalanceSheetReport {
	r := &BalanceSheetReport{
		ReportHeader:          newReportHeader(ReportTypeBalanceSheet, period),
		CurrentAssets:         amountMap{},
		Bank:                  amountMap{},
		AccountReceivable:     amountMap{},
		OtherCurrentAssets:    amountMap{},
		FixedAssets:           amountMap{},
		AccountPayable:        amountMap{},
		OtherCurrentLiability: amountMap{},
		OtherLiability:        amountMap{},
		Equities:              amountMap{},
	}

	names := nameResolver{}
	assetsOffset := decimal.Zero
	liabilitiesOffset := decimal.Zero
	retained := decimal.Zero
	hasRetained := false
	var periodEarnings []CategorySnapshot

	for _, s := range dedupeLatest(snapshots) {
		switch s.SystemCode {
		case models.SystemCodeOpeningBalanceOffsetAssets:
			assetsOffset = assetsOffset.Add(s.ClosingBalance)
			continue
		case models.SystemCodeOpeningBalanceOffsetLiabilities:
			liabilitiesOffset = liabilitiesOffset.Add(s.ClosingBalance)
			continue
		case models.SystemCodeRetainedEarnings:
			retained = retained.Add(s.ClosingBalance)
			hasRetained = true
			continue
		}
		rule, ok := ruleFor(s.ChartCategory)
		if !ok {
			continue
		}
		if rule.RetainedEarnings {
			if s.ClosingBalanceDate.Before(period.Start) {
				// stored balances are credit-positive, so the sum is the profit
				retained = retained.Add(s.ClosingBalance)
				hasRetained = true
			} else {
				periodEarnings = append(periodEarnings, s)
			}
			continue
		}
		// accumulated depreciation carries a credit balance, so it shows
		// negative under fixed assets and reduces their total
		r.bucket(rule.BalanceSheet).add(names.name(s), rule.Sign.Apply(s.ClosingBalance))
	}

	net := liabilitiesOffset.Abs().Sub(assetsOffset.Abs())
	if net.IsNegative() {
		r.CurrentAssets.add(OpeningBalanceEquityOffset, net.Abs())
	} else if net.IsPositive() {
		r.Equities.add(OpeningBalanceEquityOffset, net)
	}
	if hasRetained {
		r.Equities.add(RetainedEarnings, retained)
	}
	r.Equities.add(CurrentEarnings, BuildProfitAndLoss(period, periodEarnings).NetProfitLoss)

	r.TotalCurrentAssets = r.CurrentAssets.total().
		Add(r.AccountReceivable.total()).
		Add(r.OtherCurrentAssets.total()).
		Add(r.Bank.total())
	r.TotalFixedAssets = r.FixedAssets.total()
	r.TotalAssets = r.TotalCurrentAssets.Add(r.TotalFixedAssets)
	r.TotalLiability = r.AccountPayable.total().
		Add(r.OtherCurrentLiability.total()).
		Add(r.OtherLiability.total())
	r.TotalEquities = r.Equities.total()
	r.TotalLiabilityEquities = r.TotalLiability.Add(r.TotalEquities)
	r.Difference = r.TotalAssets.Sub(r.TotalLiabilityEquities)
	r.IsBalanced = r.Difference.IsZero()
	return r
}

func (r *BalanceSheetReport) sheetRows() [][]any {
	var rows [][]any
	rows = appendSection(rows, "Current Assets", r.CurrentAssets)
	rows = appendSection(rows, "Bank", r.Bank)
	rows = appendSection(rows, "Account Receivable", r.AccountReceivable)
	rows = appendSection(rows, "Other Current Assets", r.OtherCurrentAssets)
	rows = append(rows, []any{"Total Current Assets", r.TotalCurrentAssets})
	rows = appendSection(rows, "Fixed Assets", r.FixedAssets)
	rows = append(rows, []any{"Total Fixed Assets", r.TotalFixedAssets})
	rows = append(rows, []any{"Total Assets", r.TotalAssets})
	rows = appendSection(rows, "Account Payable", r.AccountPayable)
	rows = appendSection(rows, "Other Current Liability", r.OtherCurrentLiability)
	rows = appendSection(rows, "Other Liability", r.OtherLiability)
	rows = append(rows, []any{"Total Liability", r.TotalLiability})
	rows = appendSection(rows, "Equities", r.Equities)
	rows = append(rows, []any{"Total Equities", r.TotalEquities})
	rows = append(rows, []any{"Total Liability & Equities", r.TotalLiabilityEquities})
	if !r.IsBalanced {
		rows = append(rows, []any{fmt.Sprintf("Out of balance by %s", r.Difference.StringFixed(2))})
	}
	return rows
}
