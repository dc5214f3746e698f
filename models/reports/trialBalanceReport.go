package reports

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	TrialBalanceDebit  = "Debit"
	TrialBalanceCredit = "Credit"
)

type TrialBalanceReport struct {
	ReportHeader
	AccountReceivable         amountMap         `json:"accountReceivable"`
	Bank                      amountMap         `json:"bank"`
	Assets                    amountMap         `json:"assets"`
	FixedAsset                amountMap         `json:"fixedAsset"`
	AccountPayable            amountMap         `json:"accountPayable"`
	Liabilities               amountMap         `json:"liabilities"`
	Equities                  amountMap         `json:"equities"`
	Income                    amountMap         `json:"income"`
	Expense                   amountMap         `json:"expense"`
	TransactionCategoryMapper map[string]string `json:"transactionCategoryMapper"`
	TotalDebit                decimal.Decimal   `json:"totalDebit"`
	TotalCredit               decimal.Decimal   `json:"totalCredit"`
	IsBalanced                bool              `json:"isBalanced"`
	Difference                decimal.Decimal   `json:"difference"`
}

func (r *TrialBalanceReport) bucket(b trialBalanceBucket) amountMap {
	switch b {
	case tbAccountReceivable:
		return r.AccountReceivable
	case tbBank:
		return r.Bank
	case tbAssets:
		return r.Assets
	case tbFixedAsset:
		return r.FixedAsset
	case tbAccountPayable:
		return r.AccountPayable
	case tbLiabilities:
		return r.Liabilities
	case tbEquities:
		return r.Equities
	case tbIncome:
		return r.Income
	case tbExpense:
		return r.Expense
	}
	return nil
}

func (r *TrialBalanceReport) balanced() (bool, decimal.Decimal) {
	return r.IsBalanced, r.Difference
}

// BuildTrialBalance lists the latest balance of every category as of the
// period end: a negative stored balance is a debit, a positive one a credit.
func BuildTrialBalance(period ReportPeriod, snapshots []CategorySnapshot) *TrialBalanceReport {
	r := &TrialBalanceReport{
		ReportHeader:              newReportHeader(ReportTypeTrialBalance, period),
		AccountReceivable:         amountMap{},
		Bank:                      amountMap{},
		Assets:                    amountMap{},
		FixedAsset:                amountMap{},
		AccountPayable:            amountMap{},
		Liabilities:               amountMap{},
		Equities:                  amountMap{},
		Income:                    amountMap{},
		Expense:                   amountMap{},
		TransactionCategoryMapper: map[string]string{},
	}
	names := nameResolver{}
	for _, s := range dedupeLatest(snapshots) {
		rule, ok := ruleFor(s.ChartCategory)
		if !ok || s.ClosingBalance.IsZero() {
			continue
		}
		name := names.name(s)
		amount := s.ClosingBalance.Abs()
		if s.ClosingBalance.IsNegative() {
			r.TransactionCategoryMapper[name] = TrialBalanceDebit
			r.TotalDebit = r.TotalDebit.Add(amount)
		} else {
			r.TransactionCategoryMapper[name] = TrialBalanceCredit
			r.TotalCredit = r.TotalCredit.Add(amount)
		}
		r.bucket(rule.TrialBalance).add(name, amount)
	}
	r.Difference = r.TotalDebit.Sub(r.TotalCredit)
	r.IsBalanced = r.Difference.IsZero()
	return r
}

func (r *TrialBalanceReport) sheetRows() [][]any {
	rows := [][]any{{"Account", TrialBalanceDebit, TrialBalanceCredit}}
	sections := []struct {
		title string
		m     amountMap
	}{
		{"Account Receivable", r.AccountReceivable},
		{"Bank", r.Bank},
		{"Assets", r.Assets},
		{"Fixed Asset", r.FixedAsset},
		{"Account Payable", r.AccountPayable},
		{"Liabilities", r.Liabilities},
		{"Equities", r.Equities},
		{"Income", r.Income},
		{"Expense", r.Expense},
	}
	for _, sec := range sections {
		if len(sec.m) == 0 {
			continue
		}
		rows = append(rows, []any{sec.title})
		for _, name := range sortedKeys(sec.m) {
			if r.TransactionCategoryMapper[name] == TrialBalanceDebit {
				rows = append(rows, []any{name, sec.m[name], nil})
			} else {
				rows = append(rows, []any{name, nil, sec.m[name]})
			}
		}
	}
	rows = append(rows, []any{"Total", r.TotalDebit, r.TotalCredit})
	if !r.IsBalanced {
		rows = append(rows, []any{fmt.Sprintf("Out of balance by %s", r.Difference.StringFixed(2))})
	}
	return rows
}
