package reports

import (
	"strings"

	"github.com/mmdatafocus/books_ledger/models"
	"github.com/shopspring/decimal"
)

// INCOME categories with these names are operating income; every other
// INCOME category is non-operating.
var operatingIncomeNames = []string{"Sales", "OTHER_CHARGES", "Interest Income"}

func isOperatingIncome(name string) bool {
	name = strings.TrimSpace(name)
	for _, n := range operatingIncomeNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

type ProfitAndLossReport struct {
	ReportHeader
	OperatingIncome           amountMap       `json:"operatingIncome"`
	CostOfGoodsSold           amountMap       `json:"costOfGoodsSold"`
	OperatingExpense          amountMap       `json:"operatingExpense"`
	NonOperatingIncome        amountMap       `json:"nonOperatingIncome"`
	NonOperatingExpense       amountMap       `json:"nonOperatingExpense"`
	TotalOperatingIncome      decimal.Decimal `json:"totalOperatingIncome"`
	TotalCostOfGoodsSold      decimal.Decimal `json:"totalCostOfGoodsSold"`
	TotalOperatingExpense     decimal.Decimal `json:"totalOperatingExpense"`
	TotalNonOperatingIncome   decimal.Decimal `json:"totalNonOperatingIncome"`
	TotalNonOperatingExpense  decimal.Decimal `json:"totalNonOperatingExpense"`
	GrossProfit               decimal.Decimal `json:"grossProfit"`
	OperatingProfit           decimal.Decimal `json:"operatingProfit"`
	NonOperatingIncomeExpense decimal.Decimal `json:"nonOperatingIncomeExpense"`
	NetProfitLoss             decimal.Decimal `json:"netProfitLoss"`
}

// BuildProfitAndLoss uses the latest snapshot of each income and expense
// category within the period.
func BuildProfitAndLoss(period ReportPeriod, snapshots []CategorySnapshot) *ProfitAndLossReport {
	r := &ProfitAndLossReport{
		ReportHeader:        newReportHeader(ReportTypeProfitLoss, period),
		OperatingIncome:     amountMap{},
		CostOfGoodsSold:     amountMap{},
		OperatingExpense:    amountMap{},
		NonOperatingIncome:  amountMap{},
		NonOperatingExpense: amountMap{},
	}
	names := nameResolver{}
	for _, s := range dedupeLatest(snapshots) {
		amount := DisplayAmount(s.ChartCategory, s.ClosingBalance)
		switch s.ChartCategory {
		case models.ChartCategoryIncome:
			if isOperatingIncome(s.Name) {
				r.OperatingIncome.add(names.name(s), amount)
			} else {
				r.NonOperatingIncome.add(names.name(s), amount)
			}
		case models.ChartCategoryCostOfGoodsSold:
			r.CostOfGoodsSold.add(names.name(s), amount)
		case models.ChartCategoryAdminExpense:
			r.OperatingExpense.add(names.name(s), amount)
		case models.ChartCategoryOtherExpense:
			r.NonOperatingExpense.add(names.name(s), amount)
		}
	}

	r.TotalOperatingIncome = r.OperatingIncome.total()
	r.TotalCostOfGoodsSold = r.CostOfGoodsSold.total()
	r.TotalOperatingExpense = r.OperatingExpense.total()
	r.TotalNonOperatingIncome = r.NonOperatingIncome.total()
	r.TotalNonOperatingExpense = r.NonOperatingExpense.total()

	r.GrossProfit = r.TotalOperatingIncome.Sub(r.TotalCostOfGoodsSold)
	r.OperatingProfit = r.GrossProfit.Sub(r.TotalOperatingExpense)
	r.NonOperatingIncomeExpense = r.TotalNonOperatingIncome.Sub(r.TotalNonOperatingExpense)
	r.NetProfitLoss = r.OperatingProfit.Add(r.NonOperatingIncomeExpense)
	return r
}

func (r *ProfitAndLossReport) sheetRows() [][]any {
	var rows [][]any
	rows = appendSection(rows, "Operating Income", r.OperatingIncome)
	rows = append(rows, []any{"Total Operating Income", r.TotalOperatingIncome})
	rows = appendSection(rows, "Cost of Goods Sold", r.CostOfGoodsSold)
	rows = append(rows, []any{"Total Cost of Goods Sold", r.TotalCostOfGoodsSold})
	rows = append(rows, []any{"Gross Profit", r.GrossProfit})
	rows = appendSection(rows, "Operating Expense", r.OperatingExpense)
	rows = append(rows, []any{"Total Operating Expense", r.TotalOperatingExpense})
	rows = append(rows, []any{"Operating Profit", r.OperatingProfit})
	rows = appendSection(rows, "Non Operating Income", r.NonOperatingIncome)
	rows = appendSection(rows, "Non Operating Expense", r.NonOperatingExpense)
	rows = append(rows, []any{"Non Operating Income / Expense", r.NonOperatingIncomeExpense})
	rows = append(rows, []any{"Net Profit / Loss", r.NetProfitLoss})
	return rows
}
