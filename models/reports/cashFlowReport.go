package reports

import (
	"github.com/shopspring/decimal"
)

type CashFlowReport struct {
	ReportHeader
	StartingBalance     decimal.Decimal `json:"startingBalance"`
	OperatingActivities amountMap       `json:"operatingActivities"`
	InvestingActivities amountMap       `json:"investingActivities"`
	FinancingActivities amountMap       `json:"financingActivities"`
	NetOperating        decimal.Decimal `json:"netOperating"`
	NetInvesting        decimal.Decimal `json:"netInvesting"`
	NetFinancing        decimal.Decimal `json:"netFinancing"`
	GrossCashInflow     decimal.Decimal `json:"grossCashInflow"`
	GrossCashOutflow    decimal.Decimal `json:"grossCashOutflow"`
	NetCashChange       decimal.Decimal `json:"netCashChange"`
	EndingBalance       decimal.Decimal `json:"endingBalance"`
	Warnings            []string        `json:"warnings,omitempty"`
}

func (r *CashFlowReport) section(s cashFlowSection) amountMap {
	switch s {
	case cfOperating:
		return r.OperatingActivities
	case cfInvesting:
		return r.InvestingActivities
	case cfFinancing:
		return r.FinancingActivities
	}
	return nil
}

// BuildCashFlow derives cash movement from the other side of the ledger.
// opening holds cash and bank snapshots up to the end of the month before
// the period; window holds every non-cash snapshot inside the period. A
// credit-positive movement on a non-cash category is cash coming in.
func BuildCashFlow(period ReportPeriod, opening []CategorySnapshot, window []CategorySnapshot, warnings []string) *CashFlowReport {
	r := &CashFlowReport{
		ReportHeader:        newReportHeader(ReportTypeCashFlow, period),
		OperatingActivities: amountMap{},
		InvestingActivities: amountMap{},
		FinancingActivities: amountMap{},
		Warnings:            warnings,
	}

	for _, s := range dedupeLatest(opening) {
		r.StartingBalance = r.StartingBalance.Add(DisplayAmount(s.ChartCategory, s.ClosingBalance))
	}

	names := nameResolver{}
	for _, m := range movementsInWindow(window) {
		rule, ok := ruleFor(m.ChartCategory)
		if !ok || rule.CashFlow == cfCash || m.Delta.IsZero() {
			continue
		}
		r.section(rule.CashFlow).add(names.name(m.CategorySnapshot), m.Delta)
		if m.Delta.IsPositive() {
			r.GrossCashInflow = r.GrossCashInflow.Add(m.Delta)
		} else {
			r.GrossCashOutflow = r.GrossCashOutflow.Add(m.Delta)
		}
	}

	r.NetOperating = r.OperatingActivities.total()
	r.NetInvesting = r.InvestingActivities.total()
	r.NetFinancing = r.FinancingActivities.total()
	r.NetCashChange = r.GrossCashInflow.Add(r.GrossCashOutflow)
	r.EndingBalance = r.StartingBalance.Add(r.NetCashChange)
	return r
}

func (r *CashFlowReport) sheetRows() [][]any {
	var rows [][]any
	rows = append(rows, []any{"Starting Balance", r.StartingBalance})
	rows = appendSection(rows, "Operating Activities", r.OperatingActivities)
	rows = append(rows, []any{"Net Cash from Operating Activities", r.NetOperating})
	rows = appendSection(rows, "Investing Activities", r.InvestingActivities)
	rows = append(rows, []any{"Net Cash from Investing Activities", r.NetInvesting})
	rows = appendSection(rows, "Financing Activities", r.FinancingActivities)
	rows = append(rows, []any{"Net Cash from Financing Activities", r.NetFinancing})
	rows = append(rows, []any{"Gross Cash Inflow", r.GrossCashInflow})
	rows = append(rows, []any{"Gross Cash Outflow", r.GrossCashOutflow})
	rows = append(rows, []any{"Net Cash Change", r.NetCashChange})
	rows = append(rows, []any{"Ending Balance", r.EndingBalance})
	for _, w := range r.Warnings {
		rows = append(rows, []any{"Warning", w})
	}
	return rows
}
