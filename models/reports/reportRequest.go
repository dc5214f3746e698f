package reports

import (
	"strings"
	"time"

	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

type ReportType string

const (
	ReportTypeBalanceSheet ReportType = "BalanceSheet"
	ReportTypeProfitLoss   ReportType = "ProfitLoss"
	ReportTypeTrialBalance ReportType = "TrialBalance"
	ReportTypeCashFlow     ReportType = "CashFlow"
	ReportTypeVatReturn    ReportType = "VatReturn"
)

var AllReportTypes = []ReportType{
	ReportTypeBalanceSheet,
	ReportTypeProfitLoss,
	ReportTypeTrialBalance,
	ReportTypeCashFlow,
	ReportTypeVatReturn,
}

// ParseReportType accepts the type name in any case, with or without
// separators ("balance-sheet", "PROFIT_LOSS").
func ParseReportType(s string) (ReportType, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AllReportTypes {
		if strings.ToLower(string(t)) == norm {
			return t, nil
		}
	}
	return "", utils.NewValidationError("reportType", "unknown report type %q", s)
}

// ReportPeriod is an inclusive range of calendar days.
type ReportPeriod struct {
	Start time.Time
	End   time.Time
}

// ParseReportPeriod parses two dd/MM/yyyy dates. Either being malformed, or
// start after end, is a ValidationError.
func ParseReportPeriod(startDate string, endDate string) (ReportPeriod, error) {
	start, err := utils.ParseReportDate("startDate", startDate)
	if err != nil {
		return ReportPeriod{}, err
	}
	end, err := utils.ParseReportDate("endDate", endDate)
	if err != nil {
		return ReportPeriod{}, err
	}
	if start.After(end) {
		return ReportPeriod{}, utils.NewValidationError("startDate", "start date %s is after end date %s", startDate, endDate)
	}
	return ReportPeriod{Start: start, End: end}, nil
}

// EndExclusive is midnight after the last day of the period.
func (p ReportPeriod) EndExclusive() time.Time {
	return p.End.AddDate(0, 0, 1)
}

// ReportHeader is embedded in every statement.
type ReportHeader struct {
	ReportType ReportType `json:"reportType"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate"`
}

func newReportHeader(t ReportType, p ReportPeriod) ReportHeader {
	return ReportHeader{
		ReportType: t,
		StartDate:  utils.FormatReportDate(p.Start),
		EndDate:    utils.FormatReportDate(p.End),
	}
}

func (h ReportHeader) Header() ReportHeader { return h }

// Report is any statement BuildReport produces.
type Report interface {
	Header() ReportHeader
	sheetRows() [][]any
}

// balanceChecker is implemented by statements that carry an equality check.
type balanceChecker interface {
	balanced() (bool, decimal.Decimal)
}

func newReport(t ReportType) Report {
	switch t {
	case ReportTypeBalanceSheet:
		return &BalanceSheetReport{}
	case ReportTypeProfitLoss:
		return &ProfitAndLossReport{}
	case ReportTypeTrialBalance:
		return &TrialBalanceReport{}
	case ReportTypeCashFlow:
		return &CashFlowReport{}
	case ReportTypeVatReturn:
		return &VatReturnReport{}
	}
	return nil
}

// amountMap is a display name -> amount section of a statement.
type amountMap map[string]decimal.Decimal

func (m amountMap) add(name string, amount decimal.Decimal) {
	m[name] = m[name].Add(amount)
}

func (m amountMap) total() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range m {
		sum = sum.Add(v)
	}
	return sum
}
