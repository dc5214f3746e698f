package reports

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportReportToExcel renders a statement onto a single sheet: a title
// block, then one row per line of the report.
func ExportReportToExcel(report Report) (*excelize.File, error) {
	if report == nil {
		return nil, fmt.Errorf("export excel: report is nil")
	}
	h := report.Header()
	sheetName := string(h.ReportType)

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// Add headers
	if err := f.SetCellValue(sheetName, "A1", sheetName); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, "A2", fmt.Sprintf("%s - %s", h.StartDate, h.EndDate)); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A2", bold); err != nil {
		return nil, err
	}

	// Add data
	rowNo := 4
	for _, row := range report.sheetRows() {
		for i, value := range row {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, cellValue(value)); err != nil {
				return nil, err
			}
		}
		if len(row) == 1 {
			cell, _ := excelize.CoordinatesToCellName(1, rowNo)
			if err := f.SetCellStyle(sheetName, cell, cell, bold); err != nil {
				return nil, err
			}
		}
		rowNo++
	}
	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return nil, err
	}
	return f, nil
}

func cellValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case nil:
		return ""
	}
	return v
}

// appendSection adds a title row followed by the section's lines sorted by
// name.
func appendSection(rows [][]any, title string, m amountMap) [][]any {
	rows = append(rows, []any{title})
	for _, name := range sortedKeys(m) {
		rows = append(rows, []any{"  " + name, m[name]})
	}
	return rows
}

func sortedKeys(m amountMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
