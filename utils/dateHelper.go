package utils

import (
	"strings"
	"time"
)

// ReportDateLayout is the dd/MM/yyyy format report and VAT requests use.
const ReportDateLayout = "02/01/2006"

// ParseReportDate parses a dd/MM/yyyy string into UTC midnight.
// Unlike a lenient parser it never falls back to today: an empty or
// malformed value is a ValidationError.
func ParseReportDate(field string, value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, NewValidationError(field, "date is required (dd/MM/yyyy)")
	}
	t, err := time.ParseInLocation(ReportDateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, NewValidationError(field, "invalid date %q, expected dd/MM/yyyy", value)
	}
	return t, nil
}

func FormatReportDate(t time.Time) string {
	return t.Format(ReportDateLayout)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func EndOfPreviousMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}
