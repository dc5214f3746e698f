package reports

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmdatafocus/books_ledger/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategorySnapshot is a closing balance row joined with its category.
type CategorySnapshot struct {
	AccountCategoryId  int                  `json:"account_category_id"`
	Name               string               `json:"name"`
	CategoryCode       string               `json:"category_code"`
	ChartCategory      models.ChartCategory `json:"chart_category"`
	SystemCode         string               `json:"system_code"`
	ClosingBalanceDate time.Time            `json:"closing_balance_date"`
	OpeningBalance     decimal.Decimal      `json:"opening_balance"`
	ClosingBalance     decimal.Decimal      `json:"closing_balance"`
}

// fetchCategorySnapshots returns the snapshots of the given chart categories
// dated up to and including to, and from on when from is set.
func fetchCategorySnapshots(ctx context.Context, db *gorm.DB, businessId string, chartCategories []models.ChartCategory, from *time.Time, to time.Time) ([]CategorySnapshot, error) {
	var rows []CategorySnapshot
	q := db.WithContext(ctx).
		Table("account_category_closing_balances AS cb").
		Select("cb.account_category_id, ac.name, ac.category_code, ac.chart_category, ac.system_code, " +
			"cb.closing_balance_date, cb.opening_balance, cb.closing_balance").
		Joins("JOIN account_categories AS ac ON ac.id = cb.account_category_id").
		Where("cb.business_id = ? AND ac.chart_category IN ?", businessId, chartCategories).
		Where("cb.closing_balance_date <= ?", to)
	if from != nil {
		q = q.Where("cb.closing_balance_date >= ?", *from)
	}
	if err := q.Order("cb.account_category_id, cb.closing_balance_date, cb.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// dedupeLatest keeps the most recent snapshot of each category, ordered by
// name then id.
func dedupeLatest(rows []CategorySnapshot) []CategorySnapshot {
	latest := make(map[int]CategorySnapshot, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.AccountCategoryId]
		if !ok || !r.ClosingBalanceDate.Before(cur.ClosingBalanceDate) {
			latest[r.AccountCategoryId] = r
		}
	}
	out := make([]CategorySnapshot, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sortByName(out)
	return out
}

// windowMovement is a category's net change across the snapshots of a period.
type windowMovement struct {
	CategorySnapshot
	Delta decimal.Decimal
}

// movementsInWindow computes latest.closing - earliest.opening per category.
func movementsInWindow(rows []CategorySnapshot) []windowMovement {
	first := make(map[int]CategorySnapshot)
	last := make(map[int]CategorySnapshot)
	for _, r := range rows {
		if f, ok := first[r.AccountCategoryId]; !ok || r.ClosingBalanceDate.Before(f.ClosingBalanceDate) {
			first[r.AccountCategoryId] = r
		}
		if l, ok := last[r.AccountCategoryId]; !ok || !r.ClosingBalanceDate.Before(l.ClosingBalanceDate) {
			last[r.AccountCategoryId] = r
		}
	}
	out := make([]windowMovement, 0, len(last))
	for id, l := range last {
		out = append(out, windowMovement{
			CategorySnapshot: l,
			Delta:            l.ClosingBalance.Sub(first[id].OpeningBalance),
		})
	}
	slices.SortFunc(out, func(a, b windowMovement) int {
		return compareSnapshots(a.CategorySnapshot, b.CategorySnapshot)
	})
	return out
}

func sortByName(rows []CategorySnapshot) {
	slices.SortFunc(rows, compareSnapshots)
}

func compareSnapshots(a, b CategorySnapshot) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return a.AccountCategoryId - b.AccountCategoryId
}

// nameResolver hands out one display name per category; two categories with
// the same name are told apart by code, or id.
type nameResolver map[string]int

func (n nameResolver) name(s CategorySnapshot) string {
	name := s.Name
	if id, ok := n[name]; !ok || id == s.AccountCategoryId {
		n[name] = s.AccountCategoryId
		return name
	}
	if s.CategoryCode != "" {
		name = fmt.Sprintf("%s (%s)", s.Name, s.CategoryCode)
	} else {
		name = fmt.Sprintf("%s (#%d)", s.Name, s.AccountCategoryId)
	}
	n[name] = s.AccountCategoryId
	return name
}
