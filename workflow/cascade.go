package workflow

import (
	"slices"
	"time"

	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
)

// SnapshotPosting is one signed movement applied to a category's closing
// balance series on a given date. BankDelta is nil for categories without a
// bank-account series.
type SnapshotPosting struct {
	BusinessId        string
	AccountCategoryId int
	Date              time.Time
	Delta             decimal.Decimal
	BankDelta         *decimal.Decimal
}

// CascadeResult holds the rows a posting touches, in date order. The first
// row is the snapshot dated on the posting date; a zero ID means insert.
type CascadeResult struct {
	Rows []models.ClosingBalance
}

// Target is the snapshot dated on the posting date.
func (r CascadeResult) Target() models.ClosingBalance {
	return r.Rows[0]
}

// Downstream is every snapshot dated after the posting date.
func (r CascadeResult) Downstream() []models.ClosingBalance {
	return r.Rows[1:]
}

// Cascade applies p to a category's snapshot series and returns the rows
// that changed. existing must hold at most one row per date; it is not
// modified.
func Cascade(existing []models.ClosingBalance, p SnapshotPosting) CascadeResult {
	date := utils.DateOnly(p.Date)
	rows := cloneSnapshots(existing)
	sortSnapshots(rows)

	var prev *models.ClosingBalance
	target := -1
	firstAfter := len(rows)
	for i := range rows {
		d := utils.DateOnly(rows[i].ClosingBalanceDate)
		if d.Before(date) {
			prev = &rows[i]
			continue
		}
		if d.Equal(date) {
			target = i
			continue
		}
		firstAfter = i
		break
	}

	var snap models.ClosingBalance
	if target >= 0 {
		snap = rows[target]
		snap.ClosingBalance = snap.ClosingBalance.Add(p.Delta)
		if p.BankDelta != nil {
			if snap.BankAccountOpeningBalance == nil {
				snap.BankAccountOpeningBalance = utils.DecimalPtr(bankClosing(prev))
			}
			snap.BankAccountClosingBalance = utils.DecimalPtr(bankValue(snap.BankAccountClosingBalance, *snap.BankAccountOpeningBalance).Add(*p.BankDelta))
		}
	} else {
		opening := decimal.Zero
		if prev != nil {
			opening = prev.ClosingBalance
		}
		snap = models.ClosingBalance{
			BusinessId:         p.BusinessId,
			AccountCategoryId:  p.AccountCategoryId,
			ClosingBalanceDate: date,
			OpeningBalance:     opening,
			ClosingBalance:     opening.Add(p.Delta),
		}
		if p.BankDelta != nil {
			bankOpening := bankClosing(prev)
			snap.BankAccountOpeningBalance = utils.DecimalPtr(bankOpening)
			snap.BankAccountClosingBalance = utils.DecimalPtr(bankOpening.Add(*p.BankDelta))
		}
	}

	result := CascadeResult{Rows: make([]models.ClosingBalance, 0, 1+len(rows)-firstAfter)}
	result.Rows = append(result.Rows, snap)

	for i := firstAfter; i < len(rows); i++ {
		row := rows[i]
		row.ClosingBalance = row.ClosingBalance.Add(p.Delta)
		if i == firstAfter {
			row.OpeningBalance = snap.ClosingBalance
		} else {
			row.OpeningBalance = row.OpeningBalance.Add(p.Delta)
		}
		if p.BankDelta != nil {
			row.BankAccountClosingBalance = utils.DecimalPtr(bankValue(row.BankAccountClosingBalance, decimal.Zero).Add(*p.BankDelta))
			if i == firstAfter {
				row.BankAccountOpeningBalance = utils.DecimalPtr(*snap.BankAccountClosingBalance)
			} else {
				row.BankAccountOpeningBalance = utils.DecimalPtr(bankValue(row.BankAccountOpeningBalance, decimal.Zero).Add(*p.BankDelta))
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

// ReconcileSnapshots collapses rows sharing a date into the one with the
// lowest id, summing their net movements, then rebuilds the chain from the
// earliest opening balance. It returns the surviving rows in date order and
// the ids of the rows that were merged away.
func ReconcileSnapshots(rows []models.ClosingBalance) (merged []models.ClosingBalance, removedIds []int) {
	sorted := cloneSnapshots(rows)
	sortSnapshots(sorted)
	if len(sorted) == 0 {
		return nil, nil
	}

	type group struct {
		row     models.ClosingBalance
		net     decimal.Decimal
		bankNet decimal.Decimal
		hasBank bool
	}
	var groups []*group
	for _, r := range sorted {
		d := utils.DateOnly(r.ClosingBalanceDate)
		if n := len(groups); n > 0 && utils.DateOnly(groups[n-1].row.ClosingBalanceDate).Equal(d) {
			g := groups[n-1]
			g.net = g.net.Add(r.NetMovement())
			if r.BankAccountClosingBalance != nil {
				g.hasBank = true
				g.bankNet = g.bankNet.Add(r.BankNetMovement())
			}
			removedIds = append(removedIds, r.ID)
			continue
		}
		groups = append(groups, &group{
			row:     r,
			net:     r.NetMovement(),
			bankNet: r.BankNetMovement(),
			hasBank: r.BankAccountClosingBalance != nil,
		})
	}

	opening := groups[0].row.OpeningBalance
	bankOpening := bankValue(groups[0].row.BankAccountOpeningBalance, decimal.Zero)
	anyBank := false
	for _, g := range groups {
		anyBank = anyBank || g.hasBank
	}

	merged = make([]models.ClosingBalance, 0, len(groups))
	for _, g := range groups {
		row := g.row
		row.ClosingBalanceDate = utils.DateOnly(row.ClosingBalanceDate)
		row.OpeningBalance = opening
		row.ClosingBalance = opening.Add(g.net)
		opening = row.ClosingBalance
		if anyBank {
			row.BankAccountOpeningBalance = utils.DecimalPtr(bankOpening)
			row.BankAccountClosingBalance = utils.DecimalPtr(bankOpening.Add(g.bankNet))
			bankOpening = *row.BankAccountClosingBalance
		}
		merged = append(merged, row)
	}
	return merged, removedIds
}

// ChainBreak describes a snapshot whose opening does not match the previous
// closing, or that shares its date with another snapshot.
type ChainBreak struct {
	AccountCategoryId int             `json:"account_category_id"`
	SnapshotId        int             `json:"snapshot_id"`
	Date              time.Time       `json:"date"`
	Expected          decimal.Decimal `json:"expected"`
	Actual            decimal.Decimal `json:"actual"`
	Duplicate         bool            `json:"duplicate"`
}

func FindChainBreaks(rows []models.ClosingBalance) []ChainBreak {
	sorted := cloneSnapshots(rows)
	sortSnapshots(sorted)
	var breaks []ChainBreak
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if utils.DateOnly(prev.ClosingBalanceDate).Equal(utils.DateOnly(cur.ClosingBalanceDate)) {
			breaks = append(breaks, ChainBreak{
				AccountCategoryId: cur.AccountCategoryId,
				SnapshotId:        cur.ID,
				Date:              cur.ClosingBalanceDate,
				Duplicate:         true,
			})
			continue
		}
		if !cur.OpeningBalance.Equal(prev.ClosingBalance) {
			breaks = append(breaks, ChainBreak{
				AccountCategoryId: cur.AccountCategoryId,
				SnapshotId:        cur.ID,
				Date:              cur.ClosingBalanceDate,
				Expected:          prev.ClosingBalance,
				Actual:            cur.OpeningBalance,
			})
		}
	}
	return breaks
}

// cloneSnapshots copies rows deeply enough that bank pointers are not shared.
func cloneSnapshots(rows []models.ClosingBalance) []models.ClosingBalance {
	out := make([]models.ClosingBalance, len(rows))
	for i, r := range rows {
		if r.BankAccountOpeningBalance != nil {
			r.BankAccountOpeningBalance = utils.DecimalPtr(*r.BankAccountOpeningBalance)
		}
		if r.BankAccountClosingBalance != nil {
			r.BankAccountClosingBalance = utils.DecimalPtr(*r.BankAccountClosingBalance)
		}
		out[i] = r
	}
	return out
}

func sortSnapshots(rows []models.ClosingBalance) {
	slices.SortStableFunc(rows, func(a, b models.ClosingBalance) int {
		if c := a.ClosingBalanceDate.Compare(b.ClosingBalanceDate); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
}

func bankClosing(row *models.ClosingBalance) decimal.Decimal {
	if row == nil {
		return decimal.Zero
	}
	return bankValue(row.BankAccountClosingBalance, decimal.Zero)
}

func bankValue(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}
