package workflow

import (
	"math/rand"
	"testing"
	"time"

	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func snapshot(id int, date time.Time, opening, closing int64) models.ClosingBalance {
	return models.ClosingBalance{
		ID:                 id,
		BusinessId:         "biz-1",
		AccountCategoryId:  7,
		ClosingBalanceDate: date,
		OpeningBalance:     dec(opening),
		ClosingBalance:     dec(closing),
	}
}

func assertDecimal(t *testing.T, want decimal.Decimal, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func posting(date time.Time, delta int64) SnapshotPosting {
	return SnapshotPosting{BusinessId: "biz-1", AccountCategoryId: 7, Date: date, Delta: dec(delta)}
}

func TestCascade_OutOfOrderInsert(t *testing.T) {
	existing := []models.ClosingBalance{
		snapshot(1, jan(5), 0, 100),
		snapshot(2, jan(20), 100, 150),
	}

	res := Cascade(existing, posting(jan(10), 30))

	require.Len(t, res.Rows, 2)
	target := res.Target()
	assert.Zero(t, target.ID)
	assert.True(t, target.ClosingBalanceDate.Equal(jan(10)))
	assertDecimal(t, dec(100), target.OpeningBalance)
	assertDecimal(t, dec(130), target.ClosingBalance)

	down := res.Downstream()
	require.Len(t, down, 1)
	assert.Equal(t, 2, down[0].ID)
	assertDecimal(t, dec(130), down[0].OpeningBalance)
	assertDecimal(t, dec(180), down[0].ClosingBalance)
}

func TestCascade(t *testing.T) {
	existing := []models.ClosingBalance{
		snapshot(1, jan(5), 0, 100),
		snapshot(2, jan(20), 100, 150),
	}

	tests := []struct {
		name     string
		existing []models.ClosingBalance
		posting  SnapshotPosting
		want     [][2]int64 // opening, closing per returned row
		wantIds  []int
	}{
		{
			name:    "first posting of a category",
			posting: posting(jan(3), 50),
			want:    [][2]int64{{0, 50}},
			wantIds: []int{0},
		},
		{
			name:     "posting before every snapshot",
			existing: existing,
			posting:  posting(jan(1), -20),
			want:     [][2]int64{{0, -20}, {-20, 80}, {80, 130}},
			wantIds:  []int{0, 1, 2},
		},
		{
			name:     "same date is absorbed",
			existing: existing,
			posting:  posting(jan(5), 10),
			want:     [][2]int64{{0, 110}, {110, 160}},
			wantIds:  []int{1, 2},
		},
		{
			name:     "posting after every snapshot",
			existing: existing,
			posting:  posting(jan(25), -40),
			want:     [][2]int64{{150, 110}},
			wantIds:  []int{0},
		},
		{
			name:     "time of day is ignored",
			existing: existing,
			posting:  posting(jan(20).Add(15*time.Hour), 5),
			want:     [][2]int64{{100, 155}},
			wantIds:  []int{2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Cascade(tc.existing, tc.posting)
			require.Len(t, res.Rows, len(tc.want))
			for i, w := range tc.want {
				assert.Equal(t, tc.wantIds[i], res.Rows[i].ID, "row %d", i)
				assertDecimal(t, dec(w[0]), res.Rows[i].OpeningBalance, "opening of row", i)
				assertDecimal(t, dec(w[1]), res.Rows[i].ClosingBalance, "closing of row", i)
			}
		})
	}
}

func TestCascade_DoesNotModifyInput(t *testing.T) {
	bankClose := dec(100)
	existing := []models.ClosingBalance{
		snapshot(2, jan(20), 100, 150),
		snapshot(1, jan(5), 0, 100),
	}
	existing[1].BankAccountOpeningBalance = utils.DecimalPtr(decimal.Zero)
	existing[1].BankAccountClosingBalance = &bankClose

	bankDelta := dec(10)
	p := posting(jan(5), 10)
	p.BankDelta = &bankDelta
	Cascade(existing, p)

	assert.Equal(t, 2, existing[0].ID)
	assertDecimal(t, dec(150), existing[0].ClosingBalance)
	assertDecimal(t, dec(100), existing[1].ClosingBalance)
	assertDecimal(t, dec(100), bankClose)
}

func TestCascade_BankSeries(t *testing.T) {
	first := snapshot(1, jan(5), 0, 100)
	first.BankAccountOpeningBalance = utils.DecimalPtr(decimal.Zero)
	first.BankAccountClosingBalance = utils.DecimalPtr(dec(50))
	second := snapshot(2, jan(20), 100, 150)
	second.BankAccountOpeningBalance = utils.DecimalPtr(dec(50))
	second.BankAccountClosingBalance = utils.DecimalPtr(dec(75))

	bankDelta := dec(15)
	p := posting(jan(10), 30)
	p.BankDelta = &bankDelta

	res := Cascade([]models.ClosingBalance{first, second}, p)
	require.Len(t, res.Rows, 2)

	target := res.Target()
	require.NotNil(t, target.BankAccountOpeningBalance)
	require.NotNil(t, target.BankAccountClosingBalance)
	assertDecimal(t, dec(50), *target.BankAccountOpeningBalance)
	assertDecimal(t, dec(65), *target.BankAccountClosingBalance)

	down := res.Downstream()[0]
	assertDecimal(t, dec(65), *down.BankAccountOpeningBalance)
	assertDecimal(t, dec(90), *down.BankAccountClosingBalance)
}

func TestCascade_BankSeriesStartsOnExistingSnapshot(t *testing.T) {
	// a snapshot written before the category had a bank series
	existing := []models.ClosingBalance{snapshot(1, jan(5), 0, 100)}
	bankDelta := dec(-20)
	p := posting(jan(5), -20)
	p.BankDelta = &bankDelta

	res := Cascade(existing, p)
	target := res.Target()
	require.NotNil(t, target.BankAccountOpeningBalance)
	assertDecimal(t, decimal.Zero, *target.BankAccountOpeningBalance)
	assertDecimal(t, dec(-20), *target.BankAccountClosingBalance)
	assertDecimal(t, dec(80), target.ClosingBalance)
}

// storeResult writes a cascade result back into an in-memory series the way
// ApplyToClosingBalances does against the table.
func storeResult(series []models.ClosingBalance, res CascadeResult, nextId *int) []models.ClosingBalance {
	for _, row := range res.Rows {
		if row.ID == 0 {
			*nextId++
			row.ID = *nextId
			series = append(series, row)
			continue
		}
		for i := range series {
			if series[i].ID == row.ID {
				series[i] = row
			}
		}
	}
	return series
}

func TestCascade_ChainInvariantUnderRandomPostings(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		var series []models.ClosingBalance
		nextId := 0
		total := decimal.Zero
		for i := 0; i < 40; i++ {
			// back-dated and forward postings mixed, negative ones act as deletions
			date := jan(1 + rng.Intn(28))
			delta := int64(rng.Intn(2001) - 1000)
			total = total.Add(dec(delta))
			series = storeResult(series, Cascade(series, posting(date, delta)), &nextId)
		}

		require.Empty(t, FindChainBreaks(series), "run %d", run)
		sorted := cloneSnapshots(series)
		sortSnapshots(sorted)
		assertDecimal(t, decimal.Zero, sorted[0].OpeningBalance, "run", run)
		assertDecimal(t, total, sorted[len(sorted)-1].ClosingBalance, "run", run)
	}
}

func TestReconcileSnapshots_MergesDuplicatesBySummation(t *testing.T) {
	rows := []models.ClosingBalance{
		snapshot(2, jan(20), 100, 150),
		snapshot(3, jan(5), 100, 120),
		snapshot(1, jan(5), 0, 100),
	}

	merged, removed := ReconcileSnapshots(rows)

	assert.Equal(t, []int{3}, removed)
	require.Len(t, merged, 2)
	assert.Equal(t, 1, merged[0].ID)
	assertDecimal(t, dec(0), merged[0].OpeningBalance)
	assertDecimal(t, dec(120), merged[0].ClosingBalance)
	assert.Equal(t, 2, merged[1].ID)
	assertDecimal(t, dec(120), merged[1].OpeningBalance)
	assertDecimal(t, dec(170), merged[1].ClosingBalance)
	assert.Empty(t, FindChainBreaks(merged))
}

func TestFindChainBreaks(t *testing.T) {
	rows := []models.ClosingBalance{
		snapshot(1, jan(5), 0, 100),
		snapshot(2, jan(5), 100, 110),
		snapshot(3, jan(20), 90, 150),
	}

	breaks := FindChainBreaks(rows)

	require.Len(t, breaks, 2)
	assert.True(t, breaks[0].Duplicate)
	assert.Equal(t, 2, breaks[0].SnapshotId)
	assert.False(t, breaks[1].Duplicate)
	assert.Equal(t, 3, breaks[1].SnapshotId)
	assertDecimal(t, dec(110), breaks[1].Expected)
	assertDecimal(t, dec(90), breaks[1].Actual)
}
