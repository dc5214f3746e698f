package utils

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportDate(t *testing.T) {
	got, err := ParseReportDate("startDate", " 05/03/2024 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "05/03/2024", FormatReportDate(got))

	for _, bad := range []string{"", "2024-03-05", "31/02/2024", "5/3/24", "today"} {
		_, err := ParseReportDate("startDate", bad)
		require.Error(t, err, bad)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, bad)
		assert.Equal(t, "startDate", ve.Field)
	}
}

func TestEndOfPreviousMonth(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		assert.True(t, tc.want.Equal(EndOfPreviousMonth(tc.in)), "in %s", tc.in)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, time.March, 5, 23, 59, 59, 0, time.UTC)
	assert.True(t, DateOnly(in).Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)))
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []int{1, 2, 5}, SortedUnique([]int{5, 1, 2, 5, 1}))
	assert.Empty(t, SortedUnique([]int(nil)))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, "2.68", RoundHalfUp(decimal.RequireFromString("2.675"), 2).String())
	assert.Equal(t, "-2.68", RoundHalfUp(decimal.RequireFromString("-2.675"), 2).String())
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Count int    `validate:"gt=0"`
	}
	require.NoError(t, ValidateStruct(payload{Name: "a", Count: 1}))

	err := ValidateStruct(payload{Name: "a"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Count", ve.Field)
	assert.Equal(t, "failed on gt=0", ve.Message)
}

func TestContextValues(t *testing.T) {
	ctx := SetBusinessIdInContext(context.Background(), "biz-1")
	ctx = SetUserInContext(ctx, 42, "amina")
	ctx = SetCorrelationIdInContext(ctx, "cid-1")

	biz, ok := GetBusinessIdFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "biz-1", biz)
	uid, ok := GetUserIdFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, 42, uid)
	name, _ := GetUserNameFromContext(ctx)
	assert.Equal(t, "amina", name)
	cid, _ := GetCorrelationIdFromContext(ctx)
	assert.Equal(t, "cid-1", cid)

	_, ok = GetUserIdFromContext(context.Background())
	assert.False(t, ok)
}
