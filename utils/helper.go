package utils

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// SortedUnique returns the distinct values of s in ascending order.
func SortedUnique[T cmp.Ordered](s []T) []T {
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}

// RoundHalfUp rounds to places decimals, ties away from zero.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

func DereferencePtr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
