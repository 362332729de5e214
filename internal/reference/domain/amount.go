package domain

import "github.com/shopspring/decimal"

// ToMajorUnits converts a Stripe amount into the currency's major unit.
// Zero-decimal currencies are returned unchanged, every other currency is
// divided by 100.
func ToMajorUnits(minor int64, currency string) decimal.Decimal {
	if IsZeroDecimalCurrency(currency) {
		return decimal.NewFromInt(minor)
	}
	return decimal.New(minor, -2)
}

// ToMinorUnits converts a major-unit amount into the integer Stripe expects,
// rounding half away from zero to the smallest unit.
func ToMinorUnits(major decimal.Decimal, currency string) int64 {
	if IsZeroDecimalCurrency(currency) {
		return major.Round(0).IntPart()
	}
	return major.Shift(2).Round(0).IntPart()
}
