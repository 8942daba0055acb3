package types

import "github.com/shopspring/decimal"

// Amounts are stored as decimal major units with two fraction digits and
// cross the gateway boundary as integer halalas. The conversion lives here so
// no fractional-unit ambiguity leaks into the ledgers.

var minorFactor = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount into halalas.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorFactor).Round(0).IntPart()
}

// FromMinorUnits converts halalas back into a two-decimal major-unit amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorFactor).Round(2)
}

// NormalizeAmount rounds an amount to the ledger precision.
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
