// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/debt-snowball/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// IsPaidOff reports whether a balance is below the one-cent epsilon and
// should be treated as zero.
func IsPaidOff(balance float64) bool {
	return balance < constants.CurrencyTolerance
}

// MonthlyRate converts an annual percentage rate into a monthly fraction.
func MonthlyRate(annualRatePercent float64) float64 {
	return annualRatePercent / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}
