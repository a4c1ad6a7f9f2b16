// Package loans provides the per-month loan arithmetic shared by the payoff engine.
package loans

import (
	"math"

	"github.com/iwvelando/debt-snowball/pkg/mathutil"
)

// CalculateInterestPayment calculates one month of interest on a balance at a
// nominal annual percentage rate.
func CalculateInterestPayment(balance, annualRatePercent float64) float64 {
	return balance * mathutil.MonthlyRate(annualRatePercent)
}

// CalculatePrincipalPayment returns the part of a payment left for principal
// once the month's interest is covered. A payment that does not cover the
// interest contributes no principal.
func CalculatePrincipalPayment(payment, interest float64) float64 {
	return math.Max(0, payment-interest)
}

// ApplyPrincipal reduces a balance by a principal payment, never going below
// zero. It returns the new balance and the principal actually absorbed.
func ApplyPrincipal(balance, principal float64) (remaining, applied float64) {
	remaining = math.Max(0, balance-principal)
	return remaining, balance - remaining
}

// CompoundBalance returns the balance after the given number of months of
// monthly compounding with no payments.
func CompoundBalance(balance, annualRatePercent float64, months int) float64 {
	return balance * math.Pow(1+mathutil.MonthlyRate(annualRatePercent), float64(months))
}
