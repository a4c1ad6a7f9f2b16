// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/debt"
)

// ValidateDebt returns warnings for a debt that is legal but will probably not
// behave the way its owner expects in a plan.
func ValidateDebt(d debt.Debt) []string {
	var warnings []string

	switch {
	case d.IsPaidOff():
		warnings = append(warnings, fmt.Sprintf("Debt '%s' has no balance and is treated as paid off", d.Name))
	case debt.NegativeAmortization(d):
		warnings = append(warnings, fmt.Sprintf("Debt '%s' minimum payment %.2f does not cover its monthly interest; paying only the minimum never reduces it",
			d.Name, d.MinimumPayment))
	}

	if d.CreditLimit != nil && *d.CreditLimit > 0 && d.Balance > *d.CreditLimit {
		warnings = append(warnings, fmt.Sprintf("Debt '%s' balance %.2f exceeds its credit limit %.2f",
			d.Name, d.Balance, *d.CreditLimit))
	}

	return warnings
}

// ValidateHorizon warns about horizons too short to show a meaningful plan.
// Zero means the default horizon and is not reported.
func ValidateHorizon(months int) string {
	if months > 0 && months < constants.MonthsPerYear {
		return fmt.Sprintf("Plan horizon of %d months is shorter than a year", months)
	}
	return ""
}

// ValidateDebts validates every debt and returns all warnings in input order.
func ValidateDebts(debts []debt.Debt) []string {
	var warnings []string
	for _, d := range debts {
		warnings = append(warnings, ValidateDebt(d)...)
	}
	return warnings
}
