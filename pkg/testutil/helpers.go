// Package testutil provides common fixtures and helpers for testing.
package testutil

import (
	"github.com/iwvelando/debt-snowball/pkg/debt"
)

// WhatIfDebts is a seven-debt portfolio mixing 0% promotions with 20% cards.
// Virgin's minimum does not cover its interest.
func WhatIfDebts() []debt.Debt {
	return []debt.Debt{
		{ID: "paypal", Name: "PayPal", Balance: 875, AnnualRatePercent: 0, MinimumPayment: 50},
		{ID: "virgin", Name: "Virgin", Balance: 1654, AnnualRatePercent: 20, MinimumPayment: 24.9},
		{ID: "barclaycard", Name: "Barclaycard", Balance: 2930, AnnualRatePercent: 20, MinimumPayment: 56},
		{ID: "halifax-1", Name: "Halifax 1", Balance: 2975, AnnualRatePercent: 20, MinimumPayment: 131},
		{ID: "natwest", Name: "NatWest", Balance: 6486, AnnualRatePercent: 0, MinimumPayment: 55},
		{ID: "halifax-2", Name: "Halifax 2", Balance: 8823, AnnualRatePercent: 20, MinimumPayment: 254},
		{ID: "mbna", Name: "MBNA", Balance: 10198, AnnualRatePercent: 20, MinimumPayment: 311},
	}
}

// AmortizingDebts is a three-debt portfolio whose minimums all cover their
// interest.
func AmortizingDebts() []debt.Debt {
	return []debt.Debt{
		{ID: "card", Name: "Card", Balance: 2500, AnnualRatePercent: 22, MinimumPayment: 90},
		{ID: "loan", Name: "Loan", Balance: 6000, AnnualRatePercent: 8, MinimumPayment: 150},
		{ID: "store", Name: "Store Card", Balance: 600, AnnualRatePercent: 29, MinimumPayment: 30},
	}
}

// FindDebt finds a debt by ID in the slice.
// Returns a pointer to the debt if found, nil otherwise.
func FindDebt(debts []debt.Debt, id string) *debt.Debt {
	for i := range debts {
		if debts[i].ID == id {
			return &debts[i]
		}
	}
	return nil
}

// Float returns a pointer to v, for optional fields such as credit limits.
func Float(v float64) *float64 {
	return &v
}
