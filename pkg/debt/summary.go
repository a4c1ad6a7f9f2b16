package debt

import (
	"github.com/iwvelando/debt-snowball/pkg/loans"
	"github.com/iwvelando/debt-snowball/pkg/mathutil"
)

// Advisory notes attached to debts by Note.
const (
	NotePromotional     = "0% promotional rate"
	NoteHighUtilization = "High utilization - consider transfer"
	NoteHighInterest    = "High interest rate"
	NoteGoodUtilization = "Good utilization level"
)

// Summary aggregates a debt portfolio as it stands today.
type Summary struct {
	Count               int     `json:"count"`
	TotalBalance        float64 `json:"totalBalance"`
	TotalMinimum        float64 `json:"totalMinimumPayments"`
	WeightedAverageRate float64 `json:"weightedAverageRate"`
	MonthlyInterest     float64 `json:"monthlyInterest"`
	AnnualInterestCost  float64 `json:"annualInterestCost"`
}

// Summarize totals balances and minimums, computes the balance-weighted
// average rate and the interest the portfolio accrues per month and per year
// if nothing is paid.
func Summarize(debts []Debt) Summary {
	var s Summary
	var weighted float64
	for _, d := range debts {
		s.Count++
		s.TotalBalance += d.Balance
		s.TotalMinimum += d.MinimumPayment
		s.MonthlyInterest += loans.CalculateInterestPayment(d.Balance, d.AnnualRatePercent)
		weighted += d.AnnualRatePercent * d.Balance
	}
	if s.TotalBalance > 0 {
		s.WeightedAverageRate = weighted / s.TotalBalance
	}
	s.AnnualInterestCost = s.MonthlyInterest * 12
	return s
}

// Note returns an advisory note for a debt, or "" when nothing stands out.
// The first matching rule wins.
func Note(d Debt) string {
	utilization, hasLimit := d.Utilization()
	return note(d.AnnualRatePercent, utilization, hasLimit)
}

// NoteWithUtilization is Note with a known utilisation percentage in place of
// balance over credit limit.
func NoteWithUtilization(d Debt, utilization float64) string {
	return note(d.AnnualRatePercent, utilization, true)
}

func note(rate, utilization float64, hasLimit bool) string {
	switch {
	case rate == 0:
		return NotePromotional
	case hasLimit && utilization > 80:
		return NoteHighUtilization
	case rate > 30:
		return NoteHighInterest
	case hasLimit && utilization < 30:
		return NoteGoodUtilization
	}
	return ""
}

// Annotate returns a copy of debts where every record without notes carries
// its advisory note.
func Annotate(debts []Debt) []Debt {
	out := make([]Debt, len(debts))
	copy(out, debts)
	for i := range out {
		if out[i].Notes == "" {
			out[i].Notes = Note(out[i])
		}
	}
	return out
}

// NegativeAmortization reports whether the minimum payment fails to exceed the
// debt's current monthly interest, so paying only the minimum never reduces it.
func NegativeAmortization(d Debt) bool {
	if d.IsPaidOff() {
		return false
	}
	interest := loans.CalculateInterestPayment(d.Balance, d.AnnualRatePercent)
	return mathutil.Round(d.MinimumPayment-interest) <= 0
}
