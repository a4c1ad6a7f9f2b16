package payoff

import (
	"fmt"

	"github.com/iwvelando/debt-snowball/pkg/mathutil"
)

// DebtPayoff is the month a single debt was cleared in a scenario.
type DebtPayoff struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	PaidOff bool   `json:"paidOff"`
	Month   int    `json:"month,omitempty"`
}

// Metrics summarise a finished scenario. TotalMonths is only meaningful when
// PaidOff is true; a scenario that reached its horizon did not pay off and has
// no payoff month.
type Metrics struct {
	Strategy          Strategy     `json:"strategy"`
	PaidOff           bool         `json:"paidOff"`
	TotalMonths       int          `json:"totalMonths,omitempty"`
	HorizonMonths     int          `json:"horizonMonths"`
	TotalInterestPaid float64      `json:"totalInterestPaid"`
	Debts             []DebtPayoff `json:"debts"`
}

// PayoffMonth returns the payoff month and true, or 0 and false when the
// scenario did not pay off within its horizon.
func (m Metrics) PayoffMonth() (int, bool) {
	if !m.PaidOff {
		return 0, false
	}
	return m.TotalMonths, true
}

// Metrics derives payoff metrics from the snapshots of a result.
func (r *Result) Metrics() Metrics {
	m := Metrics{
		Strategy:      r.Strategy,
		HorizonMonths: r.HorizonMonths,
	}
	if len(r.Snapshots) == 0 {
		return m
	}

	for _, s := range r.Snapshots {
		if mathutil.IsPaidOff(s.Total) {
			m.PaidOff = true
			m.TotalMonths = s.Month
			break
		}
	}
	m.TotalInterestPaid = r.Snapshots[len(r.Snapshots)-1].InterestPaid

	first := r.Snapshots[0]
	m.Debts = make([]DebtPayoff, len(first.Debts))
	for i, d := range first.Debts {
		m.Debts[i] = DebtPayoff{ID: d.ID, Name: d.Name}
	}
	for _, s := range r.Snapshots {
		for i, d := range s.Debts {
			if !m.Debts[i].PaidOff && mathutil.IsPaidOff(d.Balance) {
				m.Debts[i].PaidOff = true
				m.Debts[i].Month = s.Month
			}
		}
	}
	return m
}

// Comparison is the difference between a baseline and a candidate scenario.
// When either side did not pay off within its horizon the savings cannot be
// quantified: Comparable is false and Reason says why.
type Comparison struct {
	Baseline      Strategy `json:"baseline"`
	Candidate     Strategy `json:"candidate"`
	Comparable    bool     `json:"comparable"`
	MonthsSaved   int      `json:"monthsSaved,omitempty"`
	InterestSaved float64  `json:"interestSaved,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// Compare reports how many months and how much interest the candidate saves
// relative to the baseline.
func Compare(baseline, candidate Metrics) Comparison {
	c := Comparison{Baseline: baseline.Strategy, Candidate: candidate.Strategy}
	switch {
	case !baseline.PaidOff && !candidate.PaidOff:
		c.Reason = fmt.Sprintf("neither %s nor %s pays off within the horizon", baseline.Strategy, candidate.Strategy)
	case !baseline.PaidOff:
		c.Reason = fmt.Sprintf("%s does not pay off within %d months", baseline.Strategy, baseline.HorizonMonths)
	case !candidate.PaidOff:
		c.Reason = fmt.Sprintf("%s does not pay off within %d months", candidate.Strategy, candidate.HorizonMonths)
	default:
		c.Comparable = true
		c.MonthsSaved = baseline.TotalMonths - candidate.TotalMonths
		c.InterestSaved = mathutil.Round(baseline.TotalInterestPaid - candidate.TotalInterestPaid)
	}
	return c
}
