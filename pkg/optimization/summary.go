// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of solving for the extra monthly payment that
// clears a portfolio by a target month under the snowball strategy.
type Summary struct {
	TargetMonths  int     `json:"targetMonths"`
	OriginalExtra float64 `json:"originalExtra"`
	// Extra is the smallest extra payment, to the cent, that meets the target.
	// When Converged is false it is the best value tried.
	Extra        float64 `json:"extra"`
	MaxExtra     float64 `json:"maxExtra"`
	Months       int     `json:"months"`
	PaidOff      bool    `json:"paidOff"`
	InterestPaid float64 `json:"interestPaid"`
	// InterestSaved compares against the original extra payment; it is
	// negative when meeting the target costs more interest. It is only set
	// when SavingComparable, which needs both plans to pay off.
	SavingComparable bool     `json:"savingComparable"`
	InterestSaved    float64  `json:"interestSaved,omitempty"`
	Iterations       int      `json:"iterations"`
	Converged        bool     `json:"converged"`
	Notes            []string `json:"notes,omitempty"`
}
