package payoff

import (
	"math"

	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/loans"
	"github.com/iwvelando/debt-snowball/pkg/mathutil"
)

// Position is the engine's working copy of one debt for one month.
type Position struct {
	ID                string
	Name              string
	Balance           float64
	AnnualRatePercent float64
	MinimumPayment    float64
}

// Movement is what happened to one position during a month.
type Movement struct {
	Interest  float64
	Principal float64
}

// Active reports whether the position still receives payments.
func (p Position) Active() bool {
	return !mathutil.IsPaidOff(p.Balance)
}

// NewPositions copies debts into working positions. Sub-cent balances start
// retired.
func NewPositions(debts []debt.Debt) []Position {
	positions := make([]Position, len(debts))
	for i, d := range debts {
		positions[i] = Position{
			ID:                d.ID,
			Name:              d.Name,
			Balance:           settle(d.Balance),
			AnnualRatePercent: d.AnnualRatePercent,
			MinimumPayment:    d.MinimumPayment,
		}
	}
	return positions
}

// Accrue applies one month of interest and minimum payments to every active
// position and returns the new positions alongside each position's movement.
// A minimum that does not exceed the interest contributes no principal, so the
// balance holds still.
func Accrue(positions []Position) ([]Position, []Movement) {
	next := make([]Position, len(positions))
	moves := make([]Movement, len(positions))
	copy(next, positions)
	for i, p := range positions {
		if !p.Active() {
			continue
		}
		interest := loans.CalculateInterestPayment(p.Balance, p.AnnualRatePercent)
		principal := loans.CalculatePrincipalPayment(p.MinimumPayment, interest)
		remaining, applied := loans.ApplyPrincipal(p.Balance, principal)
		next[i].Balance = settle(remaining)
		moves[i] = Movement{Interest: interest, Principal: applied}
	}
	return next, moves
}

// Allocate applies spare capacity to the positions in priority order, each
// payment capped at the target's remaining balance. Under CascadeNone only the
// first still-active position in order is paid; under CascadeNext any leftover
// flows on to the following ones. It returns the new positions, the updated
// movements and the amount that could not be placed.
func Allocate(positions []Position, moves []Movement, order []int, spare float64, cascade CascadePolicy) ([]Position, []Movement, float64) {
	next := make([]Position, len(positions))
	nextMoves := make([]Movement, len(moves))
	copy(next, positions)
	copy(nextMoves, moves)
	if spare <= 0 {
		return next, nextMoves, math.Max(spare, 0)
	}
	for _, i := range order {
		if !next[i].Active() {
			continue
		}
		remaining, applied := loans.ApplyPrincipal(next[i].Balance, spare)
		next[i].Balance = settle(remaining)
		nextMoves[i].Principal += applied
		spare -= applied
		if cascade != CascadeNext || spare <= 0 {
			break
		}
	}
	return next, nextMoves, spare
}

// Capacity is the monthly snowball budget: the extra payment plus the
// minimums of every debt that starts with a balance. Minimums of retired
// debts stay in the budget, which is what makes the snowball grow.
func Capacity(positions []Position, extra float64) float64 {
	capacity := extra
	for _, p := range positions {
		if p.Active() {
			capacity += p.MinimumPayment
		}
	}
	return capacity
}

// settle snaps sub-cent residue to zero so retired debts stop contributing to
// totals.
func settle(balance float64) float64 {
	if mathutil.IsPaidOff(balance) {
		return 0
	}
	return balance
}
