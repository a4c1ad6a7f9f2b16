package payoff

import (
	"sort"

	"github.com/iwvelando/debt-snowball/pkg/mathutil"
)

// Order returns the indices of the active positions in snowball priority:
// ascending by current balance, with equal balances kept in input order.
// Retired positions are left out.
func Order(positions []Position) []int {
	order := make([]int, 0, len(positions))
	for i, p := range positions {
		if !mathutil.IsPaidOff(p.Balance) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return positions[order[a]].Balance < positions[order[b]].Balance
	})
	return order
}
