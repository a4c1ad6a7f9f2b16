// Package payoff simulates how a set of debts is paid down month by month
// under the do-nothing, minimum-only and snowball strategies, and derives the
// payoff metrics used to compare them.
//
// Every run is a pure function of its inputs: the caller's debts are copied
// into working positions, each simulated month produces a new set of
// positions, and identical inputs always produce identical results.
package payoff

import (
	"fmt"
	"strings"
)

// Strategy selects how a scenario pays its debts.
type Strategy string

const (
	// DoNothing makes no payments; balances compound at their monthly rate.
	DoNothing Strategy = "none"
	// MinimumOnly pays each debt's contractual minimum and nothing more.
	MinimumOnly Strategy = "minimum"
	// Snowball pays every minimum and directs all spare capacity, including
	// minimums freed by retired debts, at the smallest remaining balance.
	Snowball Strategy = "snowball"
)

// Strategies lists every strategy in presentation order.
func Strategies() []Strategy {
	return []Strategy{DoNothing, MinimumOnly, Snowball}
}

// Label is the human-readable name of a strategy.
func (s Strategy) Label() string {
	switch s {
	case DoNothing:
		return "Do nothing"
	case MinimumOnly:
		return "Minimum payments only"
	case Snowball:
		return "Snowball"
	}
	return string(s)
}

// ParseStrategy accepts the canonical strategy names and a few common aliases.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "nothing", "do-nothing", "do_nothing", "donothing":
		return DoNothing, nil
	case "minimum", "min", "minimum-only", "minimum_only", "minimumonly":
		return MinimumOnly, nil
	case "snowball":
		return Snowball, nil
	}
	return "", fmt.Errorf("unknown strategy %q: expected one of %s, %s, %s", value, DoNothing, MinimumOnly, Snowball)
}

// CascadePolicy decides what happens to spare snowball capacity left over
// after the priority debt is retired mid-month.
type CascadePolicy string

const (
	// CascadeNone drops the leftover for that month.
	CascadeNone CascadePolicy = "none"
	// CascadeNext applies the leftover to the next debts in priority order.
	CascadeNext CascadePolicy = "next"
)

// ParseCascade parses a cascade policy; an empty value selects CascadeNone.
func ParseCascade(value string) (CascadePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "off", "false":
		return CascadeNone, nil
	case "next", "on", "true":
		return CascadeNext, nil
	}
	return "", fmt.Errorf("unknown cascade policy %q: expected %s or %s", value, CascadeNone, CascadeNext)
}
