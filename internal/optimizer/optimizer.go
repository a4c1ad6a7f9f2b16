// Package optimizer searches for the smallest extra monthly payment that makes
// a snowball plan debt free within a target number of months.
package optimizer

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/format"
	"github.com/iwvelando/debt-snowball/pkg/mathutil"
	"github.com/iwvelando/debt-snowball/pkg/optimization"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"go.uber.org/zap"
)

// MaxIterations bounds the bisection. Cent resolution over any realistic
// range converges well inside it.
const MaxIterations = 64

// ErrInvalidTarget is returned for a target month below one.
var ErrInvalidTarget = errors.New("invalid target months")

// Runner solves for extra payments over one debt set.
type Runner struct {
	logger *zap.Logger
	debts  []debt.Debt
	opts   payoff.Options
}

type evaluation struct {
	value    float64
	months   int
	horizon  int
	paidOff  bool
	interest float64
}

func (e evaluation) feasible(target int) bool {
	return e.paidOff && e.months <= target
}

// NewRunner validates debts and opts and constructs a Runner.
func NewRunner(logger *zap.Logger, debts []debt.Debt, opts payoff.Options) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := debt.ValidateSet(debts); err != nil {
		return nil, fmt.Errorf("invalid debts: %w", err)
	}
	return &Runner{logger: logger, debts: debts, opts: opts}, nil
}

// Solve finds the smallest extra payment in [0, maxExtra] that pays every
// debt off within targetMonths. A maxExtra of zero or less searches up to the
// total balance. The horizon is extended to targetMonths when shorter.
func (r *Runner) Solve(targetMonths int, maxExtra float64) (optimization.Summary, error) {
	if targetMonths <= 0 {
		return optimization.Summary{}, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTarget, targetMonths)
	}
	if math.IsNaN(maxExtra) || math.IsInf(maxExtra, 0) {
		return optimization.Summary{}, fmt.Errorf("max extra must be a finite number, got %v", maxExtra)
	}
	if maxExtra <= 0 {
		maxExtra = debt.Summarize(r.debts).TotalBalance
	}
	maxExtra = mathutil.Round(maxExtra)

	opts := r.opts
	if opts.HorizonMonths == 0 {
		opts.HorizonMonths = constants.DefaultHorizonMonths
	}
	if opts.HorizonMonths < targetMonths {
		opts.HorizonMonths = targetMonths
	}

	original, err := r.evaluate(opts, r.opts.ExtraPayment)
	if err != nil {
		return optimization.Summary{}, err
	}
	summary := optimization.Summary{
		TargetMonths:  targetMonths,
		OriginalExtra: r.opts.ExtraPayment,
		MaxExtra:      maxExtra,
	}

	lower, err := r.evaluate(opts, 0)
	if err != nil {
		return optimization.Summary{}, err
	}
	if lower.feasible(targetMonths) {
		summary.Notes = append(summary.Notes, "minimum payments alone meet the target")
		r.fill(&summary, lower, original, 0, true)
		return summary, nil
	}

	upper, err := r.evaluate(opts, maxExtra)
	if err != nil {
		return optimization.Summary{}, err
	}
	if !upper.feasible(targetMonths) {
		summary.Notes = append(summary.Notes, fmt.Sprintf(
			"unable to pay off within %s with an extra payment of up to %s",
			format.Months(targetMonths),
			format.NumericCurrency(maxExtra),
		))
		r.fill(&summary, upper, original, 0, false)
		return summary, nil
	}

	// Bisect over whole cents: lo is always infeasible and hi feasible.
	lo, hi := int64(0), int64(math.Round(maxExtra*100))
	best := upper
	iterations := 0
	for hi-lo > 1 && iterations < MaxIterations {
		iterations++
		mid := lo + (hi-lo)/2
		eval, err := r.evaluate(opts, float64(mid)/100)
		if err != nil {
			return optimization.Summary{}, err
		}
		if eval.feasible(targetMonths) {
			hi, best = mid, eval
		} else {
			lo = mid
		}
	}

	converged := hi-lo <= 1
	r.fill(&summary, best, original, iterations, converged)
	r.logger.Info("extra payment solved",
		zap.String("op", "optimizer.Solve"),
		zap.Int("targetMonths", targetMonths),
		zap.Float64("extra", summary.Extra),
		zap.Int("months", summary.Months),
		zap.Int("iterations", iterations),
		zap.Bool("converged", converged),
	)
	return summary, nil
}

func (r *Runner) fill(s *optimization.Summary, eval, original evaluation, iterations int, converged bool) {
	s.Extra = eval.value
	s.Months = eval.months
	s.PaidOff = eval.paidOff
	s.InterestPaid = mathutil.Round(eval.interest)
	s.SavingComparable = original.paidOff && eval.paidOff
	switch {
	case s.SavingComparable:
		s.InterestSaved = mathutil.Round(original.interest - eval.interest)
	case !original.paidOff:
		s.Notes = append(s.Notes, fmt.Sprintf(
			"no interest saving reported: an extra payment of %s does not pay off within %s",
			format.NumericCurrency(original.value), format.Months(original.horizon)))
	default:
		s.Notes = append(s.Notes, "no interest saving reported: the best extra payment tried does not pay off")
	}
	s.Iterations = iterations
	s.Converged = converged
}

func (r *Runner) evaluate(opts payoff.Options, extra float64) (evaluation, error) {
	opts.ExtraPayment = extra
	result, err := payoff.NewEngine(r.logger, opts).Run(r.debts, payoff.Snowball)
	if err != nil {
		return evaluation{}, fmt.Errorf("optimizer evaluation failed: %w", err)
	}
	return evaluation{
		value:    extra,
		months:   result.TotalMonths,
		horizon:  result.HorizonMonths,
		paidOff:  result.PaidOff,
		interest: result.TotalInterestPaid,
	}, nil
}
