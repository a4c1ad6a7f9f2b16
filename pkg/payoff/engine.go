package payoff

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/loans"
	"github.com/iwvelando/debt-snowball/pkg/mathutil"
	"go.uber.org/zap"
)

// ErrInvalidOptions is wrapped by every option validation failure.
var ErrInvalidOptions = errors.New("invalid payoff options")

// Options parameterise a simulation.
type Options struct {
	// ExtraPayment is paid every month on top of the minimums (snowball only).
	ExtraPayment float64
	// HorizonMonths caps the simulation; zero selects DefaultHorizonMonths.
	HorizonMonths int
	// Cascade decides whether leftover snowball capacity flows to the next
	// debt within the same month.
	Cascade CascadePolicy
}

// Validate reports whether the options are usable.
func (o Options) Validate() error {
	_, err := o.normalized()
	return err
}

func (o Options) normalized() (Options, error) {
	if math.IsNaN(o.ExtraPayment) || math.IsInf(o.ExtraPayment, 0) || o.ExtraPayment < 0 {
		return o, fmt.Errorf("%w: extra payment must be a non-negative number, got %v", ErrInvalidOptions, o.ExtraPayment)
	}
	if o.HorizonMonths < 0 {
		return o, fmt.Errorf("%w: horizon must not be negative, got %d", ErrInvalidOptions, o.HorizonMonths)
	}
	if o.HorizonMonths == 0 {
		o.HorizonMonths = constants.DefaultHorizonMonths
	}
	cascade, err := ParseCascade(string(o.Cascade))
	if err != nil {
		return o, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	o.Cascade = cascade
	return o, nil
}

// DebtBalance is one debt's line in a month snapshot.
type DebtBalance struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Balance   float64 `json:"balance"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
}

// MonthSnapshot is one row of a schedule. Month 0 is the starting position.
type MonthSnapshot struct {
	Month        int           `json:"month"`
	Debts        []DebtBalance `json:"debts"`
	Total        float64       `json:"total"`
	InterestPaid float64       `json:"interestPaid"`
}

// Balance returns the balance of the first debt with the given name.
func (s MonthSnapshot) Balance(name string) (float64, bool) {
	for _, d := range s.Debts {
		if d.Name == name {
			return d.Balance, true
		}
	}
	return 0, false
}

// Result is a finished scenario.
type Result struct {
	Strategy      Strategy        `json:"strategy"`
	ExtraPayment  float64         `json:"extraPayment"`
	HorizonMonths int             `json:"horizonMonths"`
	Cascade       CascadePolicy   `json:"cascade"`
	Snapshots     []MonthSnapshot `json:"snapshots"`
	// PaidOff is false when the horizon was reached with a balance left.
	PaidOff bool `json:"paidOff"`
	// TotalMonths is the payoff month when PaidOff, otherwise the horizon.
	TotalMonths       int     `json:"totalMonths"`
	TotalInterestPaid float64 `json:"totalInterestPaid"`
}

// Engine runs payoff simulations. An Engine holds no per-run state, so one
// value can serve concurrent runs.
type Engine struct {
	logger *zap.Logger
	opts   Options
}

// NewEngine creates an engine. If logger is nil, a no-op logger is used.
func NewEngine(logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, opts: opts}
}

// Run validates the debts and options and simulates one strategy. Invalid
// input is rejected before any simulation work starts.
func (e *Engine) Run(debts []debt.Debt, strategy Strategy) (*Result, error) {
	opts, err := e.opts.normalized()
	if err != nil {
		return nil, err
	}
	if err := debt.ValidateSet(debts); err != nil {
		return nil, fmt.Errorf("invalid debts: %w", err)
	}

	result := &Result{
		Strategy:      strategy,
		ExtraPayment:  opts.ExtraPayment,
		HorizonMonths: opts.HorizonMonths,
		Cascade:       opts.Cascade,
	}

	switch strategy {
	case DoNothing:
		e.runDoNothing(debts, result)
	case MinimumOnly, Snowball:
		e.runPayments(debts, strategy, opts, result)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	if result.PaidOff {
		e.logger.Debug(fmt.Sprintf("%s: debts paid off after %d months", strategy, result.TotalMonths),
			zap.String("op", "payoff.Run"),
			zap.Float64("interest", result.TotalInterestPaid),
		)
	} else {
		e.logger.Debug(fmt.Sprintf("%s: horizon of %d months reached without payoff", strategy, opts.HorizonMonths),
			zap.String("op", "payoff.Run"),
			zap.Float64("remaining", result.Snapshots[len(result.Snapshots)-1].Total),
		)
	}
	return result, nil
}

// runPayments drives the month loop for the paying strategies.
func (e *Engine) runPayments(debts []debt.Debt, strategy Strategy, opts Options, result *Result) {
	state := NewPositions(debts)
	capacity := Capacity(state, opts.ExtraPayment)
	var interestPaid float64

	result.Snapshots = append(result.Snapshots, snapshot(0, state, nil, 0))
	if mathutil.IsPaidOff(total(state)) {
		result.PaidOff = true
		return
	}

	for month := 1; month <= opts.HorizonMonths; month++ {
		order := Order(state)
		spare := capacity - Capacity(state, 0)

		next, moves := Accrue(state)
		if strategy == Snowball {
			next, moves, _ = Allocate(next, moves, order, spare, opts.Cascade)
		}

		for i, m := range moves {
			interestPaid += m.Interest
			if state[i].Active() && !next[i].Active() {
				e.logger.Debug(fmt.Sprintf("month %d: %s paid off", month, next[i].Name),
					zap.String("op", "payoff.runPayments"),
					zap.String("strategy", string(strategy)),
					zap.String("debt", next[i].ID),
				)
			}
		}

		state = next
		result.Snapshots = append(result.Snapshots, snapshot(month, state, moves, interestPaid))
		result.TotalMonths = month
		if mathutil.IsPaidOff(total(state)) {
			result.PaidOff = true
			break
		}
	}
	result.TotalInterestPaid = interestPaid
}

// runDoNothing evaluates the closed-form compounding of every balance for each
// month up to the horizon. Only an empty or already-cleared portfolio pays off.
func (e *Engine) runDoNothing(debts []debt.Debt, result *Result) {
	start := NewPositions(debts)
	startTotal := total(start)

	result.Snapshots = append(result.Snapshots, snapshot(0, start, nil, 0))
	if mathutil.IsPaidOff(startTotal) {
		result.PaidOff = true
		return
	}

	previous := start
	for month := 1; month <= result.HorizonMonths; month++ {
		current := Compound(start, month)
		moves := make([]Movement, len(current))
		for i := range current {
			moves[i].Interest = current[i].Balance - previous[i].Balance
		}
		accrued := total(current) - startTotal
		result.Snapshots = append(result.Snapshots, snapshot(month, current, moves, accrued))
		previous = current
	}
	result.TotalMonths = result.HorizonMonths
	result.TotalInterestPaid = total(previous) - startTotal
}

// Compound returns the positions after the given number of months with no
// payments: balance(t) = balance(0) * (1 + rate/1200)^t.
func Compound(start []Position, month int) []Position {
	out := make([]Position, len(start))
	copy(out, start)
	for i := range out {
		out[i].Balance = loans.CompoundBalance(start[i].Balance, start[i].AnnualRatePercent, month)
	}
	return out
}

func snapshot(month int, positions []Position, moves []Movement, interestPaid float64) MonthSnapshot {
	s := MonthSnapshot{
		Month:        month,
		Debts:        make([]DebtBalance, len(positions)),
		InterestPaid: interestPaid,
	}
	for i, p := range positions {
		s.Debts[i] = DebtBalance{ID: p.ID, Name: p.Name, Balance: p.Balance}
		if moves != nil {
			s.Debts[i].Interest = moves[i].Interest
			s.Debts[i].Principal = moves[i].Principal
		}
		s.Total += p.Balance
	}
	return s
}

func total(positions []Position) float64 {
	var sum float64
	for _, p := range positions {
		sum += p.Balance
	}
	return sum
}
