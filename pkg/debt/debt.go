// Package debt defines the debt record that feeds the payoff engine, together
// with its validation rules and portfolio-level summaries.
package debt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/iwvelando/debt-snowball/pkg/mathutil"
	"go.uber.org/multierr"
)

// Debt is one liability. The engine treats it as read-only and works on its
// own copies during a simulation.
type Debt struct {
	ID                string   `json:"id" yaml:"id" mapstructure:"id"`
	Name              string   `json:"name" yaml:"name" mapstructure:"name"`
	Balance           float64  `json:"balance" yaml:"balance" mapstructure:"balance"`
	AnnualRatePercent float64  `json:"rate" yaml:"rate" mapstructure:"rate"`
	MinimumPayment    float64  `json:"minimumPayment" yaml:"minimumPayment" mapstructure:"minimumPayment"`
	CreditLimit       *float64 `json:"creditLimit,omitempty" yaml:"creditLimit,omitempty" mapstructure:"creditLimit"`
	Notes             string   `json:"notes,omitempty" yaml:"notes,omitempty" mapstructure:"notes"`
}

// Validation failures. Each returned error wraps one of these so callers can
// test with errors.Is.
var (
	ErrMissingID           = errors.New("id must not be empty")
	ErrDuplicateID         = errors.New("id is not unique within the debt set")
	ErrEmptyName           = errors.New("name must not be empty")
	ErrNegativeBalance     = errors.New("balance must not be negative")
	ErrNegativeRate        = errors.New("annual rate must not be negative")
	ErrNegativePayment     = errors.New("minimum payment must not be negative")
	ErrNegativeCreditLimit = errors.New("credit limit must not be negative")
	ErrNotFinite           = errors.New("value must be a finite number")
)

// ValidationError ties the problems found on one debt to its position in the
// submitted set.
type ValidationError struct {
	Index int
	ID    string
	Name  string
	Err   error
}

func (e *ValidationError) Error() string {
	label := e.Name
	if label == "" {
		label = e.ID
	}
	if label == "" {
		label = "#" + strconv.Itoa(e.Index+1)
	}
	return fmt.Sprintf("debt %s: %v", label, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsPaidOff reports whether the balance is below the one-cent epsilon.
func (d Debt) IsPaidOff() bool {
	return mathutil.IsPaidOff(d.Balance)
}

// Utilization returns the balance as a percentage of the credit limit. The
// second result is false when no usable limit is recorded.
func (d Debt) Utilization() (float64, bool) {
	if d.CreditLimit == nil || *d.CreditLimit <= 0 {
		return 0, false
	}
	return mathutil.CalculatePercentage(d.Balance, *d.CreditLimit), true
}

// Validate checks the fields of a single debt and reports every problem found.
func (d Debt) Validate() error {
	var errs error
	if strings.TrimSpace(d.ID) == "" {
		errs = multierr.Append(errs, ErrMissingID)
	}
	if strings.TrimSpace(d.Name) == "" {
		errs = multierr.Append(errs, ErrEmptyName)
	}
	errs = multierr.Append(errs, checkAmount("balance", d.Balance, ErrNegativeBalance))
	errs = multierr.Append(errs, checkAmount("rate", d.AnnualRatePercent, ErrNegativeRate))
	errs = multierr.Append(errs, checkAmount("minimumPayment", d.MinimumPayment, ErrNegativePayment))
	if d.CreditLimit != nil {
		errs = multierr.Append(errs, checkAmount("creditLimit", *d.CreditLimit, ErrNegativeCreditLimit))
	}
	return errs
}

func checkAmount(field string, value float64, negative error) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s: %w", field, ErrNotFinite)
	}
	if value < 0 {
		return fmt.Errorf("%w (got %.2f)", negative, value)
	}
	return nil
}

// ValidateSet validates every debt in the set and checks that IDs are unique.
// All problems are returned together, each wrapped in a *ValidationError.
func ValidateSet(debts []Debt) error {
	var errs error
	seen := make(map[string]int, len(debts))
	for i, d := range debts {
		err := d.Validate()
		if d.ID != "" {
			if first, dup := seen[d.ID]; dup {
				err = multierr.Append(err, fmt.Errorf("%w (also used by debt #%d)", ErrDuplicateID, first+1))
			} else {
				seen[d.ID] = i
			}
		}
		if err != nil {
			errs = multierr.Append(errs, &ValidationError{Index: i, ID: d.ID, Name: d.Name, Err: err})
		}
	}
	return errs
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/iwvelando/debt-snowball/debt"))

// DefaultID derives a stable identifier from a debt's position and name, so a
// configuration file without explicit IDs yields the same IDs on every load.
func DefaultID(index int, name string) string {
	return uuid.NewSHA1(idNamespace, []byte(strconv.Itoa(index)+":"+name)).String()
}

// WithDefaultIDs returns a copy of debts in which every missing ID is filled
// with DefaultID.
func WithDefaultIDs(debts []Debt) []Debt {
	out := make([]Debt, len(debts))
	copy(out, debts)
	for i := range out {
		if strings.TrimSpace(out[i].ID) == "" {
			out[i].ID = DefaultID(i, out[i].Name)
		}
	}
	return out
}
