package config

import (
	"fmt"
	"io"

	"github.com/iwvelando/debt-snowball/pkg/debt"
	"gopkg.in/yaml.v3"
)

// DebtConfig is a debt as written in the configuration file. Rate is a
// pointer so an omitted rate can be told apart from a 0% promotion.
type DebtConfig struct {
	ID             string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string   `json:"name" yaml:"name"`
	Balance        float64  `json:"balance" yaml:"balance"`
	Rate           *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	MinimumPayment float64  `json:"minimumPayment" yaml:"minimumPayment"`
	CreditLimit    *float64 `json:"creditLimit,omitempty" yaml:"creditLimit,omitempty"`
	Notes          string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ToDebt converts the configured debt into an engine record, using
// defaultRate when no rate was given.
func (d DebtConfig) ToDebt(defaultRate float64) debt.Debt {
	rate := defaultRate
	if d.Rate != nil {
		rate = *d.Rate
	}
	return debt.Debt{
		ID:                d.ID,
		Name:              d.Name,
		Balance:           d.Balance,
		AnnualRatePercent: rate,
		MinimumPayment:    d.MinimumPayment,
		CreditLimit:       d.CreditLimit,
		Notes:             d.Notes,
	}
}

// FromDebt converts an engine record back into its configuration form.
func FromDebt(d debt.Debt) DebtConfig {
	rate := d.AnnualRatePercent
	return DebtConfig{
		ID:             d.ID,
		Name:           d.Name,
		Balance:        d.Balance,
		Rate:           &rate,
		MinimumPayment: d.MinimumPayment,
		CreditLimit:    d.CreditLimit,
		Notes:          d.Notes,
	}
}

// FromDebts builds a configuration that plans debts with the given extra
// payment and defaults for everything else.
func FromDebts(debts []debt.Debt, extraPayment float64) *Configuration {
	c := &Configuration{
		Plan:  PlanConfig{ExtraPayment: extraPayment},
		Debts: make([]DebtConfig, 0, len(debts)),
	}
	for _, d := range debts {
		c.Debts = append(c.Debts, FromDebt(d))
	}
	return c
}

// Encode writes the configuration as YAML that LoadConfiguration accepts.
func (c *Configuration) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}
