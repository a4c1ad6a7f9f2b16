// Package coach builds the export document handed to the external coaching
// workflow and encodes it as JSON, YAML or TOML.
package coach

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/iwvelando/debt-snowball/internal/scenario"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/datetime"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"github.com/iwvelando/debt-snowball/pkg/validation"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrNoSnowball is returned by FromReport when the report lacks a snowball run.
var ErrNoSnowball = errors.New("report has no snowball scenario")

// Document is the coach export.
type Document struct {
	GeneratedDate        string           `json:"generated_date" yaml:"generated_date" toml:"generated_date"`
	TotalDebt            float64          `json:"total_debt" yaml:"total_debt" toml:"total_debt"`
	TotalMinimumPayments float64          `json:"total_minimum_payments" yaml:"total_minimum_payments" toml:"total_minimum_payments"`
	NumberOfDebts        int              `json:"number_of_debts" yaml:"number_of_debts" toml:"number_of_debts"`
	Debts                []Debt           `json:"debts" yaml:"debts" toml:"debts"`
	SnowballOrder        []OrderEntry     `json:"snowball_order" yaml:"snowball_order" toml:"snowball_order"`
	FinancialSummary     FinancialSummary `json:"financial_summary" yaml:"financial_summary" toml:"financial_summary"`
}

// Debt is one debt as the coach sees it.
type Debt struct {
	Name           string   `json:"name" yaml:"name" toml:"name"`
	Balance        float64  `json:"balance" yaml:"balance" toml:"balance"`
	InterestRate   float64  `json:"interest_rate" yaml:"interest_rate" toml:"interest_rate"`
	MinimumPayment float64  `json:"minimum_payment" yaml:"minimum_payment" toml:"minimum_payment"`
	DebtType       DebtType `json:"debt_type" yaml:"debt_type" toml:"debt_type"`
}

// OrderEntry is a position in the snowball order, starting at 1.
type OrderEntry struct {
	Order   int     `json:"order" yaml:"order" toml:"order"`
	Name    string  `json:"name" yaml:"name" toml:"name"`
	Balance float64 `json:"balance" yaml:"balance" toml:"balance"`
}

// FinancialSummary projects the snowball plan. The payoff fields are nil when
// the plan does not pay off within its horizon.
type FinancialSummary struct {
	EstimatedPayoffMonths *int    `json:"estimated_payoff_months" yaml:"estimated_payoff_months" toml:"estimated_payoff_months,omitempty"`
	EstimatedPayoffYears  *int    `json:"estimated_payoff_years" yaml:"estimated_payoff_years" toml:"estimated_payoff_years,omitempty"`
	CurrentExtraPayment   float64 `json:"current_extra_payment" yaml:"current_extra_payment" toml:"current_extra_payment"`
	DebtFreeDate          *string `json:"debt_free_date" yaml:"debt_free_date" toml:"debt_free_date,omitempty"`
}

// Build assembles the export from the debts, the extra payment and the metrics
// of a snowball run. now fixes the generated and debt-free dates.
func Build(debts []debt.Debt, extraPayment float64, snowball payoff.Metrics, now time.Time) Document {
	doc := Document{
		GeneratedDate: datetime.ISODate(now),
		NumberOfDebts: len(debts),
		Debts:         make([]Debt, len(debts)),
		SnowballOrder: []OrderEntry{},
	}

	totalDebt := decimal.Zero
	totalMinimum := decimal.Zero
	for i, d := range debts {
		totalDebt = totalDebt.Add(decimal.NewFromFloat(d.Balance))
		totalMinimum = totalMinimum.Add(decimal.NewFromFloat(d.MinimumPayment))
		doc.Debts[i] = Debt{
			Name:           d.Name,
			Balance:        money(d.Balance),
			InterestRate:   money(d.AnnualRatePercent),
			MinimumPayment: money(d.MinimumPayment),
			DebtType:       Classify(d.Name),
		}
	}
	doc.TotalDebt = totalDebt.Round(2).InexactFloat64()
	doc.TotalMinimumPayments = totalMinimum.Round(2).InexactFloat64()

	positions := payoff.NewPositions(debts)
	for rank, i := range payoff.Order(positions) {
		doc.SnowballOrder = append(doc.SnowballOrder, OrderEntry{
			Order:   rank + 1,
			Name:    positions[i].Name,
			Balance: money(positions[i].Balance),
		})
	}

	doc.FinancialSummary.CurrentExtraPayment = money(extraPayment)
	if months, ok := snowball.PayoffMonth(); ok {
		years := int(math.Ceil(float64(months) / constants.MonthsPerYear))
		date := datetime.ISODate(datetime.AddMonths(now, months))
		doc.FinancialSummary.EstimatedPayoffMonths = &months
		doc.FinancialSummary.EstimatedPayoffYears = &years
		doc.FinancialSummary.DebtFreeDate = &date
	}
	return doc
}

// FromReport builds the export from a plan report that includes a snowball
// scenario.
func FromReport(report *scenario.Report, debts []debt.Debt, now time.Time) (Document, error) {
	sc, ok := report.Scenario(payoff.Snowball)
	if !ok {
		return Document{}, ErrNoSnowball
	}
	return Build(debts, sc.Result.ExtraPayment, sc.Metrics, now), nil
}

// Encode writes doc to w in the given export format.
func Encode(w io.Writer, doc Document, format string) error {
	if err := validation.ValidateExportFormat(format); err != nil {
		return err
	}
	switch format {
	case constants.ExportFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml export: %w", err)
		}
		return enc.Close()
	case constants.ExportFormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode toml export: %w", err)
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json export: %w", err)
		}
		return nil
	}
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch format {
	case constants.ExportFormatYAML:
		return "application/yaml"
	case constants.ExportFormatTOML:
		return "application/toml"
	}
	return "application/json"
}

func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
