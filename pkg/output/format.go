// Package output provides utilities for formatting and displaying plan reports.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/debt-snowball/internal/scenario"
	"github.com/iwvelando/debt-snowball/pkg/format"
	"github.com/iwvelando/debt-snowball/pkg/mathutil"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, report *scenario.Report, symbol string) {
	p := message.NewPrinter(language.English)
	s := report.Summary

	_, _ = fmt.Fprintf(w, "--- Portfolio ---\n")
	_, _ = p.Fprintf(w, "Debts: %d | Total: %s%.2f | Minimums: %s%.2f/month | Average rate: %.2f%%\n",
		s.Count, symbol, s.TotalBalance, symbol, s.TotalMinimum, s.WeightedAverageRate)
	_, _ = p.Fprintf(w, "Interest accruing: %s%.2f/month (%s%.2f/year)\n\n",
		symbol, s.MonthlyInterest, symbol, s.AnnualInterestCost)

	for i, sc := range report.Scenarios {
		result := sc.Result
		_, _ = fmt.Fprintf(w, "--- Results for strategy %s ---\n", result.Strategy.Label())
		if result.Strategy == payoff.Snowball {
			_, _ = p.Fprintf(w, "Extra payment: %s%.2f/month\n", symbol, result.ExtraPayment)
		}
		_, _ = fmt.Fprintf(w, "Month | Total remaining | Interest to date | Paid off\n")
		_, _ = fmt.Fprintf(w, "_____ | _______________ | ________________ | ________\n")
		for _, snap := range result.Snapshots {
			_, _ = p.Fprintf(w, "%s | %s%.2f | %s%.2f | %s\n",
				fmt.Sprintf("%5d", snap.Month), symbol, snap.Total, symbol, snap.InterestPaid, strings.Join(paidOffIn(sc.Metrics, snap.Month), ","))
		}
		_, _ = fmt.Fprintln(w, Outcome(sc.Metrics, symbol))
		if i < len(report.Scenarios)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}

	if len(report.Comparisons) > 0 {
		_, _ = fmt.Fprintf(w, "\n--- Comparisons ---\n")
		for _, c := range report.Comparisons {
			_, _ = fmt.Fprintln(w, Comparison(c, symbol))
		}
	}
}

// Outcome is a one-line verdict for a scenario.
func Outcome(m payoff.Metrics, symbol string) string {
	if months, ok := m.PayoffMonth(); ok {
		return fmt.Sprintf("Debt free after %s, paying %s interest",
			format.Months(months), format.Currency(symbol, m.TotalInterestPaid))
	}
	return fmt.Sprintf("Not paid off within %s; %s interest accrued",
		format.Months(m.HorizonMonths), format.Currency(symbol, m.TotalInterestPaid))
}

// Comparison is a one-line description of a comparison.
func Comparison(c payoff.Comparison, symbol string) string {
	label := fmt.Sprintf("%s vs %s", c.Candidate.Label(), c.Baseline.Label())
	if !c.Comparable {
		return fmt.Sprintf("%s: not comparable (%s)", label, c.Reason)
	}
	return fmt.Sprintf("%s: %s sooner, %s less interest",
		label, format.Months(c.MonthsSaved), format.Currency(symbol, c.InterestSaved))
}

func paidOffIn(m payoff.Metrics, month int) []string {
	var names []string
	for _, d := range m.Debts {
		if d.PaidOff && d.Month == month && month > 0 {
			names = append(names, d.Name)
		}
	}
	return names
}

// CsvFormat writes one row per month with the total balance and cumulative
// interest of every scenario. Scenarios that finished earlier leave their
// later cells empty.
func CsvFormat(w io.Writer, report *scenario.Report) error {
	cw := csv.NewWriter(w)

	header := []string{"month"}
	rows := 0
	for _, sc := range report.Scenarios {
		name := string(sc.Result.Strategy)
		header = append(header, fmt.Sprintf("total (%s)", name), fmt.Sprintf("interest (%s)", name))
		if len(sc.Result.Snapshots) > rows {
			rows = len(sc.Result.Snapshots)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for month := 0; month < rows; month++ {
		record := []string{strconv.Itoa(month)}
		for _, sc := range report.Scenarios {
			if month < len(sc.Result.Snapshots) {
				snap := sc.Result.Snapshots[month]
				record = append(record, money(snap.Total), money(snap.InterestPaid))
			} else {
				record = append(record, "", "")
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// DebtScheduleCSV writes the per-debt balance schedule of one scenario.
func DebtScheduleCSV(w io.Writer, result *payoff.Result) error {
	cw := csv.NewWriter(w)
	if len(result.Snapshots) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"month"}
	for _, d := range result.Snapshots[0].Debts {
		header = append(header, d.Name)
	}
	header = append(header, "total")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, snap := range result.Snapshots {
		record := []string{strconv.Itoa(snap.Month)}
		for _, d := range snap.Debts {
			record = append(record, money(d.Balance))
		}
		record = append(record, money(snap.Total))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CsvString renders the report as CSV and returns it.
func CsvString(report *scenario.Report) (string, error) {
	var b strings.Builder
	if err := CsvFormat(&b, report); err != nil {
		return "", err
	}
	return b.String(), nil
}

func money(v float64) string {
	return strconv.FormatFloat(mathutil.Round(v), 'f', 2, 64)
}
