package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/iwvelando/debt-snowball/internal/scenario"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"gopkg.in/yaml.v3"
)

var exportTime = time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)

func exportDebts() []debt.Debt {
	return []debt.Debt{
		{ID: "b", Name: "Barclaycard", Balance: 2930.456, AnnualRatePercent: 19.94, MinimumPayment: 56},
		{ID: "p", Name: "PayPal Credit", Balance: 875, AnnualRatePercent: 0, MinimumPayment: 50},
		{ID: "z", Name: "Cleared Loan", Balance: 0, AnnualRatePercent: 5, MinimumPayment: 20},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected DebtType
	}{
		{"Barclaycard", CreditCard},
		{"Tesco Credit Card", CreditCard},
		{"MBNA", CreditCard},
		{"Car Finance", AutoLoan},
		{"Student Loan", StudentLoan},
		{"Nationwide Mortgage", Mortgage},
		{"Halifax Personal Loan", PersonalLoan},
		{"Arranged overdraft", Overdraft},
		{"PayPal Pay in 3", BuyNowPayLater},
		{"Klarna", BuyNowPayLater},
		{"Owed to Mum", Other},
		{"Carpet shop", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.name); got != tt.expected {
				t.Errorf("Classify(%q) = %s, expected %s", tt.name, got, tt.expected)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	doc := Build(exportDebts(), 100, payoff.Metrics{Strategy: payoff.Snowball, PaidOff: true, TotalMonths: 13}, exportTime)

	if doc.GeneratedDate != "2025-01-31" {
		t.Errorf("GeneratedDate = %s", doc.GeneratedDate)
	}
	if doc.TotalDebt != 3805.46 || doc.TotalMinimumPayments != 126 || doc.NumberOfDebts != 3 {
		t.Errorf("unexpected totals: debt=%.2f minimums=%.2f count=%d", doc.TotalDebt, doc.TotalMinimumPayments, doc.NumberOfDebts)
	}
	if doc.Debts[0].Balance != 2930.46 || doc.Debts[0].InterestRate != 19.94 || doc.Debts[0].DebtType != CreditCard {
		t.Errorf("unexpected first debt %+v", doc.Debts[0])
	}
	if doc.Debts[1].DebtType != BuyNowPayLater {
		t.Errorf("PayPal Credit classified as %s", doc.Debts[1].DebtType)
	}

	if len(doc.SnowballOrder) != 2 {
		t.Fatalf("retired debts must be left out of the order, got %+v", doc.SnowballOrder)
	}
	if doc.SnowballOrder[0] != (OrderEntry{Order: 1, Name: "PayPal Credit", Balance: 875}) ||
		doc.SnowballOrder[1] != (OrderEntry{Order: 2, Name: "Barclaycard", Balance: 2930.46}) {
		t.Errorf("unexpected snowball order %+v", doc.SnowballOrder)
	}

	fs := doc.FinancialSummary
	if fs.EstimatedPayoffMonths == nil || *fs.EstimatedPayoffMonths != 13 {
		t.Errorf("EstimatedPayoffMonths = %v", fs.EstimatedPayoffMonths)
	}
	if fs.EstimatedPayoffYears == nil || *fs.EstimatedPayoffYears != 2 {
		t.Errorf("EstimatedPayoffYears = %v, expected 2 (rounded up)", fs.EstimatedPayoffYears)
	}
	if fs.DebtFreeDate == nil || *fs.DebtFreeDate != "2026-02-28" {
		t.Errorf("DebtFreeDate = %v, expected 2026-02-28", fs.DebtFreeDate)
	}
	if fs.CurrentExtraPayment != 100 {
		t.Errorf("CurrentExtraPayment = %.2f", fs.CurrentExtraPayment)
	}
}

func TestBuildWithoutPayoff(t *testing.T) {
	doc := Build(exportDebts(), 0, payoff.Metrics{Strategy: payoff.Snowball, HorizonMonths: 600}, exportTime)

	var buf bytes.Buffer
	if err := Encode(&buf, doc, "json"); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	summary := decoded["financial_summary"].(map[string]any)
	for _, key := range []string{"estimated_payoff_months", "estimated_payoff_years", "debt_free_date"} {
		v, present := summary[key]
		if !present || v != nil {
			t.Errorf("%s should be present and null, got %v (present=%v)", key, v, present)
		}
	}
}

func TestFromReport(t *testing.T) {
	planner := scenario.NewPlanner(nil, nil)
	report, err := planner.Plan(context.Background(), scenario.Request{
		Debts:   exportDebts(),
		Options: payoff.Options{ExtraPayment: 150},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	doc, err := FromReport(report, exportDebts(), exportTime)
	if err != nil {
		t.Fatalf("FromReport() error = %v", err)
	}
	sc, _ := report.Scenario(payoff.Snowball)
	if doc.FinancialSummary.EstimatedPayoffMonths == nil || *doc.FinancialSummary.EstimatedPayoffMonths != sc.Metrics.TotalMonths {
		t.Errorf("payoff months do not match the snowball scenario")
	}
	if doc.FinancialSummary.CurrentExtraPayment != 150 {
		t.Errorf("extra payment = %.2f, expected 150", doc.FinancialSummary.CurrentExtraPayment)
	}

	minimumOnly, err := planner.Plan(context.Background(), scenario.Request{
		Debts:      exportDebts(),
		Strategies: []payoff.Strategy{payoff.MinimumOnly},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if _, err := FromReport(minimumOnly, exportDebts(), exportTime); !errors.Is(err, ErrNoSnowball) {
		t.Errorf("FromReport() error = %v, expected ErrNoSnowball", err)
	}
}

func TestEncode(t *testing.T) {
	doc := Build(exportDebts(), 100, payoff.Metrics{PaidOff: true, TotalMonths: 13}, exportTime)

	tests := []struct {
		format string
		decode func([]byte) (Document, error)
	}{
		{"json", func(b []byte) (Document, error) {
			var d Document
			return d, json.Unmarshal(b, &d)
		}},
		{"yaml", func(b []byte) (Document, error) {
			var d Document
			return d, yaml.Unmarshal(b, &d)
		}},
		{"toml", func(b []byte) (Document, error) {
			var d Document
			_, err := toml.Decode(string(b), &d)
			return d, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, doc, tt.format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !strings.Contains(buf.String(), "snowball_order") {
				t.Errorf("%s output is missing snake_case keys:\n%s", tt.format, buf.String())
			}
			decoded, err := tt.decode(buf.Bytes())
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if decoded.TotalDebt != doc.TotalDebt || len(decoded.SnowballOrder) != 2 ||
				*decoded.FinancialSummary.DebtFreeDate != "2026-02-28" {
				t.Errorf("decoded %s document differs: %+v", tt.format, decoded)
			}
		})
	}

	if err := Encode(&bytes.Buffer{}, doc, "xml"); err == nil {
		t.Errorf("expected unsupported format to be rejected")
	}
}
