package payoff

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/testutil"
	"go.uber.org/zap"
)

func run(t *testing.T, debts []debt.Debt, strategy Strategy, opts Options) *Result {
	t.Helper()
	result, err := NewEngine(zap.NewNop(), opts).Run(debts, strategy)
	if err != nil {
		t.Fatalf("Run(%s) unexpected error = %v", strategy, err)
	}
	return result
}

func TestSnowballZeroInterestScenario(t *testing.T) {
	debts := []debt.Debt{
		{ID: "a", Name: "A", Balance: 100, MinimumPayment: 50},
		{ID: "b", Name: "B", Balance: 200, MinimumPayment: 50},
	}

	result := run(t, debts, Snowball, Options{ExtraPayment: 50})

	expected := []struct {
		a, b, total float64
	}{
		{100, 200, 300},
		{0, 150, 150},
		{0, 0, 0},
	}
	if len(result.Snapshots) != len(expected) {
		t.Fatalf("expected %d snapshots, got %d", len(expected), len(result.Snapshots))
	}
	for month, want := range expected {
		s := result.Snapshots[month]
		a, _ := s.Balance("A")
		b, _ := s.Balance("B")
		if math.Abs(a-want.a) > 1e-9 || math.Abs(b-want.b) > 1e-9 || math.Abs(s.Total-want.total) > 1e-9 {
			t.Errorf("month %d: A=%.2f B=%.2f total=%.2f, expected A=%.2f B=%.2f total=%.2f",
				month, a, b, s.Total, want.a, want.b, want.total)
		}
	}
	if !result.PaidOff || result.TotalMonths != 2 {
		t.Errorf("expected payoff in 2 months, got paidOff=%v months=%d", result.PaidOff, result.TotalMonths)
	}
	if result.TotalInterestPaid != 0 {
		t.Errorf("expected no interest, got %.2f", result.TotalInterestPaid)
	}
}

func TestMinimumOnlyFirstMonth(t *testing.T) {
	debts := []debt.Debt{
		{ID: "card", Name: "Card", Balance: 1200, AnnualRatePercent: 12, MinimumPayment: 100},
	}

	result := run(t, debts, MinimumOnly, Options{})

	month1 := result.Snapshots[1].Debts[0]
	if math.Abs(month1.Interest-12) > 0.001 {
		t.Errorf("interest = %.4f, expected 12.00", month1.Interest)
	}
	if math.Abs(month1.Principal-88) > 0.001 {
		t.Errorf("principal = %.4f, expected 88.00", month1.Principal)
	}
	if math.Abs(month1.Balance-1112) > 0.001 {
		t.Errorf("balance = %.4f, expected 1112.00", month1.Balance)
	}
	if math.Abs(result.Snapshots[1].InterestPaid-12) > 0.001 {
		t.Errorf("cumulative interest = %.4f, expected 12.00", result.Snapshots[1].InterestPaid)
	}
}

func TestHorizonSafety(t *testing.T) {
	debts := []debt.Debt{
		{ID: "card", Name: "Card", Balance: 10000, AnnualRatePercent: 24, MinimumPayment: 150},
	}

	for _, strategy := range []Strategy{MinimumOnly, Snowball} {
		t.Run(string(strategy), func(t *testing.T) {
			result := run(t, debts, strategy, Options{HorizonMonths: 120})

			if result.PaidOff {
				t.Fatalf("expected scenario not to pay off")
			}
			if len(result.Snapshots) != 121 {
				t.Errorf("expected 121 snapshots, got %d", len(result.Snapshots))
			}
			if result.TotalMonths != 120 {
				t.Errorf("expected run to stop at the horizon, got %d", result.TotalMonths)
			}
			last := result.Snapshots[len(result.Snapshots)-1]
			if math.Abs(last.Total-10000) > 1e-9 {
				t.Errorf("negative amortization should hold the balance at 10000, got %.2f", last.Total)
			}

			m := result.Metrics()
			if _, ok := m.PayoffMonth(); ok || m.PaidOff {
				t.Errorf("metrics should report no payoff, got %+v", m)
			}
		})
	}
}

func TestDefaultHorizon(t *testing.T) {
	debts := []debt.Debt{
		{ID: "card", Name: "Card", Balance: 500, AnnualRatePercent: 30, MinimumPayment: 5},
	}
	result := run(t, debts, MinimumOnly, Options{})
	if result.HorizonMonths != 600 {
		t.Errorf("expected default horizon of 600, got %d", result.HorizonMonths)
	}
	if len(result.Snapshots) != 601 {
		t.Errorf("expected 601 snapshots, got %d", len(result.Snapshots))
	}
}

func TestDeterminism(t *testing.T) {
	for _, strategy := range Strategies() {
		t.Run(string(strategy), func(t *testing.T) {
			opts := Options{ExtraPayment: 125, HorizonMonths: 240}
			first := run(t, testutil.WhatIfDebts(), strategy, opts)
			second := run(t, testutil.WhatIfDebts(), strategy, opts)
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("two runs with identical inputs produced different results")
			}
		})
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	debts := testutil.WhatIfDebts()
	original := testutil.WhatIfDebts()

	for _, strategy := range Strategies() {
		run(t, debts, strategy, Options{ExtraPayment: 300})
	}

	if !reflect.DeepEqual(debts, original) {
		t.Fatalf("Run() mutated the caller's debts")
	}
}

func TestSnowballNeverWorseThanMinimum(t *testing.T) {
	for _, extra := range []float64{10, 100, 500} {
		opts := Options{ExtraPayment: extra}
		minimum := run(t, testutil.AmortizingDebts(), MinimumOnly, opts).Metrics()
		snowball := run(t, testutil.AmortizingDebts(), Snowball, opts).Metrics()

		if !minimum.PaidOff || !snowball.PaidOff {
			t.Fatalf("extra %.0f: expected both scenarios to pay off, got minimum=%v snowball=%v", extra, minimum.PaidOff, snowball.PaidOff)
		}
		if snowball.TotalInterestPaid > minimum.TotalInterestPaid {
			t.Errorf("extra %.0f: snowball interest %.2f exceeds minimum-only %.2f", extra, snowball.TotalInterestPaid, minimum.TotalInterestPaid)
		}
		if snowball.TotalMonths > minimum.TotalMonths {
			t.Errorf("extra %.0f: snowball months %d exceed minimum-only %d", extra, snowball.TotalMonths, minimum.TotalMonths)
		}
	}
}

func TestZeroExtraMatchesMinimumUntilFirstPayoff(t *testing.T) {
	minimum := run(t, testutil.AmortizingDebts(), MinimumOnly, Options{})
	snowball := run(t, testutil.AmortizingDebts(), Snowball, Options{})

	firstPayoff := -1
	for _, d := range minimum.Metrics().Debts {
		if d.PaidOff && (firstPayoff < 0 || d.Month < firstPayoff) {
			firstPayoff = d.Month
		}
	}
	if firstPayoff < 1 {
		t.Fatalf("expected a debt to be retired under minimum payments")
	}

	for month := 0; month <= firstPayoff; month++ {
		got := snowball.Snapshots[month].Total
		want := minimum.Snapshots[month].Total
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("month %d: snowball total %.4f differs from minimum-only %.4f", month, got, want)
		}
	}
}

func TestZeroExtraSingleDebtMatchesMinimum(t *testing.T) {
	debts := []debt.Debt{
		{ID: "loan", Name: "Loan", Balance: 4321, AnnualRatePercent: 9.5, MinimumPayment: 120},
	}
	minimum := run(t, debts, MinimumOnly, Options{})
	snowball := run(t, debts, Snowball, Options{})

	if len(minimum.Snapshots) != len(snowball.Snapshots) {
		t.Fatalf("schedule lengths differ: %d vs %d", len(minimum.Snapshots), len(snowball.Snapshots))
	}
	for month := range minimum.Snapshots {
		if math.Abs(minimum.Snapshots[month].Total-snowball.Snapshots[month].Total) > 1e-9 {
			t.Fatalf("month %d: totals differ", month)
		}
	}
}

func TestPrincipalConservation(t *testing.T) {
	debts := testutil.WhatIfDebts()
	result := run(t, debts, Snowball, Options{ExtraPayment: 150})
	if !result.PaidOff {
		t.Fatalf("expected snowball to pay off")
	}

	for i, d := range debts {
		var principal float64
		for _, s := range result.Snapshots {
			principal += s.Debts[i].Principal
		}
		if math.Abs(principal-d.Balance) > 0.01 {
			t.Errorf("%s: principal paid %.4f, expected %.2f", d.Name, principal, d.Balance)
		}
	}
}

func TestCascadePolicy(t *testing.T) {
	debts := []debt.Debt{
		{ID: "a", Name: "A", Balance: 100, MinimumPayment: 50},
		{ID: "b", Name: "B", Balance: 200, MinimumPayment: 50},
	}

	tests := []struct {
		name          string
		cascade       CascadePolicy
		expectedTotal float64
		expectedMonth int
	}{
		{"No same-month cascade", CascadeNone, 150, 2},
		{"Cascade to next debt", CascadeNext, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(t, debts, Snowball, Options{ExtraPayment: 200, Cascade: tt.cascade})
			if got := result.Snapshots[1].Total; math.Abs(got-tt.expectedTotal) > 1e-9 {
				t.Errorf("month 1 total = %.2f, expected %.2f", got, tt.expectedTotal)
			}
			if result.TotalMonths != tt.expectedMonth {
				t.Errorf("TotalMonths = %d, expected %d", result.TotalMonths, tt.expectedMonth)
			}
		})
	}
}

func TestDoNothingCompounds(t *testing.T) {
	debts := []debt.Debt{
		{ID: "card", Name: "Card", Balance: 1000, AnnualRatePercent: 12, MinimumPayment: 30},
		{ID: "promo", Name: "Promo", Balance: 875, AnnualRatePercent: 0, MinimumPayment: 50},
	}

	result := run(t, debts, DoNothing, Options{ExtraPayment: 500, HorizonMonths: 12})

	if len(result.Snapshots) != 13 {
		t.Fatalf("expected 13 snapshots, got %d", len(result.Snapshots))
	}
	last := result.Snapshots[12]
	if math.Abs(last.Total-(1126.825030+875)) > 0.0001 {
		t.Errorf("month 12 total = %.6f, expected %.6f", last.Total, 1126.825030+875)
	}
	if promo, _ := last.Balance("Promo"); promo != 875 {
		t.Errorf("interest-free debt should stay flat, got %.2f", promo)
	}
	if result.PaidOff {
		t.Errorf("do nothing must not pay off")
	}
	if math.Abs(result.TotalInterestPaid-126.825030) > 0.0001 {
		t.Errorf("accrued interest = %.6f, expected 126.825030", result.TotalInterestPaid)
	}
}

func TestEmptyPortfolioIsPaidOffImmediately(t *testing.T) {
	for _, strategy := range Strategies() {
		result := run(t, nil, strategy, Options{})
		if !result.PaidOff || result.TotalMonths != 0 || len(result.Snapshots) != 1 {
			t.Errorf("%s: expected immediate payoff, got paidOff=%v months=%d snapshots=%d",
				strategy, result.PaidOff, result.TotalMonths, len(result.Snapshots))
		}
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		debts    []debt.Debt
		strategy Strategy
		opts     Options
		wantErr  error
	}{
		{
			name:     "Negative balance",
			debts:    []debt.Debt{{ID: "x", Name: "X", Balance: -1}},
			strategy: Snowball,
			wantErr:  debt.ErrNegativeBalance,
		},
		{
			name:     "Empty name",
			debts:    []debt.Debt{{ID: "x", Balance: 100}},
			strategy: MinimumOnly,
			wantErr:  debt.ErrEmptyName,
		},
		{
			name:     "Negative extra payment",
			debts:    testutil.AmortizingDebts(),
			strategy: Snowball,
			opts:     Options{ExtraPayment: -5},
			wantErr:  ErrInvalidOptions,
		},
		{
			name:     "Negative horizon",
			debts:    testutil.AmortizingDebts(),
			strategy: Snowball,
			opts:     Options{HorizonMonths: -1},
			wantErr:  ErrInvalidOptions,
		},
		{
			name:     "Unknown cascade",
			debts:    testutil.AmortizingDebts(),
			strategy: Snowball,
			opts:     Options{Cascade: "sideways"},
			wantErr:  ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(nil, tt.opts).Run(tt.debts, tt.strategy)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewEngine(nil, Options{}).Run(testutil.AmortizingDebts(), Strategy("avalanche")); err == nil {
		t.Errorf("expected unknown strategy to be rejected")
	}
}
