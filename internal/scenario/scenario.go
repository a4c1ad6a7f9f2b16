// Package scenario runs the requested payoff strategies over one debt set and
// assembles their results, metrics and comparisons into a report.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iwvelando/debt-snowball/internal/cache"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request describes one planning job.
type Request struct {
	Debts []debt.Debt `json:"debts"`
	// Strategies to run; empty runs all of them.
	Strategies []payoff.Strategy `json:"strategies,omitempty"`
	Options    payoff.Options    `json:"options"`
}

// Scenario is one strategy's simulation together with its metrics.
type Scenario struct {
	Result  *payoff.Result `json:"result"`
	Metrics payoff.Metrics `json:"metrics"`
}

// Report is the outcome of a planning job. Scenarios follow the order of the
// requested strategies.
type Report struct {
	Summary     debt.Summary        `json:"summary"`
	Scenarios   []Scenario          `json:"scenarios"`
	Comparisons []payoff.Comparison `json:"comparisons,omitempty"`
}

// Scenario returns the scenario computed for a strategy.
func (r *Report) Scenario(strategy payoff.Strategy) (*Scenario, bool) {
	for i := range r.Scenarios {
		if r.Scenarios[i].Result.Strategy == strategy {
			return &r.Scenarios[i], true
		}
	}
	return nil, false
}

// comparisonPairs lists the (baseline, candidate) pairs reported when both
// strategies were run.
var comparisonPairs = [][2]payoff.Strategy{
	{payoff.MinimumOnly, payoff.Snowball},
	{payoff.DoNothing, payoff.MinimumOnly},
}

// Planner runs planning jobs. A Planner is safe for concurrent use.
type Planner struct {
	logger *zap.Logger
	cache  cache.Cache
	ttl    time.Duration
}

// NewPlanner creates a planner. A nil logger is replaced by a no-op logger
// and a nil cache disables caching.
func NewPlanner(logger *zap.Logger, c cache.Cache) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &Planner{logger: logger, cache: c, ttl: cache.DefaultTTL}
}

// WithTTL sets how long reports stay cached.
func (p *Planner) WithTTL(ttl time.Duration) *Planner {
	p.ttl = ttl
	return p
}

// Plan validates the request and runs every requested strategy concurrently.
// Invalid debts or options fail before any simulation starts. Cache failures
// are logged and never fail the plan.
func (p *Planner) Plan(ctx context.Context, req Request) (*Report, error) {
	strategies, err := normalizeStrategies(req.Strategies)
	if err != nil {
		return nil, err
	}
	req.Strategies = strategies
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}
	if err := debt.ValidateSet(req.Debts); err != nil {
		return nil, fmt.Errorf("invalid debts: %w", err)
	}

	key, keyErr := cache.Key(req)
	if keyErr == nil {
		if report, ok := p.cached(ctx, key); ok {
			return report, nil
		}
	}

	engine := payoff.NewEngine(p.logger, req.Options)
	scenarios := make([]Scenario, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := engine.Run(req.Debts, strategy)
			if err != nil {
				return fmt.Errorf("%s: %w", strategy, err)
			}
			scenarios[i] = Scenario{Result: result, Metrics: result.Metrics()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Summary:   debt.Summarize(req.Debts),
		Scenarios: scenarios,
	}
	for _, pair := range comparisonPairs {
		baseline, okB := report.Scenario(pair[0])
		candidate, okC := report.Scenario(pair[1])
		if okB && okC {
			report.Comparisons = append(report.Comparisons, payoff.Compare(baseline.Metrics, candidate.Metrics))
		}
	}

	p.logger.Info("plan computed",
		zap.String("op", "scenario.Plan"),
		zap.Int("debts", len(req.Debts)),
		zap.Int("strategies", len(strategies)),
		zap.Float64("extraPayment", req.Options.ExtraPayment),
	)

	if keyErr == nil {
		p.store(ctx, key, report)
	}
	return report, nil
}

func (p *Planner) cached(ctx context.Context, key string) (*Report, bool) {
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("plan cache lookup failed",
			zap.String("op", "scenario.cached"),
			zap.Error(err),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		p.logger.Warn("discarding unreadable cached plan",
			zap.String("op", "scenario.cached"),
			zap.Error(err),
		)
		return nil, false
	}
	p.logger.Debug("plan served from cache",
		zap.String("op", "scenario.cached"),
		zap.String("key", key),
	)
	return &report, true
}

func (p *Planner) store(ctx context.Context, key string, report *Report) {
	raw, err := json.Marshal(report)
	if err == nil {
		err = p.cache.Set(ctx, key, raw, p.ttl)
	}
	if err != nil {
		p.logger.Warn("failed to cache plan",
			zap.String("op", "scenario.store"),
			zap.Error(err),
		)
	}
}

func normalizeStrategies(requested []payoff.Strategy) ([]payoff.Strategy, error) {
	if len(requested) == 0 {
		return payoff.Strategies(), nil
	}
	seen := make(map[payoff.Strategy]bool, len(requested))
	out := make([]payoff.Strategy, 0, len(requested))
	for _, s := range requested {
		parsed, err := payoff.ParseStrategy(string(s))
		if err != nil {
			return nil, err
		}
		if !seen[parsed] {
			seen[parsed] = true
			out = append(out, parsed)
		}
	}
	return out, nil
}
