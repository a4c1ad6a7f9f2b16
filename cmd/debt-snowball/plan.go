package main

import (
	"context"
	"fmt"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/scenario"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/output"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"github.com/iwvelando/debt-snowball/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// planFlags override the plan section of the configuration.
type planFlags struct {
	extra      float64
	horizon    int
	cascade    string
	strategies []string
	debtSet    string
}

func (f *planFlags) register(cmd *cobra.Command, withStrategies bool) {
	cmd.Flags().Float64Var(&f.extra, "extra", 0, "extra monthly payment override")
	cmd.Flags().IntVar(&f.horizon, "horizon", 0, "simulation horizon override in months")
	cmd.Flags().StringVar(&f.cascade, "cascade", "", "cascade policy override: none, next")
	cmd.Flags().StringVar(&f.debtSet, "set", "", "plan a saved debt set instead of the configured debts")
	if withStrategies {
		cmd.Flags().StringSliceVarP(&f.strategies, "strategy", "s", nil, "strategies to run: none, minimum, snowball (default all)")
	}
}

// request builds the planning request from the configuration, a saved set
// when --set is given, and the flag overrides.
func (a *app) request(ctx context.Context, cmd *cobra.Command, conf *config.Configuration, f *planFlags) (scenario.Request, error) {
	opts, err := conf.PayoffOptions()
	if err != nil {
		return scenario.Request{}, err
	}
	strategies, err := conf.StrategyList()
	if err != nil {
		return scenario.Request{}, err
	}
	req := scenario.Request{Debts: conf.DebtRecords(), Strategies: strategies, Options: opts}

	if f.debtSet != "" {
		repo, err := a.repository(ctx, conf)
		if err != nil {
			return scenario.Request{}, err
		}
		defer func() { _ = repo.Close() }()
		set, err := repo.Get(ctx, f.debtSet)
		if err != nil {
			return scenario.Request{}, fmt.Errorf("failed to load debt set %q: %w", f.debtSet, err)
		}
		req.Debts = set.Debts
		req.Options.ExtraPayment = set.ExtraPayment
		for _, w := range validation.ValidateDebts(set.Debts) {
			a.logger.Warn("Debt set warning: "+w, zap.String("op", "main.request"))
		}
	}

	if cmd.Flags().Changed("extra") {
		req.Options.ExtraPayment = f.extra
	}
	if cmd.Flags().Changed("horizon") {
		req.Options.HorizonMonths = f.horizon
	}
	if cmd.Flags().Changed("cascade") {
		cascade, err := payoff.ParseCascade(f.cascade)
		if err != nil {
			return scenario.Request{}, err
		}
		req.Options.Cascade = cascade
	}
	if len(f.strategies) > 0 {
		req.Strategies = nil
		for _, s := range f.strategies {
			parsed, err := payoff.ParseStrategy(s)
			if err != nil {
				return scenario.Request{}, err
			}
			req.Strategies = append(req.Strategies, parsed)
		}
	}
	return req, nil
}

func newPlanCmd(a *app) *cobra.Command {
	flags := &planFlags{}
	var outputFormat, schedule string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run the payoff strategies and print their schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			conf, err := a.load(cmd, false)
			if err != nil {
				return err
			}

			format := conf.Output.Format
			if outputFormat != "" {
				format = outputFormat
			}
			if format == "" {
				format = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			req, err := a.request(ctx, cmd, conf, flags)
			if err != nil {
				return err
			}
			if schedule != "" {
				strategy, err := payoff.ParseStrategy(schedule)
				if err != nil {
					return err
				}
				req.Strategies = []payoff.Strategy{strategy}
			}

			planner, closeCache, err := a.planner(ctx, conf)
			if err != nil {
				return err
			}
			defer closeCache()

			report, err := planner.Plan(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to compute plan: %w", err)
			}

			out := cmd.OutOrStdout()
			if schedule != "" {
				return output.DebtScheduleCSV(out, report.Scenarios[0].Result)
			}
			switch format {
			case constants.OutputFormatPretty:
				output.PrettyFormat(out, report, conf.CurrencySymbol())
			case constants.OutputFormatCSV:
				return output.CsvFormat(out, report)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&outputFormat, "output-format", "o", "", "type of output override: pretty, csv")
	cmd.Flags().StringVar(&schedule, "schedule", "", "print the per-debt CSV schedule of one strategy")
	return cmd
}
