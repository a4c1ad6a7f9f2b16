package main

import (
	"fmt"

	"github.com/iwvelando/debt-snowball/internal/optimizer"
	"github.com/iwvelando/debt-snowball/pkg/format"
	"github.com/spf13/cobra"
)

func newSolveCmd(a *app) *cobra.Command {
	flags := &planFlags{}
	var months int
	var maxExtra float64

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Find the smallest extra payment that clears the debts by a target month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := a.load(cmd, false)
			if err != nil {
				return err
			}
			req, err := a.request(cmd.Context(), cmd, conf, flags)
			if err != nil {
				return err
			}
			runner, err := optimizer.NewRunner(a.logger, req.Debts, req.Options)
			if err != nil {
				return err
			}
			summary, err := runner.Solve(months, maxExtra)
			if err != nil {
				return err
			}

			symbol := conf.CurrencySymbol()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target: debt free within %s\n", format.Months(summary.TargetMonths))
			if summary.Converged {
				fmt.Fprintf(out, "Extra payment needed: %s/month\n", format.Currency(symbol, summary.Extra))
			} else {
				fmt.Fprintf(out, "Best extra payment tried: %s/month\n", format.Currency(symbol, summary.Extra))
			}
			if summary.PaidOff {
				fmt.Fprintf(out, "Debt free after %s\n", format.Months(summary.Months))
			}
			fmt.Fprintf(out, "Interest paid: %s\n", format.Currency(symbol, summary.InterestPaid))
			saved := "not comparable"
			if summary.SavingComparable {
				saved = format.Currency(symbol, summary.InterestSaved)
			}
			fmt.Fprintf(out, "Interest saved against %s/month: %s\n",
				format.Currency(symbol, summary.OriginalExtra), saved)
			for _, note := range summary.Notes {
				fmt.Fprintf(out, "Note: %s\n", note)
			}
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().IntVar(&months, "months", 0, "target number of months to be debt free")
	cmd.Flags().Float64Var(&maxExtra, "max-extra", 0, "largest extra payment to consider (default the total balance)")
	_ = cmd.MarkFlagRequired("months")
	return cmd
}
