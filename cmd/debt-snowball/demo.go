package main

import (
	"time"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/demo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDemoCmd(a *app) *cobra.Command {
	var seed uint64
	var extra float64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Print a random demo portfolio as a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initLogger(config.LoggingConfig{Format: "console"}); err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			debts := demo.NewSeededGenerator(seed).Debts()
			a.logger.Debug("demo portfolio generated",
				zap.String("op", "main.demo"),
				zap.Uint64("seed", seed),
				zap.Int("debts", len(debts)),
			)
			return config.FromDebts(debts, extra).Encode(cmd.OutOrStdout())
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed; the same seed always yields the same portfolio")
	cmd.Flags().Float64Var(&extra, "extra", 0, "extra monthly payment to write into the plan section")
	return cmd
}
