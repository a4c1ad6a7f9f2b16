package main

import (
	"fmt"
	"strings"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newDebtsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debts",
		Short: "Manage saved debt sets",
	}
	cmd.AddCommand(
		newDebtsSaveCmd(a),
		newDebtsListCmd(a),
		newDebtsShowCmd(a),
		newDebtsDeleteCmd(a),
	)
	return cmd
}

// withStore loads the configuration, opens the store and runs fn against it.
func (a *app) withStore(cmd *cobra.Command, fn func(*config.Configuration, store.Repository) error) error {
	conf, err := a.load(cmd, false)
	if err != nil {
		return err
	}
	repo, err := a.repository(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.String("op", "main.withStore"), zap.Error(err))
		}
	}()
	return fn(conf, repo)
}

func newDebtsSaveCmd(a *app) *cobra.Command {
	var extra float64
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save the configured debts under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(conf *config.Configuration, repo store.Repository) error {
				set := store.DebtSet{
					Name:         args[0],
					ExtraPayment: conf.Plan.ExtraPayment,
					Debts:        conf.DebtRecords(),
				}
				if cmd.Flags().Changed("extra") {
					set.ExtraPayment = extra
				}
				if err := repo.Save(cmd.Context(), set); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d debts as %q\n", len(set.Debts), set.Name)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&extra, "extra", 0, "extra monthly payment to store with the set")
	return cmd
}

func newDebtsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved debt sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(conf *config.Configuration, repo store.Repository) error {
				infos, err := repo.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(infos) == 0 {
					fmt.Fprintln(out, "No saved debt sets")
					return nil
				}
				p := message.NewPrinter(language.English)
				symbol := conf.CurrencySymbol()
				width := len("Name")
				for _, info := range infos {
					width = max(width, len(info.Name))
				}
				fmt.Fprintf(out, "%-*s | Debts | Total balance | Extra | Updated\n", width, "Name")
				fmt.Fprintf(out, "%s\n", strings.Repeat("-", width+52))
				for _, info := range infos {
					fmt.Fprintf(out, "%-*s | %5d | %s | %s | %s\n",
						width, info.Name, info.DebtCount,
						p.Sprintf("%s%.2f", symbol, info.TotalBalance),
						p.Sprintf("%s%.2f", symbol, info.ExtraPayment),
						info.UpdatedAt.Format("2006-01-02 15:04"),
					)
				}
				return nil
			})
		},
	}
}

func newDebtsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved debt set as a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(_ *config.Configuration, repo store.Repository) error {
				set, err := repo.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return config.FromDebts(set.Debts, set.ExtraPayment).Encode(cmd.OutOrStdout())
			})
		},
	}
}

func newDebtsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved debt set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(_ *config.Configuration, repo store.Repository) error {
				if err := repo.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
				return nil
			})
		},
	}
}
