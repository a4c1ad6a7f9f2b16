package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iwvelando/debt-snowball/internal/coach"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/iwvelando/debt-snowball/pkg/payoff"
	"github.com/iwvelando/debt-snowball/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCmd(a *app) *cobra.Command {
	flags := &planFlags{}
	var format, outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the snowball plan as a coaching document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := validation.ValidateExportFormat(format); err != nil {
				return err
			}
			conf, err := a.load(cmd, false)
			if err != nil {
				return err
			}
			req, err := a.request(ctx, cmd, conf, flags)
			if err != nil {
				return err
			}
			req.Strategies = []payoff.Strategy{payoff.Snowball}

			planner, closeCache, err := a.planner(ctx, conf)
			if err != nil {
				return err
			}
			defer closeCache()

			report, err := planner.Plan(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to compute plan: %w", err)
			}
			doc, err := coach.FromReport(report, req.Debts, time.Now())
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outputPath != "" && outputPath != "-" {
				file, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outputPath, err)
				}
				defer func() {
					if err := file.Close(); err != nil {
						a.logger.Warn("failed to close export file", zap.String("op", "main.export"), zap.Error(err))
					}
				}()
				out = file
			}
			if err := coach.Encode(out, doc, format); err != nil {
				return err
			}
			a.logger.Info("export written",
				zap.String("op", "main.export"),
				zap.String("format", format),
				zap.Int("debts", doc.NumberOfDebts),
			)
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVarP(&format, "format", "f", constants.ExportFormatJSON, "export format: json, yaml, toml")
	cmd.Flags().StringVar(&outputPath, "out", "", "file to write instead of stdout")
	return cmd
}
