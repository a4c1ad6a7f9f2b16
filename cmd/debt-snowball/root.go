package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/debt-snowball/internal/cache"
	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/scenario"
	"github.com/iwvelando/debt-snowball/internal/store"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "debt-snowball",
		Short:         "Plan how a set of debts is paid off",
		Long:          "Simulate do-nothing, minimum-only and snowball repayment of a debt portfolio and compare the outcomes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", constants.DefaultConfigFile, "path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newPlanCmd(a),
		newExportCmd(a),
		newDemoCmd(a),
		newServeCmd(a),
		newDebtsCmd(a),
		newSolveCmd(a),
	)
	return root
}

// load reads and validates the configuration file and sets up logging from
// it. With optional set, a missing default config file yields an empty
// configuration instead of an error.
func (a *app) load(cmd *cobra.Command, optional bool) (*config.Configuration, error) {
	var conf *config.Configuration
	if _, err := os.Stat(a.configPath); optional && errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		conf = &config.Configuration{}
	} else {
		conf, err = config.LoadConfiguration(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration at %s: %w", a.configPath, err)
		}
	}

	if err := a.initLogger(conf.Logging); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, warning := range conf.ValidateConfiguration() {
		a.logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.load"),
		)
	}
	return conf, nil
}

func (a *app) initLogger(cfg config.LoggingConfig) error {
	logger, err := initializeLogger(cfg, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// planner builds a planner backed by the configured cache. The returned
// function releases the cache.
func (a *app) planner(ctx context.Context, conf *config.Configuration) (*scenario.Planner, func(), error) {
	c, err := cache.New(ctx, a.logger, conf.Cache)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close cache", zap.String("op", "main.planner"), zap.Error(err))
		}
	}
	return scenario.NewPlanner(a.logger, c).WithTTL(cache.TTL(conf.Cache)), closeFn, nil
}

// repository opens the configured store. It returns store.ErrDisabled when no
// driver is configured.
func (a *app) repository(ctx context.Context, conf *config.Configuration) (store.Repository, error) {
	return store.Open(ctx, a.logger, conf.Storage)
}
