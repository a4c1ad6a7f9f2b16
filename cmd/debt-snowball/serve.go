package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/server"
	"github.com/iwvelando/debt-snowball/internal/store"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var serverConfigPath, address, maxUpload string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srvConf, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				srvConf.Address = address
			}
			if maxUpload != "" {
				size, err := server.ParseSize(maxUpload)
				if err != nil {
					return err
				}
				srvConf.SetUploadSizeBytes(size)
			}

			// The server config's logging section takes precedence.
			conf, err := a.load(cmd, true)
			if err != nil {
				return err
			}
			if srvConf.Logging != (config.LoggingConfig{}) {
				if err := a.initLogger(srvConf.Logging); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			planner, closeCache, err := a.planner(ctx, conf)
			if err != nil {
				return err
			}
			defer closeCache()

			repo, err := a.repository(ctx, conf)
			switch {
			case errors.Is(err, store.ErrDisabled):
				a.logger.Info("debt set storage disabled", zap.String("op", "main.serve"))
			case err != nil:
				return err
			default:
				defer func() { _ = repo.Close() }()
			}

			handler := server.NewHandler(a.logger, server.Options{
				Planner:        planner,
				Store:          repo,
				MaxUploadSize:  srvConf.UploadSizeBytes(),
				Version:        version,
				CurrencySymbol: conf.CurrencySymbol(),
			})
			return runServer(ctx, a.logger, srvConf, handler)
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	cmd.Flags().StringVar(&maxUpload, "max-upload-size", "", "upload size limit override, e.g. 512K")
	return cmd
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, logger *zap.Logger, conf *server.Config, handler http.Handler) error {
	read, write, shutdown := conf.Timeouts()
	srv := &http.Server{
		Addr:              conf.Address,
		Handler:           handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("server listening",
		zap.String("op", "main.runServer"),
		zap.String("address", conf.Address),
		zap.Int64("maxUploadSize", conf.UploadSizeBytes()),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
		defer cancel()
		logger.Info("shutting down", zap.String("op", "main.runServer"))
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
