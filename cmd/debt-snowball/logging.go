package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/debt-snowball/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	switch level {
	case "":
		level = "info"
	case "warning":
		level = "warn"
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil || zapLevel > zapcore.ErrorLevel {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zc zap.Config
	switch format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)
	// Reports go to stdout, so logs never share it.
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zc.OutputPaths = []string{loggingConfig.OutputFile}
		zc.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zc.Build()
}
