package main

import (
	"errors"
	"fmt"
	"os"

	"attendance-agent/internal/bootstrap"
	"attendance-agent/internal/config"
	"attendance-agent/internal/console"
	"attendance-agent/pkg/apperr"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := console.ParseArgs("attendance", args, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	if opts.CredentialsFile != "" {
		if err := os.Setenv("CREDENTIALS_FILE", opts.CredentialsFile); err != nil {
			fmt.Fprintln(os.Stderr, err)

			return 1
		}
	}

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)

		return 1
	}
	defer func() { _ = logger.Sync() }()

	if opts.SavesCredentials() {
		path, err := console.SaveCredentials(opts, cfg.OutputConfig.CredentialsFile)
		if err != nil {
			logger.Error("Failed to save credentials", zap.Error(err))

			return 1
		}

		logger.Info("Credentials saved", zap.String("path", path))

		return 0
	}

	if err := cfg.Validate(); err != nil {
		var field string

		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			field, _ = appErr.Metadata[apperr.MetaField].(string)
		}

		logger.Error("Configuration incomplete, not starting browser",
			zap.String("field", field),
			zap.Error(err))

		return 1
	}

	return bootstrap.Run(cfg)
}
