package bootstrap

import (
	"context"

	"attendance-agent/internal/console"
	"attendance-agent/internal/ports"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runAttendance(lc fx.Lifecycle, shutdowner fx.Shutdowner, consoleInterface *console.Interface, browser ports.BrowserManager, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting attendance agent...")

			go func() {
				report := consoleInterface.Start()

				if err := shutdowner.Shutdown(fx.ExitCode(report.ExitCode)); err != nil {
					logger.Error("Failed to request shutdown", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down attendance agent...")

			if err := consoleInterface.Stop(ctx); err != nil {
				logger.Error("Attendance run did not finish", zap.Error(err))
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
