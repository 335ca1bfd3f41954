package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"attendance-agent/internal/browser"
	"attendance-agent/internal/config"
	"attendance-agent/internal/console"
	"attendance-agent/internal/diagnostics"
	"attendance-agent/internal/history"
	"attendance-agent/internal/metrics"
	"attendance-agent/internal/ports"
	"attendance-agent/internal/usecase"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func NewApp(cfg *config.Config, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{appOptions(cfg)}, opts...)...)
}

func appOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),

		fx.Provide(
			NewLogger,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager))),
			fx.Annotate(diagnostics.NewSink, fx.As(new(ports.DiagnosticsSink))),
			fx.Annotate(history.NewJournal, fx.As(new(ports.OutcomeRecorder)), fx.ResultTags(`group:"recorders"`)),
			fx.Annotate(metrics.NewTextfile, fx.As(new(ports.OutcomeRecorder)), fx.ResultTags(`group:"recorders"`)),

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),

		fx.Invoke(
			newTraceProvider,
			runAttendance,
		),

		fx.StartTimeout(10*time.Second),
		fx.StopTimeout(30*time.Second),
	)
}

// Run starts app, waits for the attendance run to shut it down and returns
// the process exit code.
func Run(cfg *config.Config) int {
	var front *console.Interface

	app := NewApp(cfg, fx.Populate(&front))
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to build application:", err)

		return 1
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to start application:", err)

		return 1
	}

	signal := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()

	_ = app.Stop(stopCtx)

	if report := front.Report(); report != nil {
		return report.ExitCode
	}

	if signal.ExitCode != 0 {
		return signal.ExitCode
	}

	return 1
}
