package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/internal/usecase"
	"attendance-agent/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Interface runs the attendance job once and prints the summary.
type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	report *entity.Report
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		out:     os.Stdout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start runs the job to completion. It must be called at most once.
func (i *Interface) Start() *entity.Report {
	defer close(i.done)

	report := i.usecase.Runner.Run(i.ctx)

	i.mu.Lock()
	i.report = report
	i.mu.Unlock()

	PrintReport(i.out, report)

	return report
}

// Stop cancels a running job and waits for it to unwind or ctx to end.
func (i *Interface) Stop(ctx context.Context) error {
	i.cancel()

	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		i.logger.Warn("Attendance run did not stop in time")

		return ctx.Err()
	}
}

// Report returns the finished run's report, or nil while it is running.
func (i *Interface) Report() *entity.Report {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.report
}

func PrintReport(w io.Writer, report *entity.Report) {
	fmt.Fprintln(w, "────────────────────────────────────────")
	fmt.Fprintf(w, "Attendance: %s\n", report.Outcome)

	if report.Detail != "" {
		fmt.Fprintf(w, "Detail:     %s\n", report.Detail)
	}

	if report.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", report.Error)
	}

	if report.URL != "" {
		fmt.Fprintf(w, "Page:       %s (%s)\n", report.Title, report.URL)
	}

	fmt.Fprintf(w, "Run:        %s in %s\n", report.Run.ID, report.FinishedAt.Sub(report.Run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Exit code:  %d\n", report.ExitCode)
	fmt.Fprintln(w, "────────────────────────────────────────")
}
