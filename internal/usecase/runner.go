package usecase

import (
	"context"
	"time"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/internal/ports"
	"attendance-agent/internal/usecase/adapters"
	"attendance-agent/pkg/apperr"
	"attendance-agent/pkg/logg"
	"attendance-agent/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	runnerName   = "Runner"
	runnerTracer = "usecase.runner"

	tagLoginError = "login_error"
	tagError      = "error"
	tagFinal      = "final"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

// Runner performs one complete attendance run: browser session, login,
// workflow, diagnostics and outcome recording.
type Runner struct {
	config      *config.Config
	logger      *zap.Logger
	tracer      trace.Tracer
	browser     ports.BrowserManager
	auth        adapters.AuthService
	workflow    adapters.WorkflowService
	diagnostics ports.DiagnosticsSink
	recorders   []ports.OutcomeRecorder
	now         func() time.Time
}

type RunnerParams struct {
	Config      *config.Config
	Logger      *zap.Logger
	Browser     ports.BrowserManager
	Auth        adapters.AuthService
	Workflow    adapters.WorkflowService
	Diagnostics ports.DiagnosticsSink
	Recorders   []ports.OutcomeRecorder
}

func NewRunner(params RunnerParams) *Runner {
	return &Runner{
		config:      params.Config,
		logger:      params.Logger.With(zap.String(logg.Layer, runnerName)),
		tracer:      otel.Tracer(runnerTracer),
		browser:     params.Browser,
		auth:        params.Auth,
		workflow:    params.Workflow,
		diagnostics: params.Diagnostics,
		recorders:   params.Recorders,
		now:         time.Now,
	}
}

// ExitCode maps an outcome to the process exit status. Unverified runs exit
// 0 unless strict verification is on.
func ExitCode(outcome entity.Outcome, strict bool) int {
	switch outcome {
	case entity.OutcomeAlreadySignedIn, entity.OutcomeSignedIn:
		return 0
	case entity.OutcomeUnverified:
		if strict {
			return 1
		}

		return 0
	default:
		return 1
	}
}

func (r *Runner) Run(ctx context.Context) (report *entity.Report) {
	const op = "Run"

	run := entity.RunContext{
		ID:        uuid.New(),
		StartedAt: r.now(),
		Debug:     r.config.AppConfig.Debug,
		Manual:    r.config.AppConfig.ManualRun,
	}
	report = &entity.Report{Run: run}

	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.RunID, run.ID.String()))

	if timeout := r.config.AppConfig.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("run_id", run.ID.String()))

	var err error
	defer func() {
		r.finish(context.WithoutCancel(ctx), logger, report)
		step.SetAttributes(attribute.String("outcome", string(report.Outcome)))
		step.End(err)
	}()

	r.logBanner(logger, run)

	if err = r.config.Validate(); err != nil {
		r.fail(logger, report, err)

		return report
	}

	if err = r.browser.Launch(ctx); err != nil {
		r.fail(logger, report, err)

		return report
	}

	defer func() {
		if err := r.browser.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	portal := r.config.PortalConfig

	if err = r.auth.Login(ctx, portal.LoginURL, portal.LoginID, portal.LoginPassword); err != nil {
		r.diagnostics.Capture(context.WithoutCancel(ctx), tagLoginError)
		r.fail(logger, report, err)

		return report
	}

	result, err := r.workflow.Run(ctx)
	if err != nil {
		r.diagnostics.Capture(context.WithoutCancel(ctx), tagError)
		r.fail(logger, report, err)

		return report
	}

	report.Outcome = result.Outcome
	report.Detail = result.Indicator

	if state, stateErr := r.browser.GetPageState(ctx); stateErr == nil {
		report.URL = state.URL
		report.Title = state.Title
		logger.Info("Final page", zap.String(logg.URL, state.URL), zap.String("title", state.Title))
	}

	if run.Debug || run.Manual || !report.Outcome.Succeeded() {
		r.diagnostics.Capture(context.WithoutCancel(ctx), tagFinal)
	}

	return report
}

func (r *Runner) fail(logger *zap.Logger, report *entity.Report, err error) {
	report.Outcome = entity.OutcomeError
	report.Error = err.Error()
	report.Detail = apperr.ReasonOf(err)

	logger.Error("Attendance run failed",
		zap.String("code", apperr.CodeOf(err)),
		zap.String("reason", report.Detail),
		zap.Error(err))
}

func (r *Runner) finish(ctx context.Context, logger *zap.Logger, report *entity.Report) {
	report.FinishedAt = r.now()
	report.ExitCode = ExitCode(report.Outcome, r.config.AppConfig.StrictVerification)

	fields := []zap.Field{
		zap.String(logg.Outcome, string(report.Outcome)),
		zap.String("detail", report.Detail),
		zap.Int("exit_code", report.ExitCode),
		zap.Duration("duration", report.FinishedAt.Sub(report.Run.StartedAt)),
	}

	switch {
	case report.Outcome.Succeeded():
		logger.Info("Attendance run finished", fields...)
	case report.ExitCode == 0:
		logger.Warn("Attendance run finished without verification", fields...)
	default:
		logger.Error("Attendance run finished with failure", fields...)
	}

	for _, recorder := range r.recorders {
		if err := recorder.Record(ctx, report); err != nil {
			logger.Warn("Failed to record outcome", zap.Error(err))
		}
	}
}

func (r *Runner) logBanner(logger *zap.Logger, run entity.RunContext) {
	utc := run.StartedAt.UTC()
	weekday := utc.Weekday()

	logger.Info("Attendance run starting",
		zap.String("utc", utc.Format(time.RFC1123)),
		zap.String("ist", run.StartedAt.In(ist).Format("15:04")),
		zap.Bool("weekend", weekday == time.Saturday || weekday == time.Sunday),
		zap.Bool("manual_run", run.Manual),
		zap.Bool("debug", run.Debug))

	if run.Manual {
		logger.Info("Manual run: attempting sign-in regardless of time")
	}
}
