// Package metrics exposes the outcome of the last run in the Prometheus
// textfile format, for node_exporter's textfile collector.
package metrics

import (
	"context"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/pkg/apperr"
	"attendance-agent/pkg/logg"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var outcomes = []entity.Outcome{
	entity.OutcomeAlreadySignedIn,
	entity.OutcomeSignedIn,
	entity.OutcomeUnverified,
	entity.OutcomeSignInFailed,
	entity.OutcomeError,
}

type Textfile struct {
	path     string
	logger   *zap.Logger
	registry *prometheus.Registry

	timestamp prometheus.Gauge
	success   prometheus.Gauge
	duration  prometheus.Gauge
	exitCode  prometheus.Gauge
	outcome   *prometheus.GaugeVec
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewTextfile(params Params) *Textfile {
	t := &Textfile{
		path:     params.Config.OutputConfig.MetricsTextfile,
		logger:   params.Logger.With(zap.String(logg.Layer, "Metrics")),
		registry: prometheus.NewRegistry(),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_last_run_timestamp_seconds",
			Help: "Unix time the last attendance run finished.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_last_run_success",
			Help: "1 when the last run left attendance recorded.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_last_run_duration_seconds",
			Help: "Wall time of the last attendance run.",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_last_run_exit_code",
			Help: "Process exit code of the last attendance run.",
		}),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "attendance_last_run_outcome",
			Help: "1 for the outcome of the last attendance run, 0 for the others.",
		}, []string{"outcome"}),
	}

	t.registry.MustRegister(t.timestamp, t.success, t.duration, t.exitCode, t.outcome)

	return t
}

func (t *Textfile) Record(ctx context.Context, report *entity.Report) error {
	const op = "Record"

	t.timestamp.Set(float64(report.FinishedAt.Unix()))
	t.duration.Set(report.FinishedAt.Sub(report.Run.StartedAt).Seconds())
	t.exitCode.Set(float64(report.ExitCode))

	if report.Outcome.Succeeded() {
		t.success.Set(1)
	} else {
		t.success.Set(0)
	}

	for _, outcome := range outcomes {
		value := 0.0
		if outcome == report.Outcome {
			value = 1
		}

		t.outcome.WithLabelValues(string(outcome)).Set(value)
	}

	if t.path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(t.path, t.registry); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaStage: apperr.StageStorage,
		})
	}

	t.logger.Debug("Metrics written", zap.String(logg.Operation, op), zap.String("path", t.path))

	return nil
}
