package bootstrap

import (
	"context"
	"io"
	"os"

	"attendance-agent/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const serviceName = "attendance-agent"

func newTraceProvider(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	options := []stdouttrace.Option{stdouttrace.WithWriter(io.Discard)}
	if config.AppConfig.TraceStdout {
		options = []stdouttrace.Option{stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint()}
	}

	exporter, err := stdouttrace.New(options...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Failed to flush traces", zap.Error(err))
			}

			return nil
		},
	})

	return tp, nil
}
