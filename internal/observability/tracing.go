// Package observability настраивает трассировку OpenTelemetry.
package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName - имя трассировщика для всех спанов клиента.
const TracerName = "audience-client"

// TracingConfig описывает параметры трассировки.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Version     string
	// Output - куда писать спаны. По умолчанию io.Discard.
	Output io.Writer
}

// ShutdownFunc сбрасывает и останавливает экспорт спанов.
type ShutdownFunc func(context.Context) error

// InitTracing регистрирует глобальный TracerProvider с экспортом в Output.
// Если трассировка выключена, глобальный провайдер не меняется.
func InitTracing(ctx context.Context, log *slog.Logger, cfg TracingConfig) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	if log == nil {
		log = slog.Default()
	}
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = TracerName
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(cfg.Version),
		attribute.String("service.component", "cli"),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Debug("otel tracing initialized", "service", serviceName)
	return tp.Shutdown, nil
}

// Tracer возвращает трассировщик клиента из глобального провайдера.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
