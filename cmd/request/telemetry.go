package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	export "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// telemetry logs finished spans and collected metrics.
type telemetry struct {
	logger         *zap.Logger
	registry       *prometheus.Registry
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
}

func newTelemetry(logger *zap.Logger) *telemetry {
	t := &telemetry{logger: logger.Named("telemetry"), registry: prometheus.NewRegistry()}
	t.tracerProvider = trace.NewTracerProvider(trace.WithSyncer(&spanLogger{logger: t.logger}))

	opts := []metric.Option{}
	if exporter, err := export.New(export.WithRegisterer(t.registry)); err == nil {
		opts = append(opts, metric.WithReader(exporter))
	} else {
		t.logger.Warn("cannot create metrics exporter", zap.Error(err))
	}
	t.meterProvider = metric.NewMeterProvider(opts...)
	return t
}

// shutdown flushes spans and logs all metric families.
func (t *telemetry) shutdown(ctx context.Context) {
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		t.logger.Warn("cannot shutdown tracer provider", zap.Error(err))
	}

	families, err := t.registry.Gather()
	if err != nil {
		t.logger.Warn("cannot gather metrics", zap.Error(err))
	}
	for _, family := range families {
		t.logger.Info("metric", zap.String("metric.name", family.GetName()), zap.Int("metric.series", len(family.GetMetric())))
	}

	if err := t.meterProvider.Shutdown(ctx); err != nil {
		t.logger.Warn("cannot shutdown meter provider", zap.Error(err))
	}
}

// spanLogger exports finished spans to the logger.
type spanLogger struct {
	logger *zap.Logger
}

func (e *spanLogger) ExportSpans(_ context.Context, spans []trace.ReadOnlySpan) error {
	for _, span := range spans {
		e.logger.Debug("span",
			zap.String("span.name", span.Name()),
			zap.String("span.trace_id", span.SpanContext().TraceID().String()),
			zap.Duration("span.duration", span.EndTime().Sub(span.StartTime())),
			zap.String("span.status", span.Status().Code.String()),
		)
	}
	return nil
}

func (e *spanLogger) Shutdown(context.Context) error {
	return nil
}
