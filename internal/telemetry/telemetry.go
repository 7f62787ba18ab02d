package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/pkg/types"
)

type telemetry struct {
	tracer         trace.Tracer
	meter          metric.Meter
	tracerProvider *sdktrace.TracerProvider

	scanCounter       metric.Int64Counter
	scanDuration      metric.Float64Histogram
	findingCounter    metric.Int64Counter
	validationCounter metric.Int64Counter
	incidentCounter   metric.Int64Counter
}

func New(ctx context.Context, cfg config.TelemetryConfig) (core.Telemetry, error) {
	if !cfg.Enabled {
		return &noopTelemetry{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter

	switch cfg.ExporterType {
	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer := tp.Tracer(cfg.ServiceName)
	meter := otel.Meter(cfg.ServiceName)

	scanCounter, err := meter.Int64Counter("sentinel.scans.total",
		metric.WithDescription("Total number of posture scans"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	scanDuration, err := meter.Float64Histogram("sentinel.scan.duration",
		metric.WithDescription("Posture scan duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	findingCounter, err := meter.Int64Counter("sentinel.findings.total",
		metric.WithDescription("Total number of findings"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	validationCounter, err := meter.Int64Counter("sentinel.validations.total",
		metric.WithDescription("Total number of request validations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	incidentCounter, err := meter.Int64Counter("sentinel.incidents.total",
		metric.WithDescription("Total number of security incidents"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		tracer:            tracer,
		meter:             meter,
		tracerProvider:    tp,
		scanCounter:       scanCounter,
		scanDuration:      scanDuration,
		findingCounter:    findingCounter,
		validationCounter: validationCounter,
		incidentCounter:   incidentCounter,
	}, nil
}

func (t *telemetry) RecordScan(status types.ScanStatus, durationSeconds float64) {
	ctx := context.Background()

	attrs := []attribute.KeyValue{
		attribute.String("scan.status", string(status)),
	}

	t.scanCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.scanDuration.Record(ctx, durationSeconds, metric.WithAttributes(attrs...))
}

func (t *telemetry) RecordFinding(severity types.Severity) {
	ctx := context.Background()

	attrs := []attribute.KeyValue{
		attribute.String("finding.severity", string(severity)),
	}

	t.findingCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (t *telemetry) RecordValidation(valid bool) {
	ctx := context.Background()

	attrs := []attribute.KeyValue{
		attribute.Bool("validation.valid", valid),
	}

	t.validationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (t *telemetry) RecordIncident(severity types.Severity) {
	ctx := context.Background()

	attrs := []attribute.KeyValue{
		attribute.String("incident.severity", string(severity)),
	}

	t.incidentCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (t *telemetry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.tracerProvider.Shutdown(ctx)
}

type noopTelemetry struct{}

func (n *noopTelemetry) RecordScan(status types.ScanStatus, durationSeconds float64) {}
func (n *noopTelemetry) RecordFinding(severity types.Severity)                       {}
func (n *noopTelemetry) RecordValidation(valid bool)                                 {}
func (n *noopTelemetry) RecordIncident(severity types.Severity)                      {}
func (n *noopTelemetry) Close() error                                                { return nil }
