package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability bundles the OpenTelemetry meter and tracer used around engine operations.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	opCounter      otelmetric.Int64Counter
	opDuration     otelmetric.Float64Histogram
}

// New registers a prometheus-backed meter provider. Tracing is opt-in: with a trace endpoint, spans
// are batched to an OTLP/HTTP collector; without one the tracer is a no-op. The returned value is
// always usable; an error reports which exporter could not be set up.
func New(ctx context.Context, serviceName, traceEndpoint string) (*Observability, error) {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}

	var errs []error
	if traceEndpoint != "" {
		if err := o.setupTracing(ctx, serviceName, traceEndpoint); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.setupMetrics(serviceName); err != nil {
		errs = append(errs, err)
	}
	return o, errors.Join(errs...)
}

func (o *Observability) setupTracing(ctx context.Context, serviceName, endpoint string) error {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return fmt.Errorf("otlp trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	o.tracerProvider = tp
	o.tracer = tp.Tracer(serviceName)
	return nil
}

func (o *Observability) setupMetrics(serviceName string) error {
	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	meter := mp.Meter(serviceName)

	o.meterProvider = mp
	o.opCounter, _ = meter.Int64Counter(
		"matching.operations",
		otelmetric.WithDescription("Engine operations by name and status"),
	)
	o.opDuration, _ = meter.Float64Histogram(
		"matching.operation.duration",
		otelmetric.WithDescription("Engine operation duration"),
		otelmetric.WithUnit("ms"),
	)
	return nil
}

// NewNoop is used by tests and by callers that do not care about telemetry.
func NewNoop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer("noop")}
}

// StartSpan opens a span named after the operation. The returned func records the outcome and
// must be called exactly once.
func (o *Observability) StartSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	if o == nil || o.tracer == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		o.record(ctx, op, status, time.Since(start))
	}
}

func (o *Observability) record(ctx context.Context, op, status string, d time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("operation", op), attribute.String("status", status))
	if o.opCounter != nil {
		o.opCounter.Add(ctx, 1, attrs)
	}
	if o.opDuration != nil {
		o.opDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
