package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/finguard-ai/finguard/internal/redact"
)

const instrumentationName = "finguard"

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and exposes helpers.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	classifications       metric.Int64Counter
	classifyDuration      metric.Float64Histogram
	modelOutcomes         metric.Int64Counter
	ocrDuration           metric.Float64Histogram
	chatRequests          metric.Int64Counter
	chatDuration          metric.Float64Histogram
	citations             metric.Int64Counter
	activationDeliveries  metric.Int64Counter
	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures OTLP exporters and providers. When disabled it
// returns no-op providers so callers never branch on telemetry.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		return Noop(), nil
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	if protocol == "" {
		protocol = "grpc"
	}
	if protocol != "grpc" && protocol != "http" {
		return nil, fmt.Errorf("telemetry: unsupported protocol %q", cfg.Protocol)
	}

	redact.Logf("telemetry enabled (OpenTelemetry OTLP %s) endpoint=%s; if no collector is listening, periodic 'failed to upload metrics' warnings are expected", protocol, cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	spanExporter, metricExporter, err := newExporters(ctx, protocol, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer(instrumentationName),
		meter:                 mp.Meter(instrumentationName),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: mp.Shutdown,
	}
	p.initInstruments()
	return p, nil
}

// Noop returns a disabled provider.
func Noop() *Provider {
	p := &Provider{
		tracer: tracenoop.NewTracerProvider().Tracer(""),
		meter:  noop.NewMeterProvider().Meter(""),
	}
	p.initInstruments()
	return p
}

// NewWithMeter builds a provider on an existing meter, which lets tests read
// instruments back through a manual reader.
func NewWithMeter(m metric.Meter) *Provider {
	p := &Provider{
		Enabled: true,
		tracer:  tracenoop.NewTracerProvider().Tracer(""),
		meter:   m,
	}
	p.initInstruments()
	return p
}

func newExporters(ctx context.Context, protocol, endpoint string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	if protocol == "http" {
		te, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, nil, err
		}
		me, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, nil, err
		}
		return te, me, nil
	}
	te, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	me, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	return te, me, nil
}

func (p *Provider) initInstruments() {
	// Instrument errors are ignored; telemetry is best-effort.
	p.classifications, _ = p.meter.Int64Counter("finguard_classifications_total")
	p.classifyDuration, _ = p.meter.Float64Histogram("finguard_classification_duration_ms")
	p.modelOutcomes, _ = p.meter.Int64Counter("finguard_model_outcomes_total")
	p.ocrDuration, _ = p.meter.Float64Histogram("finguard_ocr_duration_ms")
	p.chatRequests, _ = p.meter.Int64Counter("finguard_chat_requests_total")
	p.chatDuration, _ = p.meter.Float64Histogram("finguard_chat_duration_ms")
	p.citations, _ = p.meter.Int64Counter("finguard_chat_citations_total")
	p.activationDeliveries, _ = p.meter.Int64Counter("finguard_activation_deliveries_total")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// StartSpan starts a span with filtered attributes.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, trace.WithAttributes(SafeAttributes(attrs)...))
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordClassification counts one classification call. modelOutcome is empty
// when no model was consulted.
func (p *Provider) RecordClassification(ctx context.Context, channel, method, verdict, modelOutcome string, durMs float64) {
	if p == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("finguard.channel", channel),
		attribute.String("finguard.method", method),
		attribute.String("finguard.verdict", verdict),
	)
	p.classifications.Add(ctx, 1, labels)
	p.classifyDuration.Record(ctx, durMs, labels)
	if modelOutcome != "" {
		p.modelOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("finguard.model_outcome", modelOutcome)))
	}
}

// RecordOCR records the latency of one extraction.
func (p *Provider) RecordOCR(ctx context.Context, success bool, durMs float64) {
	if p == nil {
		return
	}
	p.ocrDuration.Record(ctx, durMs, metric.WithAttributes(attribute.Bool("finguard.success", success)))
}

// RecordChat counts one assistant turn and the citations it carried.
func (p *Provider) RecordChat(ctx context.Context, provider string, failed bool, citations int, durMs float64) {
	if p == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("finguard.provider", provider),
		attribute.Bool("finguard.failed", failed),
	)
	p.chatRequests.Add(ctx, 1, labels)
	p.chatDuration.Record(ctx, durMs, labels)
	if citations > 0 {
		p.citations.Add(ctx, int64(citations), metric.WithAttributes(attribute.String("finguard.provider", provider)))
	}
}

// RecordActivationDelivery counts a sink delivery attempt.
func (p *Provider) RecordActivationDelivery(sink string, err error) {
	if p == nil {
		return
	}
	p.activationDeliveries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("finguard.sink", sinkKind(sink)),
		attribute.Bool("finguard.success", err == nil),
	))
}

// sinkKind drops the destination from a sink name such as "webhook:https://..."
// so URLs never become metric labels.
func sinkKind(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}
