package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"dqaudit/internal/config"
)

const (
	ServiceVersion    = "1.0.0"
	InstrumentationID = "dqaudit"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// Registry is set when the prometheus metric exporter is enabled
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// InitializeOTel sets up tracing and metrics per cfg. Spans from the stdout
// exporter go to traceOut (stderr when nil). With both exporters set to
// "none" the returned Tracer and Meter are the global no-op ones.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger, traceOut io.Writer) (*OTelProviders, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if traceOut == nil {
		traceOut = os.Stderr
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(ctx, cfg, res, traceOut, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.DebugContext(ctx, "OpenTelemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, out io.Writer, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(out),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(InstrumentationID, trace.WithInstrumentationVersion(ServiceVersion))
		otel.SetTracerProvider(tp)
		providers.Logger.DebugContext(ctx, "Tracing initialized", slog.Float64("sample_ratio", cfg.SampleRatio))
	case "none", "":
		providers.Tracer = otel.GetTracerProvider().Tracer(InstrumentationID)
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	return nil
}

func initializeMetrics(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		reg := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.Registry = reg
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(InstrumentationID, metric.WithInstrumentationVersion(ServiceVersion))
		otel.SetMeterProvider(mp)
		providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	case "none", "":
		providers.Meter = otel.GetMeterProvider().Meter(InstrumentationID)
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}
	return nil
}

// WriteMetrics writes the prometheus text exposition of all collected
// metrics to w. It is a no-op when the prometheus exporter is disabled.
func (p *OTelProviders) WriteMetrics(w io.Writer) error {
	if p.Registry == nil {
		return nil
	}
	families, err := p.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	if p.Logger != nil && (p.TracerProvider != nil || p.MeterProvider != nil) {
		p.Logger.DebugContext(ctx, "OpenTelemetry shutdown complete")
	}
	return nil
}

// AuditMetrics holds the auditor's instruments
type AuditMetrics struct {
	DatasetsAudited metric.Int64Counter
	MissingCells    metric.Int64Counter
	AuditDuration   metric.Float64Histogram
}

// NewAuditMetrics creates the auditor's instruments on meter
func NewAuditMetrics(meter metric.Meter) (*AuditMetrics, error) {
	datasetsAudited, err := meter.Int64Counter(
		"dqaudit.datasets.audited",
		metric.WithDescription("Number of datasets examined, by format and outcome"),
	)
	if err != nil {
		return nil, err
	}

	missingCells, err := meter.Int64Counter(
		"dqaudit.missing.cells",
		metric.WithDescription("Number of missing cells found"),
	)
	if err != nil {
		return nil, err
	}

	auditDuration, err := meter.Float64Histogram(
		"dqaudit.dataset.duration",
		metric.WithDescription("Time spent reading and scoring one dataset"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &AuditMetrics{
		DatasetsAudited: datasetsAudited,
		MissingCells:    missingCells,
		AuditDuration:   auditDuration,
	}, nil
}

// RecordDataset records the outcome of auditing one dataset. status is one
// of "ok", "absent" or "failed".
func (m *AuditMetrics) RecordDataset(ctx context.Context, dataset, format, status string, missing int, duration time.Duration) {
	if m == nil {
		return
	}

	m.DatasetsAudited.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", status),
	))

	if status == "absent" {
		return
	}

	m.AuditDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", status),
	))
	if missing > 0 {
		m.MissingCells.Add(ctx, int64(missing), metric.WithAttributes(
			attribute.String("dataset", dataset),
		))
	}
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}
