package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"dqaudit/internal/config"
	apperrors "dqaudit/internal/errors"
	"dqaudit/internal/files"
	"dqaudit/internal/infrastructure"
	"dqaudit/internal/tabular"
)

// Dataset is one file to audit, named relative to the data directory
type Dataset struct {
	Name   string
	Format tabular.Format
}

// NewDataset infers the format of name from its extension
func NewDataset(name string) (Dataset, error) {
	format, err := tabular.FormatFromPath(name)
	if err != nil {
		return Dataset{}, apperrors.NewValidationError(err.Error()).WithContext("file", name)
	}
	return Dataset{Name: name, Format: format}, nil
}

// DefaultDatasets returns the fixed scan list in scan order
func DefaultDatasets() []Dataset {
	return []Dataset{
		{Name: "city_zones.csv", Format: tabular.FormatCSV},
		{Name: "energy_meters.csv", Format: tabular.FormatCSV},
		{Name: "traffic_sensors.csv", Format: tabular.FormatCSV},
		{Name: "weather_data.parquet", Format: tabular.FormatParquet},
		{Name: "air_quality.json", Format: tabular.FormatJSON},
	}
}

// Auditor reads datasets from a data directory and scores their missing values
type Auditor struct {
	locator  *files.Locator
	workers  int
	failFast bool
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *infrastructure.AuditMetrics
}

// Option configures an Auditor
type Option func(*Auditor)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run and dataset spans
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Auditor) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithMetrics sets the instruments outcomes are recorded on
func WithMetrics(m *infrastructure.AuditMetrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

// WithAuditConfig applies the worker count and failure policy
func WithAuditConfig(cfg config.AuditConfig) Option {
	return func(a *Auditor) {
		if cfg.Workers > 0 {
			a.workers = cfg.Workers
		}
		a.failFast = cfg.FailFast
	}
}

// NewAuditor creates an auditor reading from dataDir. By default it runs
// one dataset at a time and records decode failures without stopping.
func NewAuditor(dataDir string, opts ...Option) *Auditor {
	a := &Auditor{
		locator: files.NewLocator(dataDir),
		workers: 1,
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("dqaudit"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = infrastructure.WithComponent(a.logger, "auditor")
	return a
}

// Audit runs the auditor over the default datasets in dataDir
func Audit(ctx context.Context, dataDir string, opts ...Option) (*Results, error) {
	return NewAuditor(dataDir, opts...).Audit(ctx, DefaultDatasets())
}

// outcome is one dataset's slot; absent files leave both fields nil
type outcome struct {
	stats   *DatasetStats
	failure *FileError
}

// Audit scores each dataset. Absent files are skipped. A file that cannot
// be read is recorded in Results.Failures, or returned as the error when
// fail-fast is set. Results are in the order of datasets regardless of
// the worker count.
func (a *Auditor) Audit(ctx context.Context, datasets []Dataset) (*Results, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := a.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		attribute.String("data.dir", a.locator.BasePath()),
		attribute.Int("datasets", len(datasets)),
		attribute.Int("workers", a.workers),
	))
	defer span.End()

	if !a.locator.BaseExists() {
		a.logger.WarnContext(ctx, "data directory not found", slog.String("path", a.locator.BasePath()))
	}

	start := time.Now()
	slots := make([]outcome, len(datasets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, ds := range datasets {
		g.Go(func() error {
			out, err := a.auditDataset(gctx, ds)
			if err != nil {
				return err
			}
			slots[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	entries := make([]Entry, 0, len(slots))
	for _, s := range slots {
		switch {
		case s.stats != nil:
			entries = append(entries, Entry{Stats: s.stats})
		case s.failure != nil:
			entries = append(entries, Entry{Failure: s.failure})
		}
	}
	results := newResults(entries)

	span.SetAttributes(
		attribute.Int("datasets.audited", results.Len()),
		attribute.Int("datasets.failed", len(results.Failures())),
	)
	a.logger.InfoContext(ctx, "audit complete",
		slog.Int("audited", results.Len()),
		slog.Int("failed", len(results.Failures())),
		slog.Int("with_missing", len(results.WithMissing())),
		slog.Duration("duration", time.Since(start)),
	)

	return results, nil
}

// auditDataset returns a non-nil error only when the whole audit must stop
func (a *Auditor) auditDataset(ctx context.Context, ds Dataset) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}

	ctx, span := a.tracer.Start(ctx, "audit.dataset", trace.WithAttributes(
		attribute.String("file", ds.Name),
		attribute.String("format", string(ds.Format)),
	))
	defer span.End()

	logger := a.logger.With(slog.String("file", ds.Name))
	start := time.Now()

	info, found, err := a.locator.Locate(ds.Name)
	if !found {
		if err == nil {
			logger.DebugContext(ctx, "dataset not present, skipping")
			span.SetAttributes(attribute.String("status", "absent"))
			a.metrics.RecordDataset(ctx, ds.Name, string(ds.Format), "absent", 0, 0)
			return outcome{}, nil
		}
		err = apperrors.NewStorageError(fmt.Sprintf("failed to locate %s", ds.Name), err).
			WithContext("file", ds.Name)
		return a.fail(ctx, span, logger, ds, err, start)
	}
	if err != nil {
		err = apperrors.NewStorageError(fmt.Sprintf("cannot read %s", ds.Name), err).
			WithContext("file", ds.Name)
		return a.fail(ctx, span, logger, ds, err, start)
	}

	table, err := a.decode(ctx, ds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return outcome{}, err
		}
		return a.fail(ctx, span, logger, ds, err, start)
	}

	stats := ComputeStats(ds.Name, ds.Format, table)
	span.SetAttributes(
		attribute.String("status", "ok"),
		attribute.Int("rows", stats.TotalRows),
		attribute.Int("columns", stats.TotalColumns),
		attribute.Int("missing", stats.TotalMissing),
	)
	a.metrics.RecordDataset(ctx, ds.Name, string(ds.Format), "ok", stats.TotalMissing, time.Since(start))
	logger.InfoContext(ctx, "dataset audited",
		slog.Int64("size", info.Size),
		slog.Int("rows", stats.TotalRows),
		slog.Int("columns", stats.TotalColumns),
		slog.Int("missing", stats.TotalMissing),
	)

	return outcome{stats: &stats}, nil
}

func (a *Auditor) decode(ctx context.Context, ds Dataset) (*tabular.Table, error) {
	decoder, err := tabular.DecoderFor(ds.Format)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithContext("file", ds.Name)
	}

	data, err := a.locator.Read(ds.Name)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read %s", ds.Name), err).
			WithContext("file", ds.Name)
	}

	table, err := decoder.Decode(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to decode %s", ds.Name), err).
			WithContext("file", ds.Name).
			WithContext("format", string(ds.Format))
	}
	return table, nil
}

// fail applies the failure policy to err
func (a *Auditor) fail(ctx context.Context, span trace.Span, logger *slog.Logger, ds Dataset, err error, start time.Time) (outcome, error) {
	infrastructure.RecordError(ctx, err)
	span.SetAttributes(attribute.String("status", "failed"))
	a.metrics.RecordDataset(ctx, ds.Name, string(ds.Format), "failed", 0, time.Since(start))

	if a.failFast {
		logger.ErrorContext(ctx, "dataset failed, aborting audit", slog.String("error", err.Error()))
		return outcome{}, err
	}

	logger.WarnContext(ctx, "dataset skipped", slog.String("error", err.Error()))
	return outcome{failure: &FileError{Filename: ds.Name, Err: err}}, nil
}
