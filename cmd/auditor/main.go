package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"dqaudit/internal/audit"
	"dqaudit/internal/config"
	"dqaudit/internal/infrastructure"
)

func main() {
	os.Exit(run(context.Background(), config.DefaultDataDir, os.Stdout, os.Stderr))
}

// run audits the fixed datasets under dataDir, writing the report to
// stdout and metrics to stderr. It returns the process exit code.
func run(ctx context.Context, dataDir string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureTraceID(ctx)
	logger.DebugContext(ctx, "Starting missing-data audit",
		slog.String("data_dir", dataDir),
		slog.Int("workers", cfg.Audit.Workers),
		slog.Bool("fail_fast", cfg.Audit.FailFast))

	otel, err := infrastructure.InitializeOTel(cfg.Telemetry, logger, stderr)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewAuditMetrics(otel.Meter)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create metrics", slog.String("error", err.Error()))
		return 1
	}

	auditor := audit.NewAuditor(dataDir,
		audit.WithLogger(logger),
		audit.WithTracer(otel.Tracer),
		audit.WithMetrics(metrics),
		audit.WithAuditConfig(cfg.Audit),
	)

	results, err := auditor.Audit(ctx, audit.DefaultDatasets())
	if err != nil {
		logger.ErrorContext(ctx, "Audit aborted", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "audit aborted: %v\n", err)
		return 1
	}

	if err := audit.NewReporter(stdout).Render(results); err != nil {
		logger.ErrorContext(ctx, "Failed to write report", slog.String("error", err.Error()))
		return 1
	}

	if err := otel.WriteMetrics(stderr); err != nil {
		logger.Warn("Failed to write metrics", slog.String("error", err.Error()))
	}

	return 0
}
