// Package observability installs the process-wide logging pipeline.
//
// Logs go to stderr as text or JSON by default. When an OTLP endpoint is
// configured through the standard OTEL_* environment variables, slog records
// are instead bridged into the OpenTelemetry log SDK and exported.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const loggerName = "bookmarkd"

// Instrument sets the slog default logger according to level and format.
func Instrument(level slog.Level, format string) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv("OTEL_LOGS_EXPORTER") != "" {
		return instrumentOTel(level)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// instrumentOTel bridges slog into the OpenTelemetry log SDK. The exporter
// honors the standard OTEL_EXPORTER_OTLP_* environment variables; severity
// filtering happens in the processor so the exporter never sees suppressed
// records.
func instrumentOTel(level slog.Level) error {
	ctx := context.Background()

	var (
		exporter sdklog.Exporter
		err      error
	)
	switch os.Getenv("OTEL_LOGS_EXPORTER") {
	case "stdout":
		exporter, err = stdoutlog.New()
	default:
		if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
			exporter, err = otlploggrpc.New(ctx)
		} else {
			exporter, err = otlploghttp.New(ctx)
		}
	}
	if err != nil {
		return fmt.Errorf("creating log exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(
			minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level)),
		),
	)

	slog.SetDefault(slog.New(otelslog.NewHandler(loggerName, otelslog.WithLoggerProvider(provider))))
	return nil
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
