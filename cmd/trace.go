// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var tracerProvider *sdktrace.TracerProvider

// installTracing records analysis spans and logs their durations.
func installTracing() {
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&logExporter{}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)
}

func shutdownTracing(ctx context.Context) {
	if tracerProvider == nil {
		return
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Errorf("tracing: %v", err)
	}
	tracerProvider = nil
}

// logExporter writes one log line per finished span.
type logExporter struct{}

var _ sdktrace.SpanExporter = (*logExporter)(nil)

func (*logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		log.Notice(formatSpan(s))
	}
	return nil
}

func (*logExporter) Shutdown(context.Context) error { return nil }

// formatSpan renders a span as "name [file] duration".
func formatSpan(s sdktrace.ReadOnlySpan) string {
	var sb strings.Builder
	sb.WriteString("trace: ")
	sb.WriteString(s.Name())
	for _, kv := range s.Attributes() {
		if kv.Key == semconv.CodeFilepathKey {
			sb.WriteString(" ")
			sb.WriteString(kv.Value.AsString())
		}
	}
	sb.WriteString(" ")
	sb.WriteString(s.EndTime().Sub(s.StartTime()).String())
	return sb.String()
}
