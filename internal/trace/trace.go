// Package trace owns the scanner's OpenTelemetry tracer and the attribute
// vocabulary its spans share: run, symbol, source, sink and action.
package trace

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"watchlist-scanner/internal/types"
)

const serviceName = "watchlist-scanner"

// Span attribute keys.
const (
	KeyRunID     = attribute.Key("scan.run_id")
	KeySymbols   = attribute.Key("scan.symbols")
	KeySymbol    = attribute.Key("scan.symbol")
	KeySource    = attribute.Key("scan.source")
	KeySink      = attribute.Key("notify.sink")
	KeyAction    = attribute.Key("action.side")
	KeyQuantity  = attribute.Key("action.quantity")
	KeyRule      = attribute.Key("action.rule")
	KeyHeld      = attribute.Key("action.in_portfolio")
	KeyErrorKind = attribute.Key("error.kind")
)

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Init enables tracing when LOG_TRACING_ENABLED is "true". Spans go to
// stderr so they never interleave with --json output on stdout.
func Init(version string) error {
	enabled = false
	if os.Getenv("LOG_TRACING_ENABLED") != "true" {
		return nil
	}
	return InitWithWriter(os.Stderr, version)
}

// InitWithWriter enables tracing with the stdout exporter writing to w.
func InitWithWriter(w io.Writer, version string) error {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName), semconv.ServiceVersion(version)),
	)
	if err != nil {
		return err
	}

	tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(serviceName)
	enabled = true
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}
	return tracerProvider.Shutdown(ctx)
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

// StartSpanWith starts a span carrying attrs.
func StartSpanWith(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
}

// StartSymbolSpan starts a span scoped to one watchlist symbol.
func StartSymbolSpan(ctx context.Context, spanName, symbol string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpanWith(ctx, spanName, append([]attribute.KeyValue{Symbol(symbol)}, attrs...)...)
}

// Annotate adds attrs to the span in ctx, if one is recording.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	if !enabled {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

func RunID(id string) attribute.KeyValue      { return KeyRunID.String(id) }
func Symbols(n int) attribute.KeyValue        { return KeySymbols.Int(n) }
func Symbol(symbol string) attribute.KeyValue { return KeySymbol.String(symbol) }
func Source(name string) attribute.KeyValue   { return KeySource.String(name) }
func Sink(name string) attribute.KeyValue     { return KeySink.String(name) }
func ErrorKind(err error) attribute.KeyValue  { return KeyErrorKind.String(types.KindOf(err)) }

// ActionAttrs describes a final Action.
func ActionAttrs(a types.Action) []attribute.KeyValue {
	return []attribute.KeyValue{
		Symbol(a.Ticker),
		KeyAction.String(string(a.Action)),
		KeyQuantity.Float64(a.Quantity),
		KeyRule.String(a.Rule),
		KeyHeld.Bool(a.InPortfolio),
	}
}

func Enabled() bool {
	return enabled
}

// GetTraceFields returns the ids logged alongside every record.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
