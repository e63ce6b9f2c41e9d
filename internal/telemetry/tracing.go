package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope for todochat spans.
const TracerName = "todochat"

// Span attribute keys.
var (
	AttrSynthetic    = attribute.Key("todochat.turn.synthetic")
	AttrTasksPending = attribute.Key("todochat.tasks.pending")
	AttrTasksDone    = attribute.Key("todochat.tasks.done")
	AttrCandidates   = attribute.Key("todochat.interpret.candidates")
	AttrAdded        = attribute.Key("todochat.tasks.added")
	AttrMessages     = attribute.Key("todochat.completion.messages")
	AttrCollection   = attribute.Key("todochat.store.collection")
)

// TraceOptions configures InitTracing.
type TraceOptions struct {
	Enabled bool
	// Path receives one JSON span per line. Ignored when Writer is set.
	Path    string
	Writer  io.Writer
	Version string
}

// Tracing wraps a tracer provider with its cleanup.
type Tracing struct {
	Tracer   trace.Tracer
	shutdown func(context.Context) error
}

// InitTracing returns a no-op tracer unless opts.Enabled.
func InitTracing(ctx context.Context, opts TraceOptions) (*Tracing, error) {
	if !opts.Enabled {
		return &Tracing{
			Tracer:   NoopTracer(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	w := opts.Writer
	var file *os.File
	if w == nil {
		if opts.Path == "" {
			return nil, fmt.Errorf("trace output path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		file, w = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(TracerName),
		semconv.ServiceVersion(opts.Version),
	))
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Tracing{
		Tracer: tp.Tracer(TracerName),
		shutdown: func(ctx context.Context) error {
			err := tp.Shutdown(ctx)
			if file != nil {
				if cerr := file.Close(); err == nil {
					err = cerr
				}
			}
			return err
		},
	}, nil
}

// Shutdown flushes pending spans and releases the output file.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() trace.Tracer {
	return nooptrace.NewTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartClientSpan starts a span for an outbound call.
func StartClientSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
