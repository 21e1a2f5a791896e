package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/flashloan-arb/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "empty"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// Settings describes where spans are exported.
type Settings struct {
	ServiceName string
	Provider    Provider
	Endpoint    string
	Headers     string // comma separated key=value pairs
}

type TracerOptions struct {
	exporter           sdktrace.SpanExporter
	tracerProviderName string
	useEmpty           bool
}

type TracerOption func(*TracerOptions)

// WithProvider selects the span exporter. Unknown providers fall back to the empty provider.
func WithProvider(s Settings, log logger.LoggerInterface) TracerOption {
	switch s.Provider {
	case ZipkinProvider:
		return useZipkin(s, log)
	case OTLPGRPCProvider:
		return useOTLPGRPC(s, log)
	case OTLPHTTPProvider:
		return useOTLPHTTP(s, log)
	case ConsoleProvider:
		return useConsole(log)
	case EmptyProvider, "":
		return useEmpty()
	}

	log.Warn(context.Background(), "TracerProvider not found, using EmptyProvider", "provider", s.Provider)

	return useEmpty()
}

func useEmpty() TracerOption {
	return func(option *TracerOptions) {
		option.useEmpty = true
		option.tracerProviderName = string(EmptyProvider)
	}
}

func useConsole(log logger.LoggerInterface) TracerOption {
	return func(option *TracerOptions) {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Error(context.Background(), "console exporter init failed", "error", err)
			option.useEmpty = true
			return
		}

		option.exporter = exp
		option.tracerProviderName = string(ConsoleProvider)
	}
}

func useZipkin(s Settings, log logger.LoggerInterface) TracerOption {
	return func(option *TracerOptions) {
		exp, err := zipkin.New(s.Endpoint)
		if err != nil {
			log.Error(context.Background(), "zipkin exporter init failed", "endpoint", s.Endpoint, "error", err)
			option.useEmpty = true
			return
		}

		option.exporter = exp
		option.tracerProviderName = string(ZipkinProvider)
	}
}

func useOTLPGRPC(s Settings, log logger.LoggerInterface) TracerOption {
	return func(option *TracerOptions) {
		log.Info(context.Background(), "Initializing OTLP gRPC exporter", "endpoint", s.Endpoint)

		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpointURL(s.Endpoint),
			otlptracegrpc.WithHeaders(ParseHeaders(s.Headers)),
		)
		if err != nil {
			log.Error(context.Background(), "otlp grpc exporter init failed", "error", err)
			option.useEmpty = true
			return
		}

		option.exporter = exp
		option.tracerProviderName = string(OTLPGRPCProvider)
	}
}

func useOTLPHTTP(s Settings, log logger.LoggerInterface) TracerOption {
	return func(option *TracerOptions) {
		log.Info(context.Background(), "Initializing OTLP HTTP exporter", "endpoint", s.Endpoint)

		exp, err := otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpointURL(s.Endpoint),
			otlptracehttp.WithHeaders(ParseHeaders(s.Headers)),
		)
		if err != nil {
			log.Error(context.Background(), "otlp http exporter init failed", "error", err)
			option.useEmpty = true
			return
		}

		option.exporter = exp
		option.tracerProviderName = string(OTLPHTTPProvider)
	}
}

// ParseHeaders turns "k1=v1,k2=v2" into a map. Malformed entries are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, kv := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok || k == "" {
			continue
		}
		headers[k] = v
	}
	return headers
}

func NewTraceProvider(log logger.LoggerInterface, serviceName string, options ...TracerOption) TraceProvider {
	opts := &TracerOptions{}

	for _, opt := range options {
		opt(opts)
	}

	if opts.useEmpty || opts.exporter == nil {
		return emptyTraceProvider{}
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("otel.provider", opts.tracerProviderName),
		))
	if err != nil {
		log.Warn(context.Background(), "trace resource merge failed", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{
		tp,
	}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := o.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("trace provider shutdown: %w", err)
	}

	return nil
}
