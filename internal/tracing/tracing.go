// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tracing installs the OpenTelemetry tracer provider.
package tracing

import (
	"context"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans over OTLP/HTTP to endpoint and registers the provider
// and W3C trace-context propagator globally. An empty endpoint disables
// tracing and returns a no-op shutdown.
func Setup(ctx context.Context, service, version, endpoint string) (ShutdownFunc, error) {
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, oops.Code("TRACING_EXPORTER_FAILED").With("endpoint", endpoint).Wrap(err)
	}

	tp, err := NewProvider(ctx, exporter, service, version)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return noop, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// NewProvider creates a batching tracer provider over exporter.
func NewProvider(ctx context.Context, exporter sdktrace.SpanExporter, service, version string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, oops.Code("TRACING_RESOURCE_FAILED").Wrap(err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	), nil
}
