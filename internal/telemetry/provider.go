// Package telemetry provides OpenTelemetry metrics export for serviced.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/fyrsmithlabs/serviced/internal/config"
)

// Version is the service version reported in the OTEL resource.
// Overridden at build time via ldflags.
var Version = "0.1.0"

const defaultExportInterval = 15 * time.Second

// Provider owns the OTLP meter provider and its graceful shutdown.
// When telemetry is disabled it is a no-op.
type Provider struct {
	meterProvider *metric.MeterProvider
}

// New initializes metrics export according to the observability
// configuration and installs the global meter provider. The caller must
// Shutdown the returned provider to flush pending metrics.
func New(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableTelemetry {
		return &Provider{}, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(Version),
	)

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(
			metric.NewPeriodicReader(
				exporter,
				metric.WithInterval(defaultExportInterval),
			),
		),
	)
	otel.SetMeterProvider(mp)

	return &Provider{meterProvider: mp}, nil
}

// newExporter builds the OTLP exporter for the configured protocol.
// Cumulative temporality keeps the output compatible with
// Prometheus-style backends.
func newExporter(ctx context.Context, cfg config.ObservabilityConfig) (metric.Exporter, error) {
	cumulativeSelector := func(metric.InstrumentKind) metricdata.Temporality {
		return metricdata.CumulativeTemporality
	}

	if cfg.Protocol == "http/protobuf" {
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(stripScheme(cfg.Endpoint)),
			otlpmetrichttp.WithTemporalitySelector(cumulativeSelector),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTemporalitySelector(cumulativeSelector),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

// stripScheme removes http:// or https:// from an endpoint URL.
// The OTEL HTTP exporter expects just host:port, not a full URL.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return endpoint
}

// ForceFlush immediately exports pending metrics.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}

	if err := p.meterProvider.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}
	return nil
}
