package registry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/serviced/internal/registry"

// Metrics holds all registry-related metrics.
type Metrics struct {
	meter            metric.Meter
	logger           *zap.Logger
	hits             metric.Int64Counter
	creations        metric.Int64Counter
	creationFailures metric.Int64Counter
	creationDur      metric.Float64Histogram
	cachedInstances  metric.Int64UpDownCounter
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.hits, err = m.meter.Int64Counter(
		"serviced.registry.hits_total",
		metric.WithDescription("Requests served from an already-cached instance, labeled by category."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create hits counter", zap.Error(err))
	}

	m.creations, err = m.meter.Int64Counter(
		"serviced.registry.creations_total",
		metric.WithDescription("Successful factory invocations, labeled by category. Each unique key creates at most once."),
		metric.WithUnit("{creation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create creations counter", zap.Error(err))
	}

	m.creationFailures, err = m.meter.Int64Counter(
		"serviced.registry.creation_failures_total",
		metric.WithDescription("Failed factory invocations, labeled by category. Failures are never cached, so retries increment again."),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		m.logger.Warn("failed to create creation failures counter", zap.Error(err))
	}

	m.creationDur, err = m.meter.Float64Histogram(
		"serviced.registry.creation_duration_seconds",
		metric.WithDescription("Factory execution time in seconds, labeled by category. Dominated by connection handshakes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create creation duration histogram", zap.Error(err))
	}

	m.cachedInstances, err = m.meter.Int64UpDownCounter(
		"serviced.registry.cached_instances",
		metric.WithDescription("Live cached instances per category. Only decreases on shutdown; there is no eviction."),
		metric.WithUnit("{instance}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cached instances gauge", zap.Error(err))
	}
}

func categoryAttr(category Category) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("category", string(category)))
}

func (m *Metrics) recordHit(ctx context.Context, category Category) {
	if m == nil || m.hits == nil {
		return
	}
	m.hits.Add(ctx, 1, categoryAttr(category))
}

func (m *Metrics) recordCreation(ctx context.Context, category Category, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := categoryAttr(category)
	if m.creations != nil {
		m.creations.Add(ctx, 1, attrs)
	}
	if m.creationDur != nil {
		m.creationDur.Record(ctx, elapsed.Seconds(), attrs)
	}
	if m.cachedInstances != nil {
		m.cachedInstances.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) recordCreationFailure(ctx context.Context, category Category) {
	if m == nil || m.creationFailures == nil {
		return
	}
	m.creationFailures.Add(ctx, 1, categoryAttr(category))
}

func (m *Metrics) recordRelease(ctx context.Context, category Category) {
	if m == nil || m.cachedInstances == nil {
		return
	}
	m.cachedInstances.Add(ctx, -1, categoryAttr(category))
}
