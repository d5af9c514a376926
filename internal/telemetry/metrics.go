package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/stormwatch/stormwatch/internal/telemetry"

// WeatherMetrics records weather provider calls and cache lookups.
type WeatherMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
}

// NewWeatherMetrics creates the weather provider instruments.
func NewWeatherMetrics() (*WeatherMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"weather.provider.request.duration",
		metric.WithDescription("Duration of weather provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"weather.provider.request.total",
		metric.WithDescription("Total number of weather provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"weather.cache.hit",
		metric.WithDescription("Number of weather cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"weather.cache.miss",
		metric.WithDescription("Number of weather cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &WeatherMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
	}, nil
}

// RecordRequest records one provider call.
func (m *WeatherMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Detached from the request so a cancelled caller still gets counted.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit.
func (m *WeatherMetrics) RecordCacheHit(provider, operation string) {
	m.cacheHit.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	))
}

// RecordCacheMiss records a cache miss.
func (m *WeatherMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheMiss.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	))
}

// AlertMetrics records alarm lifecycle events and emitted intents.
type AlertMetrics struct {
	alarms  metric.Int64Counter
	intents metric.Int64Counter
	dropped metric.Int64Counter
}

// NewAlertMetrics creates the alert instruments.
func NewAlertMetrics() (*AlertMetrics, error) {
	meter := otel.Meter(meterName)

	alarms, err := meter.Int64Counter(
		"alert.alarm.events",
		metric.WithDescription("Alarm lifecycle events (armed, cancelled, fired)"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	intents, err := meter.Int64Counter(
		"alert.intents",
		metric.WithDescription("Intents emitted by the alert evaluators"),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter(
		"alert.notifications.dropped",
		metric.WithDescription("Notifications suppressed by permission or delivery failure"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	return &AlertMetrics{alarms: alarms, intents: intents, dropped: dropped}, nil
}

// RecordAlarm counts an alarm event.
func (m *AlertMetrics) RecordAlarm(ctx context.Context, event string) {
	m.alarms.Add(ctx, 1, metric.WithAttributes(attribute.String("alarm.event", event)))
}

// RecordIntent counts an emitted intent.
func (m *AlertMetrics) RecordIntent(ctx context.Context, kind, source string) {
	m.intents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("intent.kind", kind),
		attribute.String("intent.source", source),
	))
}

// RecordDropped counts a notification that was not delivered.
func (m *AlertMetrics) RecordDropped(ctx context.Context, notifier, reason string) {
	m.dropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("notifier", notifier),
		attribute.String("reason", reason),
	))
}
