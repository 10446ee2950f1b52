package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/notify"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	registry      *promclient.Registry

	// OTel meters and instruments
	meter              metric.Meter
	statusCountGauge   metric.Int64ObservableGauge
	activeSweeperGauge metric.Int64ObservableGauge
	apiAttempts        metric.Int64Counter
	apiDuration        metric.Float64Histogram
	notifications      metric.Int64Counter
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	registry := promclient.NewRegistry()

	// Create Prometheus exporter
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"sumit-gateway",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		registry:      registry,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Status count gauge (per status)
	oe.statusCountGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.status.count",
		metric.WithDescription("Number of webhook events by status"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeStatusCounts),
	)
	if err != nil {
		return fmt.Errorf("creating status count gauge: %w", err)
	}

	// Active sweepers gauge
	oe.activeSweeperGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.sweepers.active",
		metric.WithDescription("Number of sweeper processes with a live heartbeat"),
		metric.WithUnit("{sweepers}"),
		metric.WithInt64Callback(oe.observeActiveSweepers),
	)
	if err != nil {
		return fmt.Errorf("creating active sweepers gauge: %w", err)
	}

	oe.apiAttempts, err = oe.meter.Int64Counter(
		"sumit.api.attempts",
		metric.WithDescription("Outbound HTTP attempts by outcome"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating api attempts counter: %w", err)
	}

	oe.apiDuration, err = oe.meter.Float64Histogram(
		"sumit.api.attempt.duration",
		metric.WithDescription("Duration of outbound HTTP attempts"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating api duration histogram: %w", err)
	}

	oe.notifications, err = oe.meter.Int64Counter(
		"webhook.notifications",
		metric.WithDescription("Lifecycle notifications by topic"),
		metric.WithUnit("{notifications}"),
	)
	if err != nil {
		return fmt.Errorf("creating notifications counter: %w", err)
	}

	return nil
}

// observeStatusCounts is a callback that reports event counts by status
func (oe *OTelExporter) observeStatusCounts(ctx context.Context, observer metric.Int64Observer) error {
	statusCounts, err := oe.collector.GetStatusCounts(ctx)
	if err != nil {
		return err
	}

	for status, count := range statusCounts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("webhook.status", status),
		))
	}

	return nil
}

// observeActiveSweepers is a callback that reports active sweeper counts by state
func (oe *OTelExporter) observeActiveSweepers(ctx context.Context, observer metric.Int64Observer) error {
	sweepers, err := oe.collector.GetActiveSweepers(ctx)
	if err != nil {
		return err
	}

	byStatus := map[string]int64{"idle": 0, "sweeping": 0}
	for _, s := range sweepers {
		byStatus[s.Status]++
	}
	for status, n := range byStatus {
		observer.Observe(n, metric.WithAttributes(
			attribute.String("sweeper.status", status),
		))
	}

	return nil
}

// RecordAttempt counts one connector attempt. Only the host and path are recorded.
func (oe *OTelExporter) RecordAttempt(ctx context.Context, method, rawURL, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("server.address", hostOf(rawURL)),
		attribute.String("url.path", pathOf(rawURL)),
		attribute.String("outcome", outcome),
	)
	oe.apiAttempts.Add(ctx, 1, attrs)
	oe.apiDuration.Record(ctx, duration.Seconds(), attrs)
}

// CountNotification is a notify.Handler counting lifecycle callbacks
func (oe *OTelExporter) CountNotification(ctx context.Context, msg notify.Message) error {
	oe.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", msg.Topic.String()),
	))
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

var _ connector.Recorder = (*OTelExporter)(nil)
