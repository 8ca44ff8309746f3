package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentTransitions metric.Int64Counter
	assignmentChanges  metric.Int64Counter
	notifications      metric.Int64Counter
	upstreamRequests   metric.Int64Counter
	upstreamLatency    metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fieldops"
	}
	meter := provider.Meter(name)

	paymentTransitions, err := meter.Int64Counter("fieldops_payment_transitions_total")
	if err != nil {
		return nil, err
	}
	assignmentChanges, err := meter.Int64Counter("fieldops_assignment_changes_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("fieldops_notifications_total")
	if err != nil {
		return nil, err
	}
	upstreamRequests, err := meter.Int64Counter("fieldops_fieldservice_requests_total")
	if err != nil {
		return nil, err
	}
	upstreamLatency, err := meter.Float64Histogram("fieldops_fieldservice_request_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		paymentTransitions: paymentTransitions,
		assignmentChanges:  assignmentChanges,
		notifications:      notifications,
		upstreamRequests:   upstreamRequests,
		upstreamLatency:    upstreamLatency,
	}, nil
}

func (m *Metrics) RecordPaymentTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.paymentTransitions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)...))
}

func (m *Metrics) RecordAssignmentChange(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.assignmentChanges.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)...))
}

func (m *Metrics) RecordNotification(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	)...))
}

// RecordUpstreamRequest tracks calls made to the field-service platform.
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, resource string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("resource", resource),
		attribute.Int("status_code", statusCode),
	)...)
	m.upstreamRequests.Add(ctx, 1, attrs)
	m.upstreamLatency.Record(ctx, duration.Seconds(), attrs)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"from":        {},
	"to":          {},
	"channel":     {},
	"outcome":     {},
	"resource":    {},
	"status_code": {},
	"route":       {},
	"method":      {},
}

// FilterAttributes strips labels outside the allow list to keep series
// cardinality bounded. Job and technician ids never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
