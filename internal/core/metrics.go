package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"weathernow/internal/types"
)

// Metric names and dimensions emitted for API requests.
const (
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"

	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"
)

const (
	// maxDatumsPerPut is the CloudWatch limit on datums per PutMetricData.
	maxDatumsPerPut = 1000
	// maxPendingDatums caps the buffer between flushes.
	maxPendingDatums = 20000
)

// CloudWatchClient abstracts PutMetricData for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var (
	_ MetricsCollector = (*CloudWatchMetrics)(nil)
	_ MetricsCollector = (*LogMetrics)(nil)
)

// CloudWatchMetrics buffers request metrics and publishes them to CloudWatch
// in batches. RecordRequest never blocks on the network; Run flushes on an
// interval and Flush drains the buffer on demand.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	clock     types.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
	dropped int
}

// NewCloudWatchMetrics creates a collector publishing under namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, clock types.Clock, logger *slog.Logger) *CloudWatchMetrics {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		clock:     clock,
		logger:    logger.With("component", "cloudwatch-metrics"),
	}
}

// RecordRequest buffers one latency and one count datum.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	ts := m.clock.Now()
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimMethod), Value: aws.String(method)},
		{Name: aws.String(DimEndpoint), Value: aws.String(endpoint)},
		{Name: aws.String(DimStatus), Value: aws.String(status)},
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending)+2 > maxPendingDatums {
		m.dropped += 2
		return
	}
	m.pending = append(m.pending,
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(ts),
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(ts),
			Dimensions: dims,
		},
	)
}

// Flush publishes everything buffered so far. Batches that fail are logged
// and discarded; the joined error reports them.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	dropped := m.dropped
	m.pending = nil
	m.dropped = 0
	m.mu.Unlock()

	if dropped > 0 {
		m.logger.WarnContext(ctx, "metric buffer overflowed", "dropped", dropped)
	}

	var errs []error
	for start := 0; start < len(batch); start += maxDatumsPerPut {
		end := min(start+maxDatumsPerPut, len(batch))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to publish metrics",
				"error", err,
				"datums", end-start,
			)
			errs = append(errs, fmt.Errorf("put metric data: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run flushes every interval until ctx is done. Flush errors are logged, not
// returned, so a CloudWatch outage never stops the API.
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = m.Flush(ctx)
		}
	}
}

// LogMetrics writes each request metric as a structured debug log line.
type LogMetrics struct {
	logger *slog.Logger
}

// NewLogMetrics creates a log-backed collector.
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{logger: logger.With("component", "metrics")}
}

func (m *LogMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.logger.Debug("request metric",
		"metric", MetricAPILatency,
		"method", method,
		"endpoint", endpoint,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}
