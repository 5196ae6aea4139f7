// Package obs emits operational metrics for the prediction service to AWS
// CloudWatch.
package obs

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"railwatch/internal/types"
)

// Metric and dimension names.
const (
	metricPredictionEvaluated   = "PredictionEvaluated"
	metricPredictionProbability = "PredictionProbability"
	metricOfficialOverride      = "OfficialOverride"
	metricEvaluationLatency     = "EvaluationLatency"

	dimRoute  = "Route"
	dimStatus = "Status"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics is the recording surface the handlers depend on.
type Metrics interface {
	RecordPrediction(ctx context.Context, result *types.PredictionResult)
	RecordLatency(ctx context.Context, routeID string, duration time.Duration)
}

// Compile-time assertions.
var (
	_ Metrics = (*CloudWatchMetrics)(nil)
	_ Metrics = NopMetrics{}
)

// CloudWatchMetrics publishes prediction metrics to a CloudWatch namespace.
// Publish failures are logged and swallowed; metrics never fail a request.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to the given
// namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordPrediction emits one evaluation count with Route and Status
// dimensions, the predicted probability per route, and an override count when
// the operator's announcement took precedence over the model.
func (m *CloudWatchMetrics) RecordPrediction(ctx context.Context, result *types.PredictionResult) {
	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String(metricPredictionEvaluated),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(dimRoute), Value: aws.String(result.RouteID)},
				{Name: aws.String(dimStatus), Value: aws.String(string(result.Status))},
			},
		},
		{
			MetricName: aws.String(metricPredictionProbability),
			Value:      aws.Float64(float64(result.Probability)),
			Unit:       cwtypes.StandardUnitNone,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(dimRoute), Value: aws.String(result.RouteID)},
			},
		},
	}

	if result.IsOfficialOverride {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(metricOfficialOverride),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(dimRoute), Value: aws.String(result.RouteID)},
			},
		})
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record prediction metrics",
			"error", err,
			"route_id", result.RouteID,
			"status", string(result.Status),
		)
	}
}

// RecordLatency emits the end-to-end evaluation time for one route in
// milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, routeID string, duration time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(metricEvaluationLatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String(dimRoute), Value: aws.String(routeID)},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record latency metric",
			"error", err,
			"route_id", routeID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// NopMetrics discards all metrics. Used when metric publishing is disabled.
type NopMetrics struct{}

func (NopMetrics) RecordPrediction(context.Context, *types.PredictionResult) {}

func (NopMetrics) RecordLatency(context.Context, string, time.Duration) {}
