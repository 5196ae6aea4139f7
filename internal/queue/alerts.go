// Package queue publishes suspension alerts to SQS for downstream consumers
// such as the notification workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"railwatch/internal/config"
	"railwatch/internal/routes"
	"railwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SuspensionAlert is the message body published when a route's predicted
// status crosses into suspended or cancelled.
type SuspensionAlert struct {
	AlertID             string               `json:"alert_id"`
	RouteID             string               `json:"route_id"`
	RouteName           string               `json:"route_name"`
	Probability         int                  `json:"probability"`
	Status              types.OperationState `json:"status"`
	Reasons             types.Reasons        `json:"reasons"`
	EstimatedResumption string               `json:"estimated_resumption,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

// AlertDispatcher sends SuspensionAlert messages when an evaluation predicts a
// service stop that the previous evaluation did not.
type AlertDispatcher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewAlertDispatcher creates an AlertDispatcher publishing to the suspension
// alert queue from the AWS configuration.
func NewAlertDispatcher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *AlertDispatcher {
	return &AlertDispatcher{
		client:   client,
		queueURL: awsCfg.SuspensionAlertQueue,
		logger:   logger,
	}
}

// shouldAlert reports whether the transition from prev to next warrants an
// alert. Only entering a stopped state fires; staying stopped or recovering
// does not.
func shouldAlert(prev, next types.OperationState) bool {
	stopped := func(s types.OperationState) bool {
		return s == types.StateSuspended || s == types.StateCancelled
	}
	return stopped(next) && !stopped(prev)
}

// Dispatch publishes an alert for the given result if its status newly entered
// suspended or cancelled relative to prevStatus. It returns nil without
// sending when no alert is warranted.
func (d *AlertDispatcher) Dispatch(ctx context.Context, prevStatus types.OperationState, result *types.PredictionResult) error {
	if !shouldAlert(prevStatus, result.Status) {
		return nil
	}

	alert := SuspensionAlert{
		AlertID:             uuid.New().String(),
		RouteID:             result.RouteID,
		RouteName:           routes.DisplayName(result.RouteID),
		Probability:         result.Probability,
		Status:              result.Status,
		Reasons:             result.Reasons,
		EstimatedResumption: result.EstimatedRecoveryTime,
		CreatedAt:           time.Now().UTC(),
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal SuspensionAlert: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"route_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(result.RouteID),
			},
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(result.Status)),
			},
		},
	}

	if _, err := d.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send SuspensionAlert to %s: %w", d.queueURL, err)
	}

	d.logger.InfoContext(ctx, "suspension alert sent",
		"queue_url", d.queueURL,
		"alert_id", alert.AlertID,
		"route_id", alert.RouteID,
		"status", string(alert.Status),
		"probability", alert.Probability,
	)

	return nil
}
