package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"railwatch/internal/config"
	"railwatch/internal/types"
)

// mockSQSSender captures SendMessage calls for test assertions.
type mockSQSSender struct {
	// calls records every SendMessageInput passed to SendMessage.
	calls []*sqs.SendMessageInput
	// err is returned by SendMessage if non-nil (simulates SQS failures).
	err error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{}, nil
}

const testAlertQueueURL = "https://sqs.ap-northeast-1.amazonaws.com/123456789/suspension-alerts"

func newTestDispatcher(mock *mockSQSSender) *AlertDispatcher {
	awsCfg := config.AWSConfig{SuspensionAlertQueue: testAlertQueueURL}
	return NewAlertDispatcher(mock, awsCfg, slog.Default())
}

func suspendedResult() *types.PredictionResult {
	return &types.PredictionResult{
		RouteID:     "jr-hokkaido.chitose",
		TargetDate:  "2025-01-15",
		TargetTime:  "08:00",
		Probability: 82,
		Status:      types.StateSuspended,
		Confidence:  types.ConfidenceHigh,
		Reasons: types.Reasons{
			{Message: "暴風雪警報が発表されています", Priority: 1},
		},
		EstimatedRecoveryTime: "11:30",
	}
}

func TestDispatch_SendsOnTransitionIntoSuspended(t *testing.T) {
	mock := &mockSQSSender{}
	d := newTestDispatcher(mock)

	err := d.Dispatch(context.Background(), types.StateNormal, suspendedResult())
	if err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}

	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 SQS call, got %d", len(mock.calls))
	}
	if *mock.calls[0].QueueUrl != testAlertQueueURL {
		t.Errorf("expected queue URL %q, got %q", testAlertQueueURL, *mock.calls[0].QueueUrl)
	}
}

func TestDispatch_MessageBodyCarriesPrediction(t *testing.T) {
	mock := &mockSQSSender{}
	d := newTestDispatcher(mock)

	before := time.Now().UTC()
	if err := d.Dispatch(context.Background(), types.StateDelay, suspendedResult()); err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}
	after := time.Now().UTC()

	var alert SuspensionAlert
	if err := json.Unmarshal([]byte(*mock.calls[0].MessageBody), &alert); err != nil {
		t.Fatalf("failed to unmarshal message body: %v", err)
	}

	if alert.AlertID == "" {
		t.Error("expected non-empty AlertID")
	}
	if alert.RouteID != "jr-hokkaido.chitose" {
		t.Errorf("RouteID mismatch: got %q", alert.RouteID)
	}
	if alert.RouteName != "千歳線" {
		t.Errorf("RouteName mismatch: got %q", alert.RouteName)
	}
	if alert.Probability != 82 {
		t.Errorf("Probability mismatch: got %d", alert.Probability)
	}
	if alert.Status != types.StateSuspended {
		t.Errorf("Status mismatch: got %q", alert.Status)
	}
	if alert.EstimatedResumption != "11:30" {
		t.Errorf("EstimatedResumption mismatch: got %q", alert.EstimatedResumption)
	}
	if len(alert.Reasons) != 1 || alert.Reasons[0].Priority != 1 {
		t.Errorf("Reasons not carried through: %+v", alert.Reasons)
	}
	if alert.CreatedAt.Before(before) || alert.CreatedAt.After(after) {
		t.Errorf("CreatedAt %v not in expected range [%v, %v]", alert.CreatedAt, before, after)
	}
}

func TestDispatch_SetsMessageAttributes(t *testing.T) {
	mock := &mockSQSSender{}
	d := newTestDispatcher(mock)

	if err := d.Dispatch(context.Background(), types.StateNormal, suspendedResult()); err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}

	attrs := mock.calls[0].MessageAttributes
	route, ok := attrs["route_id"]
	if !ok {
		t.Fatal("expected 'route_id' message attribute to be set")
	}
	if *route.StringValue != "jr-hokkaido.chitose" {
		t.Errorf("route_id attribute mismatch: got %q", *route.StringValue)
	}
	status, ok := attrs["status"]
	if !ok {
		t.Fatal("expected 'status' message attribute to be set")
	}
	if *status.StringValue != string(types.StateSuspended) {
		t.Errorf("status attribute mismatch: got %q", *status.StringValue)
	}
}

func TestDispatch_NoAlertWhenAlreadyStopped(t *testing.T) {
	mock := &mockSQSSender{}
	d := newTestDispatcher(mock)

	if err := d.Dispatch(context.Background(), types.StateSuspended, suspendedResult()); err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}

	if len(mock.calls) != 0 {
		t.Fatalf("expected no SQS calls for an already-stopped route, got %d", len(mock.calls))
	}
}

func TestDispatch_NoAlertOnRecovery(t *testing.T) {
	mock := &mockSQSSender{}
	d := newTestDispatcher(mock)

	result := suspendedResult()
	result.Status = types.StateNormal

	if err := d.Dispatch(context.Background(), types.StateSuspended, result); err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}

	if len(mock.calls) != 0 {
		t.Fatalf("expected no SQS calls on recovery, got %d", len(mock.calls))
	}
}

func TestDispatch_SQSError(t *testing.T) {
	mock := &mockSQSSender{err: fmt.Errorf("service unavailable")}
	d := newTestDispatcher(mock)

	err := d.Dispatch(context.Background(), types.StateNormal, suspendedResult())
	if err == nil {
		t.Fatal("expected error from Dispatch, got nil")
	}
	if !strings.Contains(err.Error(), "failed to send SuspensionAlert") {
		t.Errorf("expected error message to mention SuspensionAlert, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), testAlertQueueURL) {
		t.Errorf("expected error message to contain queue URL, got %q", err.Error())
	}
}

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name string
		prev types.OperationState
		next types.OperationState
		want bool
	}{
		{"normal to suspended", types.StateNormal, types.StateSuspended, true},
		{"delay to cancelled", types.StateDelay, types.StateCancelled, true},
		{"suspended to cancelled", types.StateSuspended, types.StateCancelled, false},
		{"suspended to suspended", types.StateSuspended, types.StateSuspended, false},
		{"suspended to normal", types.StateSuspended, types.StateNormal, false},
		{"normal to delay", types.StateNormal, types.StateDelay, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldAlert(tt.prev, tt.next); got != tt.want {
				t.Errorf("shouldAlert(%q, %q) = %v, want %v", tt.prev, tt.next, got, tt.want)
			}
		})
	}
}
