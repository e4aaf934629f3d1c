package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
	attrKind      = "kind"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a no-op recorder; every method checks initialization.
type Metrics struct {
	// Gateway metrics
	gatewayOperationsTotal   metric.Int64Counter
	gatewayOperationDuration metric.Float64Histogram

	// Credential lifecycle metrics
	tokenRefreshTotal metric.Int64Counter
	authGrantTotal    metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
	activeToolCalls      metric.Int64UpDownCounter

	// Webhook metrics
	webhookDeliveriesTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.gatewayOperationsTotal, err = meter.Int64Counter(
		"gmail_gateway_operations_total",
		metric.WithDescription("Total number of Gmail gateway operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_gateway_operations_total counter: %w", err)
	}

	m.gatewayOperationDuration, err = meter.Float64Histogram(
		"gmail_gateway_operation_duration_seconds",
		metric.WithDescription("Gmail gateway operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_gateway_operation_duration_seconds histogram: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.authGrantTotal, err = meter.Int64Counter(
		"oauth_grant_total",
		metric.WithDescription("Total number of interactive authorization grants"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_grant_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.activeToolCalls, err = meter.Int64UpDownCounter(
		"mcp_tool_active_calls",
		metric.WithDescription("Number of tool calls currently executing"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_active_calls gauge: %w", err)
	}

	m.webhookDeliveriesTotal, err = meter.Int64Counter(
		"webhook_deliveries_total",
		metric.WithDescription("Total number of workflow webhook deliveries"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook_deliveries_total counter: %w", err)
	}

	return m, nil
}

// RecordGatewayOperation records a Gmail gateway operation.
//
// Parameters:
//   - operation: gateway operation name (send_email, search_emails, ...)
//   - status: "success" or "error"
//   - errorKind: taxonomy kind on error, empty on success
//   - duration: time taken for the operation
func (m *Metrics) RecordGatewayOperation(ctx context.Context, operation, status, errorKind string, duration time.Duration) {
	if m.gatewayOperationsTotal == nil || m.gatewayOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String(attrKind, errorKind))
	}

	m.gatewayOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gatewayOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTokenRefresh records an OAuth token refresh attempt.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.tokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordAuthGrant records an interactive authorization grant attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordAuthGrant(ctx context.Context, result string) {
	if m.authGrantTotal == nil {
		return // Instrumentation not initialized
	}
	m.authGrantTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name,
// status, and duration. The account label is only attached when detailed
// labels are enabled and should already be anonymized by the caller.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordWebhookDelivery records a workflow webhook delivery attempt.
func (m *Metrics) RecordWebhookDelivery(ctx context.Context, status string) {
	if m.webhookDeliveriesTotal == nil {
		return // Instrumentation not initialized
	}
	m.webhookDeliveriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}

// IncrementActiveToolCalls marks one more tool call in flight.
func (m *Metrics) IncrementActiveToolCalls(ctx context.Context) {
	if m.activeToolCalls == nil {
		return // Instrumentation not initialized
	}
	m.activeToolCalls.Add(ctx, 1)
}

// DecrementActiveToolCalls marks one tool call finished.
func (m *Metrics) DecrementActiveToolCalls(ctx context.Context) {
	if m.activeToolCalls == nil {
		return // Instrumentation not initialized
	}
	m.activeToolCalls.Add(ctx, -1)
}
