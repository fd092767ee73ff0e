package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds the counters for the linking engine. A nil receiver is
// valid and records nothing, so wiring metrics stays optional in tests.
type EngineMetrics struct {
	linkOutcomes metric.Int64Counter
	auditEvents  metric.Int64Counter
}

// NewEngineMetrics registers the engine counters on the global meter provider.
func NewEngineMetrics(serviceName string) (*EngineMetrics, error) {
	meter := otel.GetMeterProvider().Meter(serviceName)

	linkOutcomes, err := meter.Int64Counter(
		"identity_link_outcomes_total",
		metric.WithDescription("Cross-provider link attempts by provider and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create link outcome counter: %w", err)
	}

	auditEvents, err := meter.Int64Counter(
		"identity_audit_events_total",
		metric.WithDescription("Audit events appended by action"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit event counter: %w", err)
	}

	return &EngineMetrics{
		linkOutcomes: linkOutcomes,
		auditEvents:  auditEvents,
	}, nil
}

// RecordLinkOutcome counts one cross-provider link attempt.
func (m *EngineMetrics) RecordLinkOutcome(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.linkOutcomes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordAuditEvent counts one appended audit event.
func (m *EngineMetrics) RecordAuditEvent(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.auditEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("action", action)),
	)
}

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}
