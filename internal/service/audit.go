package service

import (
	"context"

	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/repository"
	"github.com/prkovalenko/identity-link-service/pkg/observability"
	"go.uber.org/zap"
)

// auditTrail implements Audit
type auditTrail struct {
	events  repository.AuditEventRepository
	metrics *observability.EngineMetrics
	logger  *zap.Logger
}

// NewAudit creates a new audit trail writer
func NewAudit(events repository.AuditEventRepository, metrics *observability.EngineMetrics, logger *zap.Logger) Audit {
	return &auditTrail{
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// Record appends one audit event. A failed append is surfaced as a warning
// and swallowed: the account state it describes is already durable, and the
// trail must never abort the operation it narrates.
func (a *auditTrail) Record(ctx context.Context, accountID, action, provider, details string) {
	event := &domain.AuditEvent{
		AccountID: accountID,
		Action:    action,
		Provider:  provider,
		Details:   details,
	}

	a.metrics.RecordAuditEvent(ctx, action)
	if err := a.events.Append(ctx, event); err != nil {
		a.logger.Warn("Failed to append audit event",
			zap.String("account_id", accountID),
			zap.String("action", action),
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
}
