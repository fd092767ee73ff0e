package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/pkg/database"
)

// auditEventRepository implements AuditEventRepository interface
type auditEventRepository struct {
	db *database.Postgres
}

// NewAuditEventRepository creates a new audit event repository
func NewAuditEventRepository(db *database.Postgres) AuditEventRepository {
	return &auditEventRepository{db: db}
}

// Append writes one immutable audit event. The event id is timestamp-first
// so events order by time, with a uuid suffix so two events appended in the
// same instant for the same account still get distinct ids.
func (r *auditEventRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (account_id, event_id, action, provider, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.EventID == "" {
		event.EventID = fmt.Sprintf("%s#%s", event.CreatedAt.Format(time.RFC3339Nano), uuid.New().String())
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		event.AccountID,
		event.EventID,
		event.Action,
		event.Provider,
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

// ListByAccount retrieves the audit trail for an account in event order
func (r *auditEventRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.AuditEvent, error) {
	query := `
		SELECT account_id, event_id, action, provider, details, created_at
		FROM audit_events
		WHERE account_id = $1
		ORDER BY event_id ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		event := &domain.AuditEvent{}
		err := rows.Scan(
			&event.AccountID,
			&event.EventID,
			&event.Action,
			&event.Provider,
			&event.Details,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}

	return events, nil
}
