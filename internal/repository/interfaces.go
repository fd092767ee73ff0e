package repository

import (
	"context"

	"github.com/prkovalenko/identity-link-service/internal/domain"
)

// AccountRepository defines metadata-store operations for canonical accounts.
type AccountRepository interface {
	// CreateIfAbsent inserts the account unless one with the same id already
	// exists. Returns false when the row was already present; a lost race is
	// a no-op, never an error.
	CreateIfAbsent(ctx context.Context, account *domain.Account) (bool, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	// GetByEmail resolves an account through the normalized-email index.
	// When a race produced more than one row, the oldest wins.
	GetByEmail(ctx context.Context, normalizedEmail string) (*domain.Account, error)
	// Touch bumps updated_at and records the source of the write.
	Touch(ctx context.Context, accountID, source string) error
}

// AuthMethodRepository defines operations for durable login-method facts.
type AuthMethodRepository interface {
	// CreateIfAbsent inserts the method row unless the (account, provider)
	// pair already exists. Returns false on the duplicate.
	CreateIfAbsent(ctx context.Context, method *domain.AuthMethod) (bool, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.AuthMethod, error)
}

// AuditEventRepository defines append-only audit trail operations.
type AuditEventRepository interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
	ListByAccount(ctx context.Context, accountID string) ([]*domain.AuditEvent, error)
}
