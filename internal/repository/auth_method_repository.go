package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/pkg/database"
)

// authMethodRepository implements AuthMethodRepository interface
type authMethodRepository struct {
	db *database.Postgres
}

// NewAuthMethodRepository creates a new auth method repository
func NewAuthMethodRepository(db *database.Postgres) AuthMethodRepository {
	return &authMethodRepository{db: db}
}

// CreateIfAbsent records a login method for an account. The primary key on
// (account_id, provider) is the only enforcement of the one-row-per-provider
// invariant; duplicate and concurrent attach attempts land here and are
// reported as not-created, never as errors.
func (r *authMethodRepository) CreateIfAbsent(ctx context.Context, method *domain.AuthMethod) (bool, error) {
	query := `
		INSERT INTO auth_methods (account_id, provider, provider_name, provider_subject, username, verified, linked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, provider) DO NOTHING
	`

	if method.Provider == "" {
		method.Provider = strings.ToUpper(method.ProviderName)
	}
	if method.LinkedAt.IsZero() {
		method.LinkedAt = time.Now().UTC()
	}

	result, err := r.db.DB.ExecContext(ctx, query,
		method.AccountID,
		method.Provider,
		method.ProviderName,
		method.ProviderSubject,
		method.Username,
		method.Verified,
		method.LinkedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create auth method: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListByAccount retrieves all auth methods for an account in link order
func (r *authMethodRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.AuthMethod, error) {
	query := `
		SELECT account_id, provider, provider_name, provider_subject, username, verified, linked_at
		FROM auth_methods
		WHERE account_id = $1
		ORDER BY linked_at ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth methods: %w", err)
	}
	defer rows.Close()

	var methods []*domain.AuthMethod
	for rows.Next() {
		method := &domain.AuthMethod{}
		err := rows.Scan(
			&method.AccountID,
			&method.Provider,
			&method.ProviderName,
			&method.ProviderSubject,
			&method.Username,
			&method.Verified,
			&method.LinkedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth method: %w", err)
		}
		methods = append(methods, method)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auth methods: %w", err)
	}

	return methods, nil
}
