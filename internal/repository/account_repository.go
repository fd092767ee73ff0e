package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/pkg/database"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *database.Postgres
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.Postgres) AccountRepository {
	return &accountRepository{db: db}
}

// CreateIfAbsent inserts a new account row unless the id is already taken.
func (r *accountRepository) CreateIfAbsent(ctx context.Context, account *domain.Account) (bool, error) {
	query := `
		INSERT INTO accounts (account_id, normalized_email, status, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO NOTHING
	`

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}
	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}

	result, err := r.db.DB.ExecContext(ctx, query,
		account.AccountID,
		account.NormalizedEmail,
		account.Status,
		account.Source,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetByID retrieves an account by its id
func (r *accountRepository) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT account_id, normalized_email, status, source, created_at, updated_at
		FROM accounts
		WHERE account_id = $1
	`

	account := &domain.Account{}
	err := r.db.DB.QueryRowContext(ctx, query, accountID).Scan(
		&account.AccountID,
		&account.NormalizedEmail,
		&account.Status,
		&account.Source,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with id %s not found: %w", accountID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves the canonical account for a normalized email. The
// email index is intentionally not unique (see the concurrency model); when
// concurrent first-time signups raced, the oldest row is the canonical one.
func (r *accountRepository) GetByEmail(ctx context.Context, normalizedEmail string) (*domain.Account, error) {
	query := `
		SELECT account_id, normalized_email, status, source, created_at, updated_at
		FROM accounts
		WHERE normalized_email = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	account := &domain.Account{}
	err := r.db.DB.QueryRowContext(ctx, query, normalizedEmail).Scan(
		&account.AccountID,
		&account.NormalizedEmail,
		&account.Status,
		&account.Source,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with email %s not found: %w", normalizedEmail, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// Touch updates the account's updated_at timestamp and write source
func (r *accountRepository) Touch(ctx context.Context, accountID, source string) error {
	query := `
		UPDATE accounts
		SET updated_at = $2, source = $3
		WHERE account_id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, time.Now().UTC(), source)
	if err != nil {
		return fmt.Errorf("failed to touch account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account with id %s not found: %w", accountID, ErrNotFound)
	}

	return nil
}
