package repository

import (
	"github.com/prkovalenko/identity-link-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Account    AccountRepository
	AuthMethod AuthMethodRepository
	AuditEvent AuditEventRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Account:    NewAccountRepository(db),
		AuthMethod: NewAuthMethodRepository(db),
		AuditEvent: NewAuditEventRepository(db),
	}
}
